package types

import "time"

// ResultSummary points at the key artifacts of a finished job.
type ResultSummary struct {
	ComponentName    string   `json:"component_name,omitempty"`
	OverallScore     *float64 `json:"overall_score,omitempty"`
	CoverageEstimate *float64 `json:"coverage_estimate,omitempty"`
	DeploymentURL    string   `json:"deployment_url,omitempty"`
	FailedStage      string   `json:"failed_stage,omitempty"`
	FailureKind      string   `json:"failure_kind,omitempty"`
	Artifacts        []string `json:"artifacts"`
}

// HistoryEntry records one finished job.
type HistoryEntry struct {
	ID                string        `json:"id"`
	JobID             string        `json:"job_id"`
	Prompt            string        `json:"prompt"`
	Tags              []string      `json:"tags"`
	Category          string        `json:"category"`
	Status            string        `json:"status"`
	ResultSummary     ResultSummary `json:"result_summary"`
	GenerationSeconds float64       `json:"generation_seconds"`
	CreatedAt         time.Time     `json:"created_at"`
	SoftDeleted       bool          `json:"soft_deleted"`
	Similarity        float64       `json:"similarity,omitempty"`
}

// HistoryFilter selects entries for listing.
type HistoryFilter struct {
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// TagCount is a tag and how many entries carry it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// HistoryStats aggregates entries created within the last PeriodDays.
type HistoryStats struct {
	PeriodDays           int        `json:"period_days"`
	Total                int        `json:"total"`
	Succeeded            int        `json:"succeeded"`
	Failed               int        `json:"failed"`
	SuccessRate          float64    `json:"success_rate"`
	AvgGenerationSeconds float64    `json:"avg_generation_seconds"`
	TopTags              []TagCount `json:"top_tags"`
}

// PromptTemplate is a reusable prompt with {{.Placeholder}} slots.
type PromptTemplate struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	Template     string   `json:"template"`
	Placeholders []string `json:"placeholders"`
}
