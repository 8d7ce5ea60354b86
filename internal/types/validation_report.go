package types

import (
	"encoding/json"
	"math"
)

// Category is a validation scoring category.
type Category string

const (
	CategoryAccessibility Category = "accessibility"
	CategoryPerformance   Category = "performance"
	CategoryCodeQuality   Category = "code_quality"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Fixed category weights for the overall score.
const (
	WeightAccessibility = 0.4
	WeightPerformance   = 0.3
	WeightCodeQuality   = 0.3
	MaxScore            = 10.0
)

// Issue is one finding of the validation engine.
type Issue struct {
	Category Category `json:"category"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"`
	Snippet  string   `json:"snippet,omitempty"`
}

// CategoryScores holds one score in [0,10] per category.
type CategoryScores struct {
	Accessibility float64 `json:"accessibility"`
	Performance   float64 `json:"performance"`
	CodeQuality   float64 `json:"code_quality"`
}

// Overall is the weighted sum of the category scores, clamped to [0,10]
// and rounded to one decimal.
func (s CategoryScores) Overall() float64 {
	v := WeightAccessibility*s.Accessibility + WeightPerformance*s.Performance + WeightCodeQuality*s.CodeQuality
	return Round1(math.Max(0, math.Min(MaxScore, v)))
}

// Get returns the score for a category.
func (s CategoryScores) Get(c Category) float64 {
	switch c {
	case CategoryAccessibility:
		return s.Accessibility
	case CategoryPerformance:
		return s.Performance
	default:
		return s.CodeQuality
	}
}

// ValidationReport is the artifact of the validate stage. The overall score
// has no storage of its own; it is derived from CategoryScores on read and
// on serialization.
type ValidationReport struct {
	CategoryScores CategoryScores    `json:"category_scores"`
	Issues         []Issue           `json:"issues"`
	AutoFixes      map[string]string `json:"auto_fixes,omitempty"`
	Suggestions    []string          `json:"suggestions,omitempty"`
}

// OverallScore returns the weighted overall score.
func (r *ValidationReport) OverallScore() float64 {
	return r.CategoryScores.Overall()
}

// IssuesFor returns the issues of one category.
func (r *ValidationReport) IssuesFor(c Category) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Category == c {
			out = append(out, is)
		}
	}
	return out
}

type validationReportJSON struct {
	CategoryScores CategoryScores    `json:"category_scores"`
	OverallScore   float64           `json:"overall_score"`
	Issues         []Issue           `json:"issues"`
	AutoFixes      map[string]string `json:"auto_fixes,omitempty"`
	Suggestions    []string          `json:"suggestions,omitempty"`
}

// MarshalJSON emits overall_score computed from the category scores.
func (r ValidationReport) MarshalJSON() ([]byte, error) {
	issues := r.Issues
	if issues == nil {
		issues = []Issue{}
	}
	return json.Marshal(validationReportJSON{
		CategoryScores: r.CategoryScores,
		OverallScore:   r.CategoryScores.Overall(),
		Issues:         issues,
		AutoFixes:      r.AutoFixes,
		Suggestions:    r.Suggestions,
	})
}

// UnmarshalJSON ignores any stored overall_score.
func (r *ValidationReport) UnmarshalJSON(data []byte) error {
	var raw validationReportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ValidationReport{
		CategoryScores: raw.CategoryScores,
		Issues:         raw.Issues,
		AutoFixes:      raw.AutoFixes,
		Suggestions:    raw.Suggestions,
	}
	return nil
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
