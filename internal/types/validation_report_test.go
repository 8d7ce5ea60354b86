//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryScores_Overall(t *testing.T) {
	tests := []struct {
		name   string
		scores CategoryScores
		want   float64
	}{
		{"perfect", CategoryScores{10, 10, 10}, 10},
		{"zero", CategoryScores{0, 0, 0}, 0},
		{"weighted", CategoryScores{Accessibility: 8, Performance: 9, CodeQuality: 7}, 8},
		{"rounds to one decimal", CategoryScores{Accessibility: 7, Performance: 8, CodeQuality: 9}, 7.9},
		{"clamps high", CategoryScores{20, 20, 20}, 10},
		{"clamps low", CategoryScores{-5, -5, -5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.scores.Overall(), 1e-9)
		})
	}
}

func TestValidationReport_MarshalComputesOverall(t *testing.T) {
	report := ValidationReport{
		CategoryScores: CategoryScores{Accessibility: 6, Performance: 10, CodeQuality: 9},
		Issues: []Issue{{
			Category: CategoryAccessibility,
			Rule:     "alt_text_missing",
			Message:  "Image missing alt text",
			Severity: SeverityHigh,
			Line:     3,
		}},
		AutoFixes: map[string]string{"alt_text_missing": `<img src="a.png" alt="" />`},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"overall_score":8.1`)
	assert.Contains(t, string(data), `"rule":"alt_text_missing"`)
}

func TestValidationReport_UnmarshalIgnoresStoredOverall(t *testing.T) {
	data := []byte(`{"category_scores":{"accessibility":10,"performance":10,"code_quality":10},"overall_score":1.2,"issues":[]}`)

	var report ValidationReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 10.0, report.OverallScore())

	again, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(again), `"overall_score":10`)
}

func TestValidationReport_EmptyIssuesSerializeAsArray(t *testing.T) {
	data, err := json.Marshal(ValidationReport{CategoryScores: CategoryScores{10, 10, 10}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"issues":[]`)
	assert.NotContains(t, string(data), "auto_fixes")
}

func TestValidationReport_IssuesFor(t *testing.T) {
	report := ValidationReport{Issues: []Issue{
		{Category: CategoryAccessibility, Rule: "a"},
		{Category: CategoryPerformance, Rule: "b"},
		{Category: CategoryAccessibility, Rule: "c"},
	}}
	got := report.IssuesFor(CategoryAccessibility)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[1].Rule)
	assert.Empty(t, report.IssuesFor(CategoryCodeQuality))
}
