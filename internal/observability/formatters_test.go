package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/types"
)

func TestPrintJob(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	now := time.Now()
	j := job.New("job-1", "Landing page with pricing", job.Options{DeployTarget: "vercel"}, now)
	require.NoError(t, j.SetStatus(job.StatusInProgress, now))
	require.NoError(t, j.StartStage(job.StageAnalyze, now))
	require.NoError(t, j.CompleteStage(job.StageAnalyze, json.RawMessage(`{}`), now))

	p.PrintJob(j)
	output := buf.String()

	assert.Contains(t, output, "JOB IN_PROGRESS")
	assert.Contains(t, output, "job-1")
	assert.Contains(t, output, "vercel")
	assert.Contains(t, output, "✓ analyze")
	assert.Contains(t, output, "generate_code")
}

func TestPrintJob_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintJob(nil)
	p.PrintAnalysis(nil)
	p.PrintValidationReport(nil)
	p.PrintTestSuite(nil)
	p.PrintDeployment(nil)
	p.PrintArtifacts(nil)

	assert.Empty(t, buf.String())
}

func TestPrintValidationReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &types.ValidationReport{
		CategoryScores: types.CategoryScores{Accessibility: 8, Performance: 9, CodeQuality: 10},
		AutoFixes:      map[string]string{"alt_text_missing": `<img alt="" />`},
	}
	for i := 0; i < 7; i++ {
		report.Issues = append(report.Issues, types.Issue{
			Category: types.CategoryAccessibility,
			Rule:     "alt_text_missing",
			Severity: types.SeverityHigh,
			Line:     i + 1,
		})
	}

	p.PrintValidationReport(report)
	output := buf.String()

	assert.Contains(t, output, "VALIDATION REPORT")
	assert.Contains(t, output, "8.9 / 10")
	assert.Contains(t, output, "[high] alt_text_missing (line 1)")
	assert.Contains(t, output, "... and 2 more issues")
	assert.Contains(t, output, "1 auto-fixes available")
}

func TestPrintTestSuite(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTestSuite(&types.TestSuiteReport{
		Files: []types.TestFile{
			{Filename: "Hero.test.jsx", TestType: types.TestTypeUnit, TestCount: 4},
		},
		TestCount:        4,
		CoverageEstimate: 0.92,
		CoverageLabel:    types.CoverageLabelEstimated,
		CoverageTarget:   0.9,
		TargetMet:        true,
	})
	output := buf.String()

	assert.Contains(t, output, "GENERATED TESTS")
	assert.Contains(t, output, "92% (estimated), target 90% ✓")
	assert.Contains(t, output, "Hero.test.jsx [unit, 4 tests]")
}

func TestPrintDeployment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDeployment(&types.DeploymentResult{Target: "netlify", URL: "https://hero.netlify.app", ProviderJobID: "d-1"})
	output := buf.String()

	assert.Contains(t, output, "DEPLOYMENT")
	assert.Contains(t, output, "https://hero.netlify.app")
	assert.NotContains(t, output, "Repo:")
}

func TestPrintSuggestions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSuggestions(nil)
	assert.Contains(t, buf.String(), "No similar prompts found")

	buf.Reset()
	score := 9.2
	p.PrintSuggestions([]types.HistoryEntry{{
		Prompt:        "signup form",
		Category:      "form",
		Status:        "completed",
		ResultSummary: types.ResultSummary{OverallScore: &score},
	}})
	assert.Contains(t, buf.String(), "form, completed, score 9.2")
}

func TestPrintArtifacts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	j := job.New("j", "dashboard", job.Options{}, time.Now())
	j.Artifacts[job.StageAnalyze] = json.RawMessage(`{"ui_type":"dashboard","components":["chart","table"]}`)
	j.Artifacts[job.StageValidate] = json.RawMessage(`{"category_scores":{"accessibility":10,"performance":10,"code_quality":10},"issues":[]}`)

	p.PrintArtifacts(j)
	output := buf.String()

	assert.Contains(t, output, "PROMPT ANALYSIS")
	assert.Contains(t, output, "chart, table")
	assert.Contains(t, output, "10.0 / 10")
	assert.NotContains(t, output, "DEPLOYMENT")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 100))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[3], "...")
}
