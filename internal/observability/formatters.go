// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func moreLine(sb *strings.Builder, total, shown int, noun string) {
	if total > shown {
		fmt.Fprintf(sb, "  ... and %d more %s\n", total-shown, noun)
	}
}

// PrintJob outputs the job status with one line per stage.
func (p *Printer) PrintJob(j *job.Job) {
	if j == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ID:       %s\n", j.ID)
	fmt.Fprintf(&sb, "Status:   %s\n", j.Status)
	fmt.Fprintf(&sb, "Prompt:   %s\n", j.Prompt)
	if j.Options.DeployTarget != "" {
		fmt.Fprintf(&sb, "Target:   %s\n", j.Options.DeployTarget)
	}
	sb.WriteString("\n")

	for _, st := range j.Stages {
		fmt.Fprintf(&sb, "%s %-15s %s", stageIcon(st.Status), st.Name, st.Status)
		if st.Attempts > 1 {
			fmt.Fprintf(&sb, " (%d attempts)", st.Attempts)
		}
		sb.WriteString("\n")
		if st.Warning != "" {
			fmt.Fprintf(&sb, "    ⚠ %s\n", st.Warning)
		}
	}
	if j.Error != "" {
		fmt.Fprintf(&sb, "\nError: %s\n", j.Error)
	}

	p.printBox("JOB "+strings.ToUpper(string(j.Status)), strings.TrimSuffix(sb.String(), "\n"))
}

func stageIcon(s job.StageStatus) string {
	switch s {
	case job.StageSucceeded:
		return "✓"
	case job.StageFailed:
		return "✗"
	case job.StageSkipped:
		return "–"
	case job.StageRunning:
		return "…"
	default:
		return " "
	}
}

// PrintAnalysis outputs the prompt analysis.
func (p *Printer) PrintAnalysis(a *types.PromptAnalysis) {
	if a == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UI type:    %s\n", a.UIType)
	fmt.Fprintf(&sb, "Layout:     %s\n", a.Layout)
	fmt.Fprintf(&sb, "Theme:      %s (%s)\n", a.Theme, a.ColorScheme)
	fmt.Fprintf(&sb, "Complexity: %s\n", a.Complexity)
	if len(a.Components) > 0 {
		fmt.Fprintf(&sb, "Components: %s\n", strings.Join(a.Components, ", "))
	}

	p.printBox("PROMPT ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintValidationReport outputs category scores and the top issues.
func (p *Printer) PrintValidationReport(r *types.ValidationReport) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall:        %.1f / 10\n", r.OverallScore())
	fmt.Fprintf(&sb, "Accessibility:  %.1f\n", r.CategoryScores.Accessibility)
	fmt.Fprintf(&sb, "Performance:    %.1f\n", r.CategoryScores.Performance)
	fmt.Fprintf(&sb, "Code quality:   %.1f\n", r.CategoryScores.CodeQuality)

	if len(r.Issues) > 0 {
		fmt.Fprintf(&sb, "\nIssues (%d):\n", len(r.Issues))
		count := min(len(r.Issues), maxItemsToShow)
		for i := 0; i < count; i++ {
			is := r.Issues[i]
			fmt.Fprintf(&sb, "  ⚠ [%s] %s", is.Severity, is.Rule)
			if is.Line > 0 {
				fmt.Fprintf(&sb, " (line %d)", is.Line)
			}
			sb.WriteString("\n")
		}
		moreLine(&sb, len(r.Issues), count, "issues")
	}

	if len(r.AutoFixes) > 0 {
		fmt.Fprintf(&sb, "\n%d auto-fixes available\n", len(r.AutoFixes))
	}

	p.printBox("VALIDATION REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTestSuite outputs the generated test files and the coverage estimate.
func (p *Printer) PrintTestSuite(s *types.TestSuiteReport) {
	if s == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tests:     %d in %d files\n", s.TestCount, len(s.Files))
	target := "✗"
	if s.TargetMet {
		target = "✓"
	}
	fmt.Fprintf(&sb, "Coverage:  %.0f%% (%s), target %.0f%% %s\n",
		s.CoverageEstimate*100, s.CoverageLabel, s.CoverageTarget*100, target)
	sb.WriteString("\n")

	count := min(len(s.Files), maxItemsToShow)
	for i := 0; i < count; i++ {
		f := s.Files[i]
		fmt.Fprintf(&sb, "• %s [%s, %d tests]\n", f.Filename, f.TestType, f.TestCount)
	}
	moreLine(&sb, len(s.Files), count, "files")

	p.printBox("GENERATED TESTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDeployment outputs the deployment result.
func (p *Printer) PrintDeployment(d *types.DeploymentResult) {
	if d == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Target:  %s\n", d.Target)
	fmt.Fprintf(&sb, "URL:     %s\n", d.URL)
	if d.RepositoryURL != "" {
		fmt.Fprintf(&sb, "Repo:    %s\n", d.RepositoryURL)
	}
	if d.ProviderJobID != "" {
		fmt.Fprintf(&sb, "Job:     %s\n", d.ProviderJobID)
	}

	p.printBox("DEPLOYMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSuggestions outputs similar past prompts.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSuggestions(entries []types.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "No similar prompts found")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&sb, "• %s\n", e.Prompt)
		fmt.Fprintf(&sb, "  %s, %s", e.Category, e.Status)
		if e.ResultSummary.OverallScore != nil {
			fmt.Fprintf(&sb, ", score %.1f", *e.ResultSummary.OverallScore)
		}
		sb.WriteString("\n")
		if i < len(entries)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("SIMILAR PROMPTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintArtifacts prints every artifact present on a job, in stage order.
func (p *Printer) PrintArtifacts(j *job.Job) {
	if j == nil {
		return
	}
	var a types.PromptAnalysis
	if ok, err := j.Artifact(job.StageAnalyze, &a); ok && err == nil {
		p.PrintAnalysis(&a)
	}
	var r types.ValidationReport
	if ok, err := j.Artifact(job.StageValidate, &r); ok && err == nil {
		p.PrintValidationReport(&r)
	}
	var s types.TestSuiteReport
	if ok, err := j.Artifact(job.StageGenerateTests, &s); ok && err == nil {
		p.PrintTestSuite(&s)
	}
	var d types.DeploymentResult
	if ok, err := j.Artifact(job.StageDeploy, &d); ok && err == nil {
		p.PrintDeployment(&d)
	}
}
