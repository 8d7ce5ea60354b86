package validation

import (
	"math"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/ui-builder/internal/types"
)

const (
	componentReact = "react"
	componentHTML  = "html"

	maxSourceBytes   = 512 * 1024
	largeSourceLines = 50
)

type document struct {
	src           string
	componentType string
	tags          []tag
	lines         lineIndex
	html          *goquery.Document
}

func parse(src, componentType string) (*document, error) {
	if strings.TrimSpace(src) == "" {
		return nil, invalidSource("source is empty")
	}
	if len(src) > maxSourceBytes {
		return nil, invalidSource("source exceeds %d bytes", maxSourceBytes)
	}
	switch componentType {
	case "":
		componentType = componentReact
	case componentReact, componentHTML:
	default:
		return nil, invalidSource("unsupported component type %q", componentType)
	}

	d := &document{
		src:           src,
		componentType: componentType,
		tags:          scanTags(src),
		lines:         newLineIndex(src),
	}
	if len(d.tags) == 0 && !looksLikeCode(src) {
		return nil, invalidSource("source contains no markup or component code")
	}
	html, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, &Error{Message: "failed to parse markup", Cause: err}
	}
	d.html = html
	return d, nil
}

func looksLikeCode(src string) bool {
	for _, kw := range []string{"function", "=>", "return", "const ", "class ", "export "} {
		if strings.Contains(src, kw) {
			return true
		}
	}
	return false
}

// Validate runs the full battery against source and scores it. A poorly
// scoring source is a valid result; only empty or unparsable input fails.
func Validate(source, componentType string) (*types.ValidationReport, error) {
	d, err := parse(source, componentType)
	if err != nil {
		return nil, err
	}

	var issues []types.Issue
	fixes := map[string]string{}
	for _, check := range []func(*document) ([]types.Issue, map[string]string){
		checkAccessibility,
		checkPerformance,
		checkQuality,
	} {
		found, fx := check(d)
		issues = append(issues, found...)
		for k, v := range fx {
			fixes[k] = v
		}
	}

	report := &types.ValidationReport{
		CategoryScores: Score(issues),
		Issues:         issues,
	}
	if len(fixes) > 0 {
		report.AutoFixes = fixes
	}
	report.Suggestions = Suggestions(report, source)
	return report, nil
}

// Score computes per-category scores: each starts at 10, loses the penalty
// of every issue in it, is floored at 0 and rounded to one decimal.
func Score(issues []types.Issue) types.CategoryScores {
	pen := map[types.Category]float64{}
	for _, is := range issues {
		pen[is.Category] += penalty(is.Category, is.Severity)
	}
	score := func(c types.Category) float64 {
		return types.Round1(math.Max(0, types.MaxScore-pen[c]))
	}
	return types.CategoryScores{
		Accessibility: score(types.CategoryAccessibility),
		Performance:   score(types.CategoryPerformance),
		CodeQuality:   score(types.CategoryCodeQuality),
	}
}

// Suggestions summarizes improvement advice for a report.
func Suggestions(report *types.ValidationReport, source string) []string {
	var out []string
	if len(report.IssuesFor(types.CategoryAccessibility)) > 0 {
		out = append(out, "Accessibility: add alt text to images, use semantic HTML and ensure proper ARIA labels")
	}
	if len(report.IssuesFor(types.CategoryPerformance)) > 0 {
		out = append(out, "Performance: optimize images, avoid inline styles and consider lazy loading")
	}
	if len(report.IssuesFor(types.CategoryCodeQuality)) > 0 {
		out = append(out, "Code quality: remove console statements, use responsive units and clean up unused imports")
	}
	if strings.Contains(source, "className") {
		out = append(out, "Styling: consider CSS modules or styled-components for maintainability")
	}
	if strings.Count(source, "\n")+1 > largeSourceLines {
		out = append(out, "Structure: consider breaking large components into smaller reusable pieces")
	}
	if len(report.AutoFixes) > 0 {
		ids := make([]string, 0, len(report.AutoFixes))
		for id := range report.AutoFixes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out = append(out, "Auto-fixes available for: "+strings.Join(ids, ", "))
	}
	return out
}
