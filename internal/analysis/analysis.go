// Package analysis turns a free-form generation prompt into a structured
// PromptAnalysis: UI type, components, layout, theme and keywords.
package analysis

import (
	"context"
	"regexp"
	"strings"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/history"
	"github.com/jonathan/ui-builder/internal/types"
)

// Layouts.
const (
	LayoutSingleColumn = "single_column"
	LayoutSidebar      = "sidebar"
	LayoutGrid         = "grid"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Complexity levels.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// DefaultColor is used when the prompt names no color.
const DefaultColor = "blue"

// Analyzer produces a PromptAnalysis for a prompt.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (*types.PromptAnalysis, error)
}

type keywordRule struct {
	value    string
	patterns []*regexp.Regexp
}

func rule(value string, words ...string) keywordRule {
	r := keywordRule{value: value}
	for _, w := range words {
		r.patterns = append(r.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return r
}

func (r keywordRule) matches(lower string) bool {
	for _, p := range r.patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// First match wins.
var uiTypeRules = []keywordRule{
	rule(types.UITypeLandingPage, "landing", "home page", "homepage", "marketing", "hero"),
	rule(types.UITypeDashboard, "dashboard", "admin", "panel", "analytics"),
	rule(types.UITypeForm, "form", "signup", "sign up", "login", "log in", "register"),
}

// Ordered as they would appear on a page.
var componentRules = []keywordRule{
	rule("header", "header", "navigation", "nav", "navbar", "menu"),
	rule("sidebar", "sidebar", "side menu"),
	rule("hero", "hero", "banner", "main section"),
	rule("features", "features", "benefits", "services"),
	rule("cards", "cards", "card", "grid", "gallery"),
	rule("charts", "chart", "charts", "graph", "graphs", "analytics"),
	rule("table", "table", "tables"),
	rule("pricing", "pricing", "plans", "packages"),
	rule("testimonials", "testimonials", "reviews"),
	rule("form", "form", "input", "inputs", "signup", "sign up", "login", "contact form"),
	rule("footer", "footer", "contact"),
}

var defaultComponents = map[string][]string{
	types.UITypeLandingPage: {"header", "hero", "features", "footer"},
	types.UITypeDashboard:   {"sidebar", "header", "cards", "charts"},
	types.UITypeForm:        {"header", "form", "footer"},
	types.UITypeGeneral:     {"header", "main", "footer"},
}

var colorRule = regexp.MustCompile(`\b(red|green|purple|orange|teal|pink|indigo|yellow|gray|grey|blue)\b`)

var darkRule = rule(ThemeDark, "dark", "dark mode", "night")

// Heuristic classifies prompts with keyword rules. It never calls out.
type Heuristic struct{}

func (Heuristic) Analyze(_ context.Context, prompt string) (*types.PromptAnalysis, error) {
	return Analyze(prompt)
}

// Analyze classifies prompt with keyword rules.
func Analyze(prompt string) (*types.PromptAnalysis, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperr.InvalidInput("prompt is empty")
	}
	lower := strings.ToLower(prompt)

	a := &types.PromptAnalysis{
		UIType:      types.UITypeGeneral,
		Layout:      LayoutSingleColumn,
		Theme:       ThemeLight,
		ColorScheme: DefaultColor,
		Keywords:    history.Tags(prompt),
	}
	for _, r := range uiTypeRules {
		if r.matches(lower) {
			a.UIType = r.value
			break
		}
	}
	for _, r := range componentRules {
		if r.matches(lower) {
			a.Components = append(a.Components, r.value)
		}
	}
	if len(a.Components) == 0 {
		a.Components = append([]string(nil), defaultComponents[a.UIType]...)
	}

	switch {
	case strings.Contains(lower, "sidebar") || (a.UIType == types.UITypeDashboard && !strings.Contains(lower, "grid")):
		a.Layout = LayoutSidebar
	case strings.Contains(lower, "grid"):
		a.Layout = LayoutGrid
	}
	if darkRule.matches(lower) {
		a.Theme = ThemeDark
	}
	if m := colorRule.FindString(lower); m != "" {
		if m == "grey" {
			m = "gray"
		}
		a.ColorScheme = m
	}
	a.Complexity = complexity(len(a.Components), len(a.Keywords))
	return a, nil
}

func complexity(components, keywords int) string {
	switch {
	case components >= 6 || keywords >= 15:
		return ComplexityComplex
	case components >= 3 || keywords >= 8:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// ComponentName derives a PascalCase component name. An explicit name
// wins when it is already a valid identifier.
func ComponentName(a *types.PromptAnalysis, explicit string) string {
	if explicit != "" {
		if name := pascal(explicit); name != "" {
			return name
		}
	}
	if a == nil {
		return "GeneratedComponent"
	}
	switch a.UIType {
	case types.UITypeLandingPage:
		return "LandingPage"
	case types.UITypeDashboard:
		return "Dashboard"
	case types.UITypeForm:
		for _, c := range a.Keywords {
			if c == "signup" || c == "login" || c == "register" || c == "contact" {
				return pascal(c) + "Form"
			}
		}
		return "FormPage"
	}
	return "GeneratedComponent"
}

func pascal(s string) string {
	var b strings.Builder
	for _, part := range nonAlnum.Split(s, -1) {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	out := b.String()
	if out == "" || out[0] < 'A' || out[0] > 'Z' {
		return ""
	}
	return out
}
