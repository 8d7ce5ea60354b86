// Package codegen produces React component source from a prompt and its
// wireframe, either through the language model or from built-in templates.
package codegen

import (
	"bytes"
	"context"
	"embed"
	"regexp"
	"strings"
	"text/template"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/deploy"
	"github.com/jonathan/ui-builder/internal/types"
)

// Generator names recorded on GeneratedCode.
const (
	GeneratorGemini   = "gemini"
	GeneratorTemplate = "template"
)

// Request carries everything a generator may use.
type Request struct {
	Prompt        string
	ComponentName string
	Analysis      *types.PromptAnalysis
	Wireframe     *types.Wireframe
	// Hint describes problems of a previous attempt, if any.
	Hint string
}

// Generator turns a request into component source.
type Generator interface {
	Generate(ctx context.Context, req Request) (*types.GeneratedCode, error)
}

var componentNameRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

func (r Request) validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return apperr.InvalidInput("code generation needs a prompt")
	}
	if !componentNameRe.MatchString(r.ComponentName) {
		return apperr.InvalidInput("component name %q must be PascalCase", r.ComponentName)
	}
	if r.Wireframe == nil || len(r.Wireframe.Sections) == 0 {
		return apperr.InvalidInput("code generation needs a wireframe with sections")
	}
	return nil
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var componentTemplate = template.Must(template.ParseFS(templateFS, "templates/component.jsx.tmpl"))

// TemplateGenerator renders a deterministic component from the wireframe.
type TemplateGenerator struct{}

type componentData struct {
	Name     string
	Title    string
	Slug     string
	Theme    string
	Color    string
	Layout   string
	Sections []types.WireframeSection
}

// Has reports whether the wireframe contains a section for component.
func (d componentData) Has(component string) bool {
	for _, s := range d.Sections {
		if s.Component == component {
			return true
		}
	}
	return false
}

var unsafeText = regexp.MustCompile(`[^A-Za-z0-9 ,.-]+`)

func (TemplateGenerator) Generate(_ context.Context, req Request) (*types.GeneratedCode, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	w := req.Wireframe
	data := componentData{
		Name:   req.ComponentName,
		Title:  displayTitle(req.ComponentName),
		Slug:   deploy.Slug(req.ComponentName),
		Theme:  orDefault(w.Theme, "light"),
		Color:  orDefault(w.ColorScheme, "blue"),
		Layout: orDefault(w.Layout, "single_column"),
	}
	for _, s := range w.Sections {
		s.Name = strings.TrimSpace(unsafeText.ReplaceAllString(s.Name, " "))
		s.Description = strings.TrimSpace(unsafeText.ReplaceAllString(s.Description, " "))
		s.Component = deploy.Slug(s.Component)
		data.Sections = append(data.Sections, s)
	}

	var buf bytes.Buffer
	if err := componentTemplate.Execute(&buf, data); err != nil {
		return nil, apperr.Internal(err, "failed to render component template")
	}
	return &types.GeneratedCode{
		ComponentName: req.ComponentName,
		ComponentType: "react",
		Source:        buf.String(),
		Styles:        stylesFor(data),
		Generator:     GeneratorTemplate,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// displayTitle splits a PascalCase name into words.
func displayTitle(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var accentColors = map[string]string{
	"blue": "#2563eb", "red": "#dc2626", "green": "#16a34a", "purple": "#7c3aed",
	"orange": "#ea580c", "teal": "#0d9488", "pink": "#db2777", "indigo": "#4f46e5",
	"yellow": "#ca8a04", "gray": "#4b5563",
}

func stylesFor(d componentData) string {
	accent, ok := accentColors[d.Color]
	if !ok {
		accent = accentColors["blue"]
	}
	bg, fg := "#ffffff", "#111827"
	if d.Theme == "dark" {
		bg, fg = "#0f172a", "#e2e8f0"
	}
	var b strings.Builder
	b.WriteString("." + d.Slug + " {\n  --accent: " + accent + ";\n  background: " + bg + ";\n  color: " + fg + ";\n  min-height: 100vh;\n}\n")
	if d.Layout == "sidebar" {
		b.WriteString("." + d.Slug + ".layout-sidebar {\n  display: grid;\n  grid-template-columns: 16rem 1fr;\n}\n")
	}
	if d.Layout == "grid" {
		b.WriteString("." + d.Slug + " .content {\n  display: grid;\n  grid-template-columns: repeat(auto-fit, minmax(18rem, 1fr));\n  gap: 1.5rem;\n}\n")
	}
	b.WriteString("." + d.Slug + " .button.primary,\n." + d.Slug + " button {\n  background: var(--accent);\n  color: #ffffff;\n  border: 0;\n  border-radius: 0.5rem;\n  padding: 0.5rem 1rem;\n}\n")
	return b.String()
}
