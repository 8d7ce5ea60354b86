// Package design lays a prompt analysis out as a wireframe.
package design

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/types"
)

// Designer produces a wireframe for an analyzed prompt.
type Designer interface {
	Design(ctx context.Context, prompt string, analysis *types.PromptAnalysis) (*types.Wireframe, error)
}

var sectionDescriptions = map[string]string{
	"header":       "Top bar with brand and primary navigation",
	"sidebar":      "Vertical navigation pinned to the left edge",
	"hero":         "Headline, supporting copy and a primary call to action",
	"features":     "Three-up grid of feature highlights",
	"cards":        "Responsive grid of summary cards",
	"charts":       "Chart panels for key metrics",
	"table":        "Sortable data table",
	"pricing":      "Plan comparison with one highlighted tier",
	"testimonials": "Customer quotes with names and roles",
	"form":         "Labelled inputs with inline validation and a submit button",
	"main":         "Primary content area",
	"footer":       "Secondary links and copyright",
}

// Page position; unknown components go after main content, before the footer.
var sectionOrder = map[string]int{
	"header": 0, "sidebar": 1, "hero": 2, "features": 3, "cards": 4, "charts": 5,
	"table": 6, "pricing": 7, "testimonials": 8, "form": 9, "main": 10, "footer": 99,
}

// LocalDesigner builds wireframes in process. The reference URI is stable
// for a given prompt.
type LocalDesigner struct{}

func (LocalDesigner) Design(_ context.Context, prompt string, a *types.PromptAnalysis) (*types.Wireframe, error) {
	if a == nil {
		return nil, apperr.InvalidInput("design requires a prompt analysis")
	}
	components := a.Components
	if len(components) == 0 {
		components = []string{"main"}
	}

	w := &types.Wireframe{
		ReferenceURI: "wireframe://local/" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(prompt))).String(),
		Layout:       a.Layout,
		Theme:        a.Theme,
		ColorScheme:  a.ColorScheme,
	}
	seen := map[string]bool{}
	for _, c := range ordered(components) {
		if seen[c] {
			continue
		}
		seen[c] = true
		w.Sections = append(w.Sections, types.WireframeSection{
			Name:        title(c),
			Component:   c,
			Description: sectionDescriptions[c],
		})
	}
	return w, nil
}

func ordered(components []string) []string {
	out := append([]string(nil), components...)
	rank := func(c string) int {
		if r, ok := sectionOrder[c]; ok {
			return r
		}
		return 50
	}
	// insertion sort keeps unknown components in their given order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && rank(out[j]) < rank(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func title(component string) string {
	words := strings.FieldsFunc(component, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
