package history

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/prompts"
	"github.com/jonathan/ui-builder/internal/types"
)

var placeholderRe = regexp.MustCompile(`\{\{\.([A-Za-z_][A-Za-z0-9_]*)\}\}`)

var builtinTemplates = []types.PromptTemplate{
	{
		ID:          "dashboard",
		Name:        "Dashboard",
		Category:    "dashboard",
		Description: "Modern dashboard with sidebar navigation and charts",
		Template:    "Create a modern {{.type}} dashboard with {{.navigation}} navigation, {{.charts}} charts, and a {{.theme}} theme",
	},
	{
		ID:          "landing-page",
		Name:        "Landing page",
		Category:    "landing_page",
		Description: "Marketing landing page with hero section",
		Template:    "Design a {{.industry}} landing page with a hero section, {{.features}} features, testimonials, and a {{.cta}} call-to-action",
	},
	{
		ID:          "ecommerce",
		Name:        "E-commerce",
		Category:    "general",
		Description: "Online store with product catalog",
		Template:    "Build an e-commerce site for {{.product_type}} with a product grid, shopping cart, {{.payment}} payment, and {{.style}} design",
	},
	{
		ID:          "blog",
		Name:        "Blog",
		Category:    "general",
		Description: "Content blog with article listing",
		Template:    "Create a {{.niche}} blog with article listing, {{.layout}} layout, search, and {{.features}} features",
	},
	{
		ID:          "signup-form",
		Name:        "Signup form",
		Category:    "form",
		Description: "Account signup form with validation",
		Template:    "Create a signup form for {{.product}} with {{.fields}} fields, inline validation, and a {{.theme}} theme",
	},
}

func init() {
	for i := range builtinTemplates {
		builtinTemplates[i].Placeholders = placeholders(builtinTemplates[i].Template)
	}
}

func placeholders(tmpl string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Templates lists the prompt templates, optionally restricted to a category.
func Templates(category string) []types.PromptTemplate {
	out := []types.PromptTemplate{}
	for _, t := range builtinTemplates {
		if category != "" && t.Category != category {
			continue
		}
		t.Placeholders = append([]string(nil), t.Placeholders...)
		out = append(out, t)
	}
	return out
}

// ApplyTemplate fills a template's placeholders. Every placeholder needs a
// non-empty value.
func ApplyTemplate(id string, values map[string]string) (string, error) {
	var tmpl *types.PromptTemplate
	for i := range builtinTemplates {
		if builtinTemplates[i].ID == id {
			tmpl = &builtinTemplates[i]
			break
		}
	}
	if tmpl == nil {
		return "", apperr.NotFound("template %s not found", id)
	}

	var missing []string
	for _, p := range tmpl.Placeholders {
		if strings.TrimSpace(values[p]) == "" {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", apperr.InvalidRequest("missing template values: %s", strings.Join(missing, ", "))
	}

	trimmed := make(map[string]string, len(values))
	for k, v := range values {
		trimmed[k] = strings.TrimSpace(v)
	}
	return prompts.Format(tmpl.Template, trimmed), nil
}
