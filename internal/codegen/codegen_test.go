package codegen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/llm"
	"github.com/jonathan/ui-builder/internal/testgen"
	"github.com/jonathan/ui-builder/internal/types"
	"github.com/jonathan/ui-builder/internal/validation"
)

func wireframe(components ...string) *types.Wireframe {
	w := &types.Wireframe{ReferenceURI: "wireframe://local/test", Layout: "single_column", Theme: "dark", ColorScheme: "purple"}
	for _, c := range components {
		w.Sections = append(w.Sections, types.WireframeSection{Name: strings.ToUpper(c[:1]) + c[1:], Component: c})
	}
	return w
}

func TestTemplateGenerator_Variants(t *testing.T) {
	tests := []struct {
		name       string
		component  string
		sections   []string
		wantText   []string
		wantStates []string
	}{
		{
			name:       "landing page",
			component:  "LandingPage",
			sections:   []string{"header", "hero", "features", "pricing", "footer"},
			wantText:   []string{"const FEATURES", "const PLANS", "<header", "<footer", "function LandingPage({ title = 'Landing Page' })"},
			wantStates: []string{"menuOpen"},
		},
		{
			name:       "dashboard",
			component:  "Dashboard",
			sections:   []string{"sidebar", "cards", "charts", "table"},
			wantText:   []string{"const METRICS", "<aside", "<table>", "handleToggle"},
			wantStates: []string{"expanded"},
		},
		{
			name:       "signup form",
			component:  "SignupForm",
			sections:   []string{"form", "kpi_strip"},
			wantText:   []string{`<label htmlFor="email">Email</label>`, `className="kpi-strip"`, "handleSubmit"},
			wantStates: []string{"email", "submitted"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := TemplateGenerator{}.Generate(context.Background(), Request{
				Prompt:        tt.name,
				ComponentName: tt.component,
				Wireframe:     wireframe(tt.sections...),
			})
			require.NoError(t, err)
			assert.Equal(t, GeneratorTemplate, code.Generator)
			assert.Equal(t, "react", code.ComponentType)
			assert.Contains(t, code.Styles, "--accent: #7c3aed;")
			for _, want := range tt.wantText {
				assert.Contains(t, code.Source, want)
			}
			assert.True(t, strings.HasSuffix(code.Source, "export default "+tt.component+";\n"))

			report, err := validation.Validate(code.Source, "react")
			require.NoError(t, err)
			for _, issue := range report.Issues {
				assert.NotEqual(t, types.SeverityHigh, issue.Severity, "%s: %s", issue.Rule, issue.Message)
			}
			assert.GreaterOrEqual(t, report.OverallScore(), 9.0)

			surface, err := testgen.Analyze(code.Source, "")
			require.NoError(t, err)
			assert.Equal(t, tt.component, surface.Component)
			var states []string
			for _, e := range surface.In(testgen.CategoryState) {
				states = append(states, e.Name)
			}
			assert.Equal(t, tt.wantStates, states)
		})
	}
}

func TestTemplateGenerator_Deterministic(t *testing.T) {
	req := Request{Prompt: "x", ComponentName: "Hero", Wireframe: wireframe("hero")}
	a, err := TemplateGenerator{}.Generate(context.Background(), req)
	require.NoError(t, err)
	b, err := TemplateGenerator{}.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Source, b.Source)
}

func TestRequestValidation(t *testing.T) {
	ctx := context.Background()
	tests := []Request{
		{Prompt: "", ComponentName: "Hero", Wireframe: wireframe("hero")},
		{Prompt: "x", ComponentName: "hero", Wireframe: wireframe("hero")},
		{Prompt: "x", ComponentName: "Hero"},
		{Prompt: "x", ComponentName: "Hero", Wireframe: &types.Wireframe{}},
	}
	for _, req := range tests {
		_, err := TemplateGenerator{}.Generate(ctx, req)
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	}
}

type fakeClient struct {
	prompt string
	tier   llm.ModelTier
	out    string
	err    error
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompt, f.tier = prompt, tier
	return f.out, f.err
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateContent(ctx, prompt, tier)
}

func (f *fakeClient) Close() error { return nil }

func TestLLMGenerator(t *testing.T) {
	client := &fakeClient{out: "Here you go:\n```jsx\nexport default function Hero() {\n  return <section>Hi</section>;\n}\n```"}
	g := NewLLMGenerator(client)
	code, err := g.Generate(context.Background(), Request{
		Prompt:        "  hero with a {{.Theme}} placeholder ",
		ComponentName: "Hero",
		Analysis:      &types.PromptAnalysis{Complexity: "complex"},
		Wireframe:     wireframe("hero", "footer"),
		Hint:          "alt_text_missing",
	})
	require.NoError(t, err)
	assert.Equal(t, GeneratorGemini, code.Generator)
	assert.Equal(t, "export default function Hero() {\n  return <section>Hi</section>;\n}\n", code.Source)
	assert.Equal(t, llm.TierAdvanced, client.tier)

	assert.Contains(t, client.prompt, "named Hero")
	assert.Contains(t, client.prompt, "hero with a {{.Theme}} placeholder", "prompt text is not re-expanded")
	assert.Contains(t, client.prompt, "1. Hero (hero)\n2. Footer (footer)")
	assert.Contains(t, client.prompt, "Theme: dark.")
	assert.Contains(t, client.prompt, "failed validation with: alt_text_missing")
}

func TestLLMGenerator_Errors(t *testing.T) {
	ctx := context.Background()
	req := Request{Prompt: "hero", ComponentName: "Hero", Wireframe: wireframe("hero")}

	g := NewLLMGenerator(&fakeClient{err: apperr.ProviderUnavailable(nil, "model request failed")})
	_, err := g.Generate(ctx, req)
	assert.Equal(t, apperr.KindProviderUnavailable, apperr.KindOf(err))

	g = NewLLMGenerator(&fakeClient{out: "I cannot help with that."})
	_, err = g.Generate(ctx, req)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}
