package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/llm"
	"github.com/jonathan/ui-builder/internal/types"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   types.PromptAnalysis
	}{
		{
			name:   "landing page",
			prompt: "Create a responsive landing page with hero, pricing plans and a dark purple theme",
			want: types.PromptAnalysis{
				UIType:      types.UITypeLandingPage,
				Components:  []string{"hero", "pricing"},
				Layout:      LayoutSingleColumn,
				Theme:       ThemeDark,
				ColorScheme: "purple",
				Keywords:    []string{"dark", "hero", "landing", "page", "plans", "pricing", "purple", "responsive", "theme"},
				Complexity:  ComplexityModerate,
			},
		},
		{
			name:   "dashboard",
			prompt: "Admin dashboard with charts and a data table",
			want: types.PromptAnalysis{
				UIType:      types.UITypeDashboard,
				Components:  []string{"charts", "table"},
				Layout:      LayoutSidebar,
				Theme:       ThemeLight,
				ColorScheme: DefaultColor,
				Keywords:    []string{"admin", "charts", "dashboard", "data", "table"},
				Complexity:  ComplexitySimple,
			},
		},
		{
			name:   "no matches uses defaults",
			prompt: "canvas drawing app in grey",
			want: types.PromptAnalysis{
				UIType:      types.UITypeGeneral,
				Components:  []string{"header", "main", "footer"},
				Layout:      LayoutSingleColumn,
				Theme:       ThemeLight,
				ColorScheme: "gray",
				Keywords:    []string{"canvas", "drawing", "grey"},
				Complexity:  ComplexityModerate,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Analyze(tt.prompt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestAnalyze_Empty(t *testing.T) {
	_, err := Analyze("   ")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestComponentName(t *testing.T) {
	form, err := Analyze("signup form with email and password inputs")
	require.NoError(t, err)
	assert.Equal(t, types.UITypeForm, form.UIType)
	assert.Equal(t, "SignupForm", ComponentName(form, ""))

	assert.Equal(t, "PricingTable", ComponentName(form, "pricing table"))
	assert.Equal(t, "SignupForm", ComponentName(form, "42"))
	assert.Equal(t, "Dashboard", ComponentName(&types.PromptAnalysis{UIType: types.UITypeDashboard}, ""))
	assert.Equal(t, "GeneratedComponent", ComponentName(&types.PromptAnalysis{UIType: types.UITypeGeneral}, ""))
	assert.Equal(t, "GeneratedComponent", ComponentName(nil, ""))
}

type fakeClient struct {
	json string
	err  error
}

func (f *fakeClient) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	return f.json, f.err
}

func (f *fakeClient) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	return f.json, f.err
}

func (f *fakeClient) Close() error { return nil }

func TestLLMAnalyzer(t *testing.T) {
	ctx := context.Background()
	a := &LLMAnalyzer{Client: &fakeClient{
		json: `{"ui_type":"dashboard","layout":"grid","theme":"neon","components":["chart","chart","kpi"],"complexity":"complex"}`,
	}}
	got, err := a.Analyze(ctx, "sales overview")
	require.NoError(t, err)
	assert.Equal(t, types.UITypeDashboard, got.UIType)
	assert.Equal(t, LayoutGrid, got.Layout)
	assert.Equal(t, ThemeLight, got.Theme, "unknown theme is ignored")
	assert.Equal(t, DefaultColor, got.ColorScheme)
	assert.Equal(t, ComplexityComplex, got.Complexity)
	assert.Equal(t, []string{"chart", "kpi"}, got.Components)
	assert.Equal(t, []string{"overview", "sales"}, got.Keywords)
}

func TestLLMAnalyzer_Fallbacks(t *testing.T) {
	ctx := context.Background()

	a := &LLMAnalyzer{Client: &fakeClient{json: "not json"}}
	got, err := a.Analyze(ctx, "admin dashboard")
	require.NoError(t, err)
	assert.Equal(t, types.UITypeDashboard, got.UIType)

	a = &LLMAnalyzer{Client: &fakeClient{err: apperr.RateLimited(nil, "model rate limit exceeded")}}
	_, err = a.Analyze(ctx, "admin dashboard")
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))

	_, err = a.Analyze(ctx, "")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}
