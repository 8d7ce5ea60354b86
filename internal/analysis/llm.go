package analysis

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/jonathan/ui-builder/internal/llm"
	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/types"
)

// LLMAnalyzer asks the model to classify the prompt and fills gaps from
// the keyword rules. Transport failures are returned so the caller can
// retry; unusable model output falls back to the rules.
type LLMAnalyzer struct {
	Client llm.Client
	Log    logger.Logger
}

var (
	validLayouts    = []string{LayoutSingleColumn, LayoutSidebar, LayoutGrid}
	validThemes     = []string{ThemeLight, ThemeDark}
	validUITypes    = []string{types.UITypeLandingPage, types.UITypeDashboard, types.UITypeForm, types.UITypeGeneral}
	validComplexity = []string{ComplexitySimple, ComplexityModerate, ComplexityComplex}
)

func (a *LLMAnalyzer) Analyze(ctx context.Context, prompt string) (*types.PromptAnalysis, error) {
	base, err := Analyze(prompt)
	if err != nil {
		return nil, err
	}
	raw, err := a.Client.GenerateJSON(ctx, llm.BuildExtractionPrompt(llm.PromptAnalysisSchema(), prompt), llm.TierLite)
	if err != nil {
		return nil, err
	}

	var out types.PromptAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		a.log().Warn("model analysis unparseable, using keyword rules", logger.Error(err))
		return base, nil
	}
	return merge(base, &out), nil
}

func (a *LLMAnalyzer) log() logger.Logger {
	if a.Log == nil {
		return logger.NewNop()
	}
	return a.Log
}

// merge keeps model values that are within the known vocabularies.
// Keywords always come from the prompt itself.
func merge(base, model *types.PromptAnalysis) *types.PromptAnalysis {
	out := *base
	if slices.Contains(validUITypes, model.UIType) {
		out.UIType = model.UIType
	}
	if slices.Contains(validLayouts, model.Layout) {
		out.Layout = model.Layout
	}
	if slices.Contains(validThemes, model.Theme) {
		out.Theme = model.Theme
	}
	if model.ColorScheme != "" {
		out.ColorScheme = model.ColorScheme
	}
	if slices.Contains(validComplexity, model.Complexity) {
		out.Complexity = model.Complexity
	}
	var comps []string
	for _, c := range model.Components {
		if c != "" && !slices.Contains(comps, c) {
			comps = append(comps, c)
		}
	}
	if len(comps) > 0 {
		out.Components = comps
	}
	return &out
}
