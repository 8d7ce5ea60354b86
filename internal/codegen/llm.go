package codegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/llm"
	"github.com/jonathan/ui-builder/internal/prompts"
	"github.com/jonathan/ui-builder/internal/types"
)

// LLMGenerator asks the language model for the component.
type LLMGenerator struct {
	Client llm.Client
	Tier   llm.ModelTier
}

func NewLLMGenerator(client llm.Client) *LLMGenerator {
	return &LLMGenerator{Client: client, Tier: llm.TierStandard}
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (*types.GeneratedCode, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	tier := g.Tier
	if req.Analysis != nil && req.Analysis.Complexity == "complex" {
		tier = llm.TierAdvanced
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}
	text, err := g.Client.GenerateContent(ctx, prompt, tier)
	if err != nil {
		return nil, err
	}
	source := llm.StripCodeFence(text)
	if source == "" || !strings.Contains(source, "<") {
		return nil, apperr.InvalidInput("model output contains no markup")
	}
	return &types.GeneratedCode{
		ComponentName: req.ComponentName,
		ComponentType: "react",
		Source:        source + "\n",
		Generator:     GeneratorGemini,
	}, nil
}

// BuildPrompt renders the codegen prompt for req.
func BuildPrompt(req Request) (string, error) {
	tmpl, err := prompts.Get("codegen.json", "generate-component")
	if err != nil {
		return "", apperr.Internal(err, "codegen prompt missing")
	}
	guidelines, err := prompts.Get("codegen.json", "guidelines")
	if err != nil {
		return "", apperr.Internal(err, "codegen guidelines missing")
	}
	if req.Hint != "" {
		hint, err := prompts.Get("codegen.json", "retry-hint")
		if err != nil {
			return "", apperr.Internal(err, "codegen retry hint missing")
		}
		guidelines += "\n\n" + prompts.Format(hint, map[string]string{"Problems": req.Hint})
	}

	var sections strings.Builder
	for i, s := range req.Wireframe.Sections {
		fmt.Fprintf(&sections, "%d. %s (%s)", i+1, s.Name, s.Component)
		if s.Description != "" {
			sections.WriteString(": " + s.Description)
		}
		sections.WriteString("\n")
	}
	return prompts.Format(tmpl, map[string]string{
		"ComponentName": req.ComponentName,
		"Prompt":        strings.TrimSpace(req.Prompt),
		"Sections":      strings.TrimRight(sections.String(), "\n"),
		"Layout":        orDefault(req.Wireframe.Layout, "single_column"),
		"Theme":         orDefault(req.Wireframe.Theme, "light"),
		"ColorScheme":   orDefault(req.Wireframe.ColorScheme, "blue"),
		"Guidelines":    guidelines,
	}), nil
}
