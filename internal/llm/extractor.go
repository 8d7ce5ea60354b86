package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema describes a JSON document the model should produce from
// input text.
type ExtractionSchema struct {
	Name        string
	Description string
	Fields      []SchemaField
}

// SchemaField is one key of the expected JSON output.
type SchemaField struct {
	Name        string
	Type        string // type hint shown to the model, e.g. "string" or ["string"]
	Description string
	Required    bool
}

// BuildExtractionPrompt renders schema and inputText into a single prompt.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder
	sb.WriteString(schema.Description)
	sb.WriteString("\n\nReturn ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		fmt.Fprintf(&sb, "  %q: %s", field.Name, typeHint)
		if field.Required {
			sb.WriteString(" (required)")
		}
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\nReturn ONLY the JSON object, no markdown, no explanation.\n\n")
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")
	return sb.String()
}

// PromptAnalysisSchema extracts UI intent from a generation prompt.
func PromptAnalysisSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "PromptAnalysis",
		Description: `You are a UI requirements analyst. Read a request for a web interface and classify it.
Use only the listed values where a field enumerates them.`,
		Fields: []SchemaField{
			{Name: "ui_type", Type: `"landing_page" | "dashboard" | "form" | "general"`, Required: true},
			{Name: "components", Type: `["string"]`, Description: "UI building blocks mentioned or implied, lowercase (e.g. navbar, hero, card, chart, form, table, footer)", Required: true},
			{Name: "layout", Type: `"single_column" | "sidebar" | "grid"`, Required: true},
			{Name: "theme", Type: `"light" | "dark"`, Required: true},
			{Name: "color_scheme", Type: `"string"`, Description: "dominant color name, or \"blue\" when none is given"},
			{Name: "complexity", Type: `"simple" | "moderate" | "complex"`, Required: true},
		},
	}
}
