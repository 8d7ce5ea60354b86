package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("codegen.json", "generate-component")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.ComponentName}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("codegen.json", "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() { MustGet("nonexistent.json", "some-key") })
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet("codegen.json", "guidelines"))
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"replaces", "Build {{.ComponentName}} in {{.Theme}}", map[string]string{"ComponentName": "Hero", "Theme": "dark"}, "Build Hero in dark"},
		{"repeated", "{{.A}}-{{.A}}", map[string]string{"A": "x"}, "x-x"},
		{"missing value stays", "Hello {{.Name}}", map[string]string{}, "Hello {{.Name}}"},
		{"no placeholders", "plain", map[string]string{"Key": "Value"}, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("codegen.json")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"generate-component", "guidelines", "retry-hint"}, keys)
}
