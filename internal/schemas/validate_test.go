package schemas

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jonathan/ui-builder/internal/types"
	artifactschemas "github.com/jonathan/ui-builder/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSchemaFiles_Compile(t *testing.T) {
	for stage, name := range stageSchemas {
		t.Run(stage, func(t *testing.T) {
			raw, err := artifactschemas.FS.ReadFile(name)
			require.NoError(t, err)
			assert.True(t, json.Valid(raw), "schema should be valid JSON")

			_, err = load(name)
			assert.NoError(t, err)
		})
	}
}

func TestValidateArtifact_ValidationReport(t *testing.T) {
	report := types.ValidationReport{
		CategoryScores: types.CategoryScores{Accessibility: 8, Performance: 10, CodeQuality: 9.5},
		Issues: []types.Issue{{
			Category: types.CategoryAccessibility,
			Rule:     "alt_text_missing",
			Message:  "Image missing alt text",
			Severity: types.SeverityHigh,
		}},
	}
	doc, err := json.Marshal(report)
	require.NoError(t, err)

	assert.NoError(t, ValidateArtifact("validate", doc))
}

func TestValidateArtifact_RejectsOutOfRangeScore(t *testing.T) {
	doc := []byte(`{"category_scores":{"accessibility":12,"performance":10,"code_quality":10},"overall_score":10,"issues":[]}`)

	err := ValidateArtifact("validate", doc)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "validation_report.schema.json", validationErr.Schema)
	assert.NotEmpty(t, validationErr.Errors)
}

func TestValidateArtifact_TestSuiteLabel(t *testing.T) {
	doc := []byte(`{"files":[],"test_count":0,"coverage_estimate":0.7,"coverage_label":"measured"}`)
	assert.Error(t, ValidateArtifact("generate_tests", doc))

	doc = []byte(`{"files":[],"test_count":0,"coverage_estimate":0.7,"coverage_label":"estimated"}`)
	assert.NoError(t, ValidateArtifact("generate_tests", doc))
}

func TestValidateArtifact_UnknownStageAccepted(t *testing.T) {
	assert.NoError(t, ValidateArtifact("custom", []byte(`{"anything":true}`)))
	_, ok := SchemaFor("custom")
	assert.False(t, ok)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name":"ok"}`))

	err := ValidateJSONString(schema, `{"name":1}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	err = ValidateJSONString(`{"type":`, `{}`)
	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}
