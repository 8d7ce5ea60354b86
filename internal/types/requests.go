package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SubmitJobRequest is the body of a job submission.
type SubmitJobRequest struct {
	Prompt         string   `json:"prompt" validate:"required,max=4000"`
	DeployTarget   string   `json:"deploy_target,omitempty" validate:"omitempty,max=64"`
	CoverageTarget *float64 `json:"coverage_target,omitempty" validate:"omitempty,gte=0.6,lte=1"`
	ComponentName  string   `json:"component_name,omitempty" validate:"omitempty,alphanum,max=64"`
}

// Validate trims the prompt and validates the request.
func (r *SubmitJobRequest) Validate() error {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.DeployTarget = strings.TrimSpace(r.DeployTarget)
	return validate.Struct(r)
}

// ValidateCodeRequest asks for a validation report.
type ValidateCodeRequest struct {
	Source        string `json:"source" validate:"required"`
	ComponentType string `json:"component_type,omitempty" validate:"omitempty,oneof=react html"`
}

// Validate validates the ValidateCodeRequest using the validator.
func (r *ValidateCodeRequest) Validate() error {
	return validate.Struct(r)
}

// ApplyFixesRequest asks for auto-fixes to be applied to source.
type ApplyFixesRequest struct {
	Source        string   `json:"source" validate:"required"`
	ComponentType string   `json:"component_type,omitempty" validate:"omitempty,oneof=react html"`
	Rules         []string `json:"rules,omitempty" validate:"omitempty,dive,required"`
}

// Validate validates the ApplyFixesRequest using the validator.
func (r *ApplyFixesRequest) Validate() error {
	return validate.Struct(r)
}

// GenerateTestsRequest asks for a generated test suite.
type GenerateTestsRequest struct {
	Source         string     `json:"source" validate:"required"`
	ComponentName  string     `json:"component_name,omitempty" validate:"omitempty,alphanum,max=64"`
	TestTypes      []TestType `json:"test_types,omitempty" validate:"omitempty,dive,oneof=unit integration accessibility"`
	CoverageTarget *float64   `json:"coverage_target,omitempty" validate:"omitempty,gte=0.6,lte=1"`
}

// Validate validates the GenerateTestsRequest using the validator.
func (r *GenerateTestsRequest) Validate() error {
	return validate.Struct(r)
}

// ApplyTemplateRequest fills a prompt template.
type ApplyTemplateRequest struct {
	Values map[string]string `json:"values" validate:"required"`
}

// Validate validates the ApplyTemplateRequest using the validator.
func (r *ApplyTemplateRequest) Validate() error {
	return validate.Struct(r)
}
