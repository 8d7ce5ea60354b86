// Package steps provides stage definitions, dependency validation and the
// stage implementations of the generation pipeline.
package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/job"
)

// Stage categories.
const (
	CategoryPlanning   = "planning"
	CategoryGeneration = "generation"
	CategoryQuality    = "quality"
	CategoryDelivery   = "delivery"
)

// StageDefinition defines metadata for a pipeline stage
type StageDefinition struct {
	Name         job.StageName
	Category     string
	Dependencies []job.StageName
	// Optional stages run only when the job asks for them.
	Optional bool
}

// Stage is one unit of the pipeline. Run must be safe to call again after
// a failed attempt and must not touch state other than its return value.
type Stage interface {
	Name() job.StageName
	Run(ctx context.Context, in *Input) (any, error)
}

// Input is what a stage sees of its job: the request and a read-only view of
// earlier artifacts.
type Input struct {
	JobID   string
	Prompt  string
	Options job.Options
	Attempt int
	// LastError is the message of the previous failed attempt of this stage.
	LastError string

	artifacts map[job.StageName]json.RawMessage
}

// NewInput builds the input of a stage from a job snapshot.
func NewInput(j *job.Job, stage job.StageName) *Input {
	in := &Input{
		JobID:     j.ID,
		Prompt:    j.Prompt,
		Options:   j.Options,
		artifacts: make(map[job.StageName]json.RawMessage, len(j.Artifacts)),
	}
	for k, v := range j.Artifacts {
		in.artifacts[k] = v
	}
	if st := j.Stage(stage); st != nil {
		in.Attempt = st.Attempts
		in.LastError = st.LastError
	}
	return in
}

// Artifact decodes the artifact of an earlier stage into dst.
func (in *Input) Artifact(name job.StageName, dst any) error {
	raw, ok := in.artifacts[name]
	if !ok {
		return apperr.InvalidInput("%s artifact is missing", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, err, "%s artifact is malformed", name)
	}
	return nil
}

// StageRegistry holds all stage definitions
var StageRegistry = map[job.StageName]StageDefinition{
	job.StageAnalyze: {
		Name:     job.StageAnalyze,
		Category: CategoryPlanning,
	},
	job.StageDesign: {
		Name:         job.StageDesign,
		Category:     CategoryPlanning,
		Dependencies: []job.StageName{job.StageAnalyze},
	},
	job.StageGenerateCode: {
		Name:         job.StageGenerateCode,
		Category:     CategoryGeneration,
		Dependencies: []job.StageName{job.StageAnalyze, job.StageDesign},
	},
	job.StageValidate: {
		Name:         job.StageValidate,
		Category:     CategoryQuality,
		Dependencies: []job.StageName{job.StageGenerateCode},
	},
	job.StageGenerateTests: {
		Name:         job.StageGenerateTests,
		Category:     CategoryQuality,
		Dependencies: []job.StageName{job.StageGenerateCode},
	},
	job.StageDeploy: {
		Name:         job.StageDeploy,
		Category:     CategoryDelivery,
		Dependencies: []job.StageName{job.StageGenerateCode, job.StageGenerateTests},
		Optional:     true,
	},
}

// Definitions returns the stage definitions in pipeline order.
func Definitions() []StageDefinition {
	seq := job.Sequence()
	out := make([]StageDefinition, 0, len(seq))
	for _, name := range seq {
		out = append(out, StageRegistry[name])
	}
	return out
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Stage               job.StageName
	MissingDependencies []job.StageName
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s: missing dependencies: %v", e.Stage, e.MissingDependencies)
}

// ValidateDependencies checks that every dependency of a stage has
// succeeded on the job.
func ValidateDependencies(j *job.Job, name job.StageName) error {
	def, ok := StageRegistry[name]
	if !ok {
		return fmt.Errorf("unknown stage: %s", name)
	}

	var missing []job.StageName
	for _, dep := range def.Dependencies {
		st := j.Stage(dep)
		if st == nil || st.Status != job.StageSucceeded {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Stage: name, MissingDependencies: missing}
	}
	return nil
}

// Skipped reports whether an optional stage has nothing to do for the job.
func Skipped(j *job.Job, name job.StageName) bool {
	def, ok := StageRegistry[name]
	if !ok || !def.Optional {
		return false
	}
	switch name {
	case job.StageDeploy:
		return j.Options.DeployTarget == ""
	}
	return false
}
