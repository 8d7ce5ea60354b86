// Package job defines the generation job record and its state machine.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageAnalyze       StageName = "analyze"
	StageDesign        StageName = "design"
	StageGenerateCode  StageName = "generate_code"
	StageValidate      StageName = "validate"
	StageGenerateTests StageName = "generate_tests"
	StageDeploy        StageName = "deploy"
)

// Sequence returns the stages in execution order.
func Sequence() []StageName {
	return []StageName{
		StageAnalyze,
		StageDesign,
		StageGenerateCode,
		StageValidate,
		StageGenerateTests,
		StageDeploy,
	}
}

// ErrTerminal is returned when a change is attempted on a finished job.
var ErrTerminal = errors.New("job is in a terminal status")

// Options are the caller-supplied knobs of a job.
type Options struct {
	DeployTarget   string  `json:"deploy_target,omitempty"`
	CoverageTarget float64 `json:"coverage_target"`
	ComponentName  string  `json:"component_name,omitempty"`
}

// StageState tracks one stage of a job.
type StageState struct {
	Name       StageName   `json:"name"`
	Status     StageStatus `json:"status"`
	Attempts   int         `json:"attempts"`
	ErrorKind  string      `json:"error_kind,omitempty"`
	Error      string      `json:"error,omitempty"`
	// LastError is the message of the latest failed attempt. It survives
	// the next StartStage so a retry can see it.
	LastError  string      `json:"last_error,omitempty"`
	Warning    string      `json:"warning,omitempty"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// Job is one generation request and its accumulated state. Values handed
// out by a store are snapshots and must not be mutated.
type Job struct {
	ID           string                        `json:"id"`
	Prompt       string                        `json:"prompt"`
	Options      Options                       `json:"options"`
	Status       Status                        `json:"status"`
	Stages       []StageState                  `json:"stages"`
	CurrentStage StageName                     `json:"current_stage,omitempty"`
	Artifacts    map[StageName]json.RawMessage `json:"artifacts"`
	RetryCounts  map[StageName]int             `json:"retry_counts"`
	FailedStage  StageName                     `json:"failed_stage,omitempty"`
	FailureKind  string                        `json:"failure_kind,omitempty"`
	Error        string                        `json:"error,omitempty"`
	CreatedAt    time.Time                     `json:"created_at"`
	UpdatedAt    time.Time                     `json:"updated_at"`
	CompletedAt  *time.Time                    `json:"completed_at,omitempty"`
	Version      int64                         `json:"version"`
}

// New creates a queued job with every stage pending.
func New(id, prompt string, opts Options, now time.Time) *Job {
	seq := Sequence()
	stages := make([]StageState, 0, len(seq))
	for _, name := range seq {
		stages = append(stages, StageState{Name: name, Status: StagePending})
	}
	return &Job{
		ID:          id,
		Prompt:      prompt,
		Options:     opts,
		Status:      StatusQueued,
		Stages:      stages,
		Artifacts:   map[StageName]json.RawMessage{},
		RetryCounts: map[StageName]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Clone returns a deep copy.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Stages = make([]StageState, len(j.Stages))
	for i, s := range j.Stages {
		s.StartedAt = copyTime(s.StartedAt)
		s.FinishedAt = copyTime(s.FinishedAt)
		c.Stages[i] = s
	}
	c.Artifacts = make(map[StageName]json.RawMessage, len(j.Artifacts))
	for k, v := range j.Artifacts {
		c.Artifacts[k] = append(json.RawMessage(nil), v...)
	}
	c.RetryCounts = make(map[StageName]int, len(j.RetryCounts))
	for k, v := range j.RetryCounts {
		c.RetryCounts[k] = v
	}
	c.CompletedAt = copyTime(j.CompletedAt)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Terminal reports whether the job has finished.
func (j *Job) Terminal() bool {
	return j.Status.Terminal()
}

// Stage returns the state of a stage, or nil if the job has no such stage.
func (j *Job) Stage(name StageName) *StageState {
	for i := range j.Stages {
		if j.Stages[i].Name == name {
			return &j.Stages[i]
		}
	}
	return nil
}

// SetStatus moves the job to a new status. CompletedAt is set on the first
// terminal transition only.
func (j *Job) SetStatus(to Status, now time.Time) error {
	if j.Status == to {
		return nil
	}
	if err := ValidateTransition(j.Status, to); err != nil {
		if j.Status.Terminal() {
			return fmt.Errorf("%w: %v", ErrTerminal, err)
		}
		return err
	}
	j.Status = to
	j.UpdatedAt = now
	if to.Terminal() && j.CompletedAt == nil {
		t := now
		j.CompletedAt = &t
	}
	return nil
}

// StartStage marks a stage running and counts the attempt. Every earlier
// stage must already be succeeded or skipped.
func (j *Job) StartStage(name StageName, now time.Time) error {
	if j.Status != StatusInProgress {
		return fmt.Errorf("cannot start stage %s: job is %s", name, j.Status)
	}
	st, err := j.orderedStage(name)
	if err != nil {
		return err
	}
	if err := ValidateStageTransition(st.Status, StageRunning); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	st.Status = StageRunning
	st.Attempts++
	st.ErrorKind = ""
	st.Error = ""
	if st.StartedAt == nil {
		t := now
		st.StartedAt = &t
	}
	if st.Attempts > 1 {
		j.RetryCounts[name] = st.Attempts - 1
	}
	j.CurrentStage = name
	j.UpdatedAt = now
	return nil
}

// RecordAttemptError notes a failed attempt that will be retried.
func (j *Job) RecordAttemptError(name StageName, kind, msg string, now time.Time) error {
	st := j.Stage(name)
	if st == nil {
		return fmt.Errorf("unknown stage %s", name)
	}
	if st.Status != StageRunning {
		return fmt.Errorf("stage %s is %s, not running", name, st.Status)
	}
	st.ErrorKind = kind
	st.Error = msg
	st.LastError = msg
	j.UpdatedAt = now
	return nil
}

// CompleteStage stores the stage artifact and marks the stage succeeded.
// The artifact of a stage that was already running when the job was
// cancelled is still recorded.
func (j *Job) CompleteStage(name StageName, artifact json.RawMessage, now time.Time) error {
	st, err := j.finishStage(name, StageSucceeded, now)
	if err != nil {
		return err
	}
	st.ErrorKind = ""
	st.Error = ""
	st.LastError = ""
	j.Artifacts[name] = append(json.RawMessage(nil), artifact...)
	return nil
}

// FailStage marks a stage failed with a final error.
func (j *Job) FailStage(name StageName, kind, msg string, now time.Time) error {
	st, err := j.finishStage(name, StageFailed, now)
	if err != nil {
		return err
	}
	st.ErrorKind = kind
	st.Error = msg
	return nil
}

// SkipStage marks a stage skipped, optionally with a warning.
func (j *Job) SkipStage(name StageName, warning string, now time.Time) error {
	st, err := j.finishStage(name, StageSkipped, now)
	if err != nil {
		return err
	}
	st.Warning = warning
	return nil
}

func (j *Job) finishStage(name StageName, to StageStatus, now time.Time) (*StageState, error) {
	st := j.Stage(name)
	if st == nil {
		return nil, fmt.Errorf("unknown stage %s", name)
	}
	if err := ValidateStageTransition(st.Status, to); err != nil {
		return nil, fmt.Errorf("stage %s: %w", name, err)
	}
	st.Status = to
	t := now
	st.FinishedAt = &t
	j.UpdatedAt = now
	return st, nil
}

func (j *Job) orderedStage(name StageName) (*StageState, error) {
	for i := range j.Stages {
		st := &j.Stages[i]
		if st.Name == name {
			return st, nil
		}
		if !st.Status.Done() {
			return nil, fmt.Errorf("stage %s cannot start before %s is done (%s)", name, st.Name, st.Status)
		}
	}
	return nil, fmt.Errorf("unknown stage %s", name)
}

// Fail finalizes the job as failed at the given stage.
func (j *Job) Fail(stage StageName, kind, msg string, now time.Time) error {
	if err := j.SetStatus(StatusFailed, now); err != nil {
		return err
	}
	j.FailedStage = stage
	j.FailureKind = kind
	j.Error = msg
	return nil
}

// Artifact decodes the artifact of a stage into dst. It returns false when
// the stage has produced nothing.
func (j *Job) Artifact(name StageName, dst any) (bool, error) {
	raw, ok := j.Artifacts[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode %s artifact: %w", name, err)
	}
	return true, nil
}

// CheckInvariants verifies the terminal-status rules of a job.
func (j *Job) CheckInvariants() error {
	for i, st := range j.Stages {
		if st.Status == StageSucceeded {
			if _, ok := j.Artifacts[st.Name]; !ok {
				return fmt.Errorf("stage %s succeeded without an artifact", st.Name)
			}
		}
		if st.Status == StageRunning || st.Status == StageSucceeded || st.Status == StageFailed {
			for _, prev := range j.Stages[:i] {
				if !prev.Status.Done() {
					return fmt.Errorf("stage %s ran before %s was done", st.Name, prev.Name)
				}
			}
		}
	}
	switch j.Status {
	case StatusCompleted:
		for _, st := range j.Stages {
			if !st.Status.Done() {
				return fmt.Errorf("completed job has stage %s in %s", st.Name, st.Status)
			}
		}
	case StatusFailed:
		if j.FailedStage == "" {
			return errors.New("failed job has no failed stage")
		}
		if st := j.Stage(j.FailedStage); st == nil || st.Status != StageFailed {
			return fmt.Errorf("failed stage %s is not marked failed", j.FailedStage)
		}
	}
	if j.Status.Terminal() && j.CompletedAt == nil {
		return errors.New("terminal job has no completion time")
	}
	if !j.Status.Terminal() && j.CompletedAt != nil {
		return errors.New("non-terminal job has a completion time")
	}
	return nil
}
