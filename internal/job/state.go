package job

import "fmt"

// Status is the job-level lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// StageStatus is the state of one stage within a job.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// Done reports whether a stage lets its successor start.
func (s StageStatus) Done() bool {
	return s == StageSucceeded || s == StageSkipped
}

// Final reports whether the stage will not run again.
func (s StageStatus) Final() bool {
	return s == StageSucceeded || s == StageSkipped || s == StageFailed
}

// ValidateTransition checks a job status transition.
func ValidateTransition(from, to Status) error {
	validTransitions := map[Status][]Status{
		StatusQueued: {
			StatusInProgress, // worker slot acquired
			StatusCancelled,  // cancelled before any stage started
		},
		StatusInProgress: {
			StatusCompleted,
			StatusFailed,
			StatusCancelled,
		},
		StatusCompleted: {},
		StatusFailed:    {},
		StatusCancelled: {},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source status: %s", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid status transition from %s to %s", from, to)
}

// ValidateStageTransition checks a stage status transition. Running to
// running is a retry; pending to failed is a stage that could not start.
func ValidateStageTransition(from, to StageStatus) error {
	validTransitions := map[StageStatus][]StageStatus{
		StagePending:   {StageRunning, StageSkipped, StageFailed},
		StageRunning:   {StageRunning, StageSucceeded, StageFailed, StageSkipped},
		StageSucceeded: {},
		StageFailed:    {},
		StageSkipped:   {},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source stage status: %s", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid stage transition from %s to %s", from, to)
}
