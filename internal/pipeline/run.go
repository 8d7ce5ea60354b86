package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/pipeline/steps"
	"github.com/jonathan/ui-builder/internal/types"
)

// errStopped means the job left in_progress (cancelled) before the next
// stage could be committed as running.
var errStopped = errors.New("job is no longer in progress")

// run executes one job. waitCtx is cancelled by Cancel and Shutdown and only
// interrupts waits (slot acquisition, backoff), never a running stage.
func (o *Orchestrator) run(waitCtx context.Context, id string) {
	defer o.wg.Done()
	defer o.forget(id)
	log := o.log.With(logger.JobID(id))

	acquired := o.sem.Acquire(waitCtx, 1) == nil
	o.m.JobsQueued.Dec()
	if !o.dequeue(id) || !acquired {
		if acquired {
			o.sem.Release(1)
		}
		o.abandonQueued(id, log)
		o.finish(id, log)
		return
	}
	o.m.JobsInFlight.Inc()
	defer func() {
		o.m.JobsInFlight.Dec()
		o.sem.Release(1)
	}()

	j, err := o.update(id, func(j *job.Job) error {
		return j.SetStatus(job.StatusInProgress, o.opts.Now())
	})
	if err != nil {
		log.Info("job not started", logger.Error(err))
		o.finish(id, log)
		return
	}
	o.emit(j, "", "started")

	for _, name := range job.Sequence() {
		if !o.runStage(waitCtx, id, name, log) {
			o.finish(id, log)
			return
		}
	}

	j, err = o.update(id, func(j *job.Job) error {
		if j.Status != job.StatusInProgress {
			return errStopped
		}
		return j.SetStatus(job.StatusCompleted, o.opts.Now())
	})
	if err == nil {
		o.emit(j, "", "completed")
	}
	o.finish(id, log)
}

// runStage drives one stage to a final state. It returns false when the
// job must not continue.
func (o *Orchestrator) runStage(waitCtx context.Context, id string, name job.StageName, log logger.Logger) bool {
	log = log.With(logger.Stage(string(name)))
	stage, registered := o.stages[name]

	skipped := false
	j, err := o.update(id, func(j *job.Job) error {
		skipped = false
		if j.Status != job.StatusInProgress {
			return errStopped
		}
		if !registered || steps.Skipped(j, name) {
			skipped = true
			warning := ""
			if !registered && !steps.Skipped(j, name) {
				warning = "no implementation configured for this stage"
			}
			return j.SkipStage(name, warning, o.opts.Now())
		}
		if err := steps.ValidateDependencies(j, name); err != nil {
			return err
		}
		return j.StartStage(name, o.opts.Now())
	})
	switch {
	case errors.Is(err, errStopped):
		log.Info("job stopped before stage start")
		return false
	case err != nil:
		o.failJob(id, name, apperr.Internal(err, "cannot start stage"), log)
		return false
	case skipped:
		log.Info("stage skipped")
		o.emit(j, name, "skipped")
		return true
	}

	attempts := o.attempts(name)
	for {
		attempt := j.Stage(name).Attempts
		alog := log.With(logger.Attempt(attempt))
		alog.Info("stage started")
		o.emit(j, name, "running")

		started := time.Now()
		out, runErr := o.invoke(stage, steps.NewInput(j, name))
		o.m.StageDuration.WithLabelValues(string(name)).Observe(time.Since(started).Seconds())

		if runErr == nil {
			raw, err := json.Marshal(out)
			if err != nil {
				runErr = apperr.Internal(err, "failed to encode %s artifact", name)
			} else {
				j, err = o.update(id, func(j *job.Job) error {
					return j.CompleteStage(name, raw, o.opts.Now())
				})
				if err != nil {
					o.failJob(id, name, apperr.Internal(err, "cannot commit stage result"), alog)
					return false
				}
				o.m.StageAttempts.WithLabelValues(string(name), "succeeded").Inc()
				o.observe(out)
				alog.Info("stage succeeded", logger.Duration("duration", time.Since(started)))
				o.emit(j, name, "succeeded")
				return true
			}
		}

		kind := apperr.KindOf(runErr)
		o.m.StageAttempts.WithLabelValues(string(name), "failed").Inc()

		if apperr.Retryable(runErr) && attempt < attempts {
			alog.Warn("stage attempt failed, retrying", logger.String("error_kind", string(kind)), logger.Error(runErr))
			if _, err := o.update(id, func(j *job.Job) error {
				return j.RecordAttemptError(name, string(kind), runErr.Error(), o.opts.Now())
			}); err != nil {
				alog.Error("failed to record attempt error", logger.Error(err))
			}
			if err := sleep(waitCtx, o.opts.Retry.Backoff(attempt)); err != nil {
				return o.interrupted(id, name, runErr, alog)
			}
			j, err = o.update(id, func(j *job.Job) error {
				if j.Status != job.StatusInProgress {
					return errStopped
				}
				return j.StartStage(name, o.opts.Now())
			})
			if err != nil {
				return o.interrupted(id, name, runErr, alog)
			}
			continue
		}

		if name == job.StageDeploy && apperr.Retryable(runErr) {
			warning := fmt.Sprintf("deployment skipped after %d attempts: %v", attempt, runErr)
			j, err := o.update(id, func(j *job.Job) error {
				st := j.Stage(name)
				st.ErrorKind = string(kind)
				st.Error = runErr.Error()
				return j.SkipStage(name, warning, o.opts.Now())
			})
			if err != nil {
				o.failJob(id, name, apperr.Internal(err, "cannot commit skipped stage"), alog)
				return false
			}
			alog.Warn("deployment unavailable, stage skipped", logger.Error(runErr))
			o.emit(j, name, "skipped")
			return true
		}

		alog.Error("stage failed", logger.String("error_kind", string(kind)), logger.Error(runErr))
		o.failJob(id, name, runErr, alog)
		return false
	}
}

// invoke runs a stage attempt under the stage timeout. A timeout counts as
// an unavailable provider; a panic as an internal error.
func (o *Orchestrator) invoke(stage steps.Stage, in *steps.Input) (out any, err error) {
	ctx, cancel := context.WithTimeout(o.baseCtx, o.opts.StageTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, apperr.Internal(nil, "stage %s panicked: %v", stage.Name(), r)
		}
	}()

	out, err = stage.Run(ctx, in)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, apperr.ProviderUnavailable(err, "stage %s timed out after %s", stage.Name(), o.opts.StageTimeout)
	}
	return out, err
}

func (o *Orchestrator) attempts(name job.StageName) int {
	if n, ok := o.opts.StageRetries[name]; ok {
		return RetryPolicy{MaxRetries: n}.Attempts()
	}
	return o.opts.Retry.Attempts()
}

// interrupted closes a stage whose retry was cut short by cancellation or
// shutdown.
func (o *Orchestrator) interrupted(id string, name job.StageName, last error, log logger.Logger) bool {
	reason := "job cancelled before retry"
	if o.baseCtx.Err() != nil {
		reason = "orchestrator shut down before retry"
	}
	log.Info("stage retry abandoned", logger.String("reason", reason))
	o.failJob(id, name, apperr.Wrap(apperr.KindOf(last), last, "%s", reason), log)
	return false
}

// failJob marks the stage failed and, unless the job was already cancelled,
// the job as well. Earlier artifacts are kept.
func (o *Orchestrator) failJob(id string, name job.StageName, cause error, log logger.Logger) {
	kind := string(apperr.KindOf(cause))
	j, err := o.update(id, func(j *job.Job) error {
		now := o.opts.Now()
		if st := j.Stage(name); st != nil && !st.Status.Final() {
			if err := j.FailStage(name, kind, cause.Error(), now); err != nil {
				return err
			}
		}
		if j.Status == job.StatusInProgress {
			return j.Fail(name, kind, cause.Error(), now)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to record job failure", logger.Error(err))
		return
	}
	o.emit(j, name, "failed")
}

// abandonQueued cancels a job that never got a worker slot, either because
// Cancel already ended it or because the orchestrator is shutting down.
func (o *Orchestrator) abandonQueued(id string, log logger.Logger) {
	j, err := o.update(id, func(j *job.Job) error {
		if j.Terminal() {
			return errStopped
		}
		return j.SetStatus(job.StatusCancelled, o.opts.Now())
	})
	if err == nil {
		log.Info("queued job cancelled by shutdown")
		o.emit(j, "", "cancelled")
	}
}

// finish records metrics and history for the job's final state.
func (o *Orchestrator) finish(id string, log logger.Logger) {
	j, err := o.opts.Store.Get(context.Background(), id)
	if err != nil {
		log.Error("failed to load finished job", logger.Error(err))
		return
	}
	o.m.JobsTerminal.WithLabelValues(string(j.Status)).Inc()
	log.Info("job finished", logger.String("status", string(j.Status)))

	if j.Status != job.StatusCompleted && j.Status != job.StatusFailed {
		return
	}
	entry := historyEntry(j)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.opts.History.Append(ctx, entry); err != nil {
		log.Warn("failed to append history entry", logger.Error(err))
	}
}

func (o *Orchestrator) forget(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
		delete(o.cancels, id)
	}
}

// update commits a change outside any caller context so a departing HTTP
// request never aborts a worker's commit.
func (o *Orchestrator) update(id string, fn func(*job.Job) error) (*job.Job, error) {
	return o.opts.Store.Update(context.Background(), id, fn)
}

func (o *Orchestrator) observe(out any) {
	switch v := out.(type) {
	case *types.ValidationReport:
		o.m.ValidationScore.Observe(v.OverallScore())
	case *types.TestSuiteReport:
		o.m.CoverageEstimate.Observe(v.CoverageEstimate)
	}
}

// historyEntry summarizes a finished job.
func historyEntry(j *job.Job) *types.HistoryEntry {
	e := &types.HistoryEntry{
		JobID:     j.ID,
		Prompt:    j.Prompt,
		Category:  types.UITypeGeneral,
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt,
		ResultSummary: types.ResultSummary{
			FailedStage: string(j.FailedStage),
			FailureKind: j.FailureKind,
			Artifacts:   []string{},
		},
	}
	if j.CompletedAt != nil {
		e.GenerationSeconds = j.CompletedAt.Sub(j.CreatedAt).Seconds()
	}
	for _, name := range job.Sequence() {
		if _, ok := j.Artifacts[name]; ok {
			e.ResultSummary.Artifacts = append(e.ResultSummary.Artifacts, string(name))
		}
	}

	var a types.PromptAnalysis
	if ok, err := j.Artifact(job.StageAnalyze, &a); ok && err == nil {
		if a.UIType != "" {
			e.Category = a.UIType
		}
		if len(a.Keywords) > 0 {
			e.Tags = a.Keywords
		}
	}
	var code types.GeneratedCode
	if ok, err := j.Artifact(job.StageGenerateCode, &code); ok && err == nil {
		e.ResultSummary.ComponentName = code.ComponentName
	}
	var report types.ValidationReport
	if ok, err := j.Artifact(job.StageValidate, &report); ok && err == nil {
		score := report.OverallScore()
		e.ResultSummary.OverallScore = &score
	}
	var suite types.TestSuiteReport
	if ok, err := j.Artifact(job.StageGenerateTests, &suite); ok && err == nil {
		coverage := suite.CoverageEstimate
		e.ResultSummary.CoverageEstimate = &coverage
	}
	var dep types.DeploymentResult
	if ok, err := j.Artifact(job.StageDeploy, &dep); ok && err == nil {
		e.ResultSummary.DeploymentURL = dep.URL
	}
	return e
}
