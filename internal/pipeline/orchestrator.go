// Package pipeline drives generation jobs through the stage sequence.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/history"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/jobstore"
	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/metrics"
	"github.com/jonathan/ui-builder/internal/pipeline/steps"
	"github.com/jonathan/ui-builder/internal/types"
)

// Coverage target bounds accepted at submission.
const (
	DefaultCoverageTarget = 0.9
	MinCoverageTarget     = 0.6
	MaxCoverageTarget     = 1.0
)

// ErrShuttingDown is returned by Submit after Shutdown has begun.
var ErrShuttingDown = apperr.New(apperr.KindProviderUnavailable, "orchestrator is shutting down")

// ProgressEvent represents a committed change of a job.
type ProgressEvent struct {
	JobID   string        `json:"job_id"`
	Stage   job.StageName `json:"stage,omitempty"`
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Version int64         `json:"version"`
}

// ProgressCallback is called after each committed transition. It runs on
// the job's worker and must not block.
type ProgressCallback func(event ProgressEvent)

// TargetValidator knows the deployable targets.
type TargetValidator interface {
	Validate(target string) error
}

// Options configures an Orchestrator.
type Options struct {
	Stages  []steps.Stage
	Store   jobstore.Store
	History history.Store
	Targets TargetValidator

	MaxInFlight int
	Retry       RetryPolicy
	// StageRetries overrides Retry.MaxRetries per stage.
	StageRetries          map[job.StageName]int
	StageTimeout          time.Duration
	DefaultCoverageTarget float64

	Metrics    *metrics.Metrics
	Log        logger.Logger
	OnProgress ProgressCallback
	Now        func() time.Time
}

// SubmitRequest is a validated caller request.
type SubmitRequest struct {
	Prompt         string
	DeployTarget   string
	CoverageTarget *float64
	ComponentName  string
}

// HistoryQuery selects history entries. SimilarTo switches to similarity
// mode and ignores every filter except Limit.
type HistoryQuery struct {
	Filter    types.HistoryFilter
	SimilarTo string
}

// Orchestrator owns job execution. Each job runs on one goroutine; at most
// MaxInFlight jobs hold a worker slot at a time and the rest stay queued.
type Orchestrator struct {
	opts   Options
	stages map[job.StageName]steps.Stage
	sem    *semaphore.Weighted
	log    logger.Logger
	m      *metrics.Metrics

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	cancels map[string]context.CancelFunc
	// queued holds jobs still waiting for a worker slot.
	queued map[string]struct{}
}

// New creates an orchestrator. Missing collaborators get in-memory defaults.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		opts.Store = jobstore.NewMemoryStore()
	}
	if opts.History == nil {
		opts.History = history.NewMemoryStore()
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 4
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 2 * time.Minute
	}
	if opts.DefaultCoverageTarget == 0 {
		opts.DefaultCoverageTarget = DefaultCoverageTarget
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	stages := make(map[job.StageName]steps.Stage, len(opts.Stages))
	for _, s := range opts.Stages {
		stages[s.Name()] = s
	}
	for _, name := range job.Sequence() {
		if _, ok := stages[name]; !ok && !steps.StageRegistry[name].Optional {
			return nil, apperr.Internal(nil, "no implementation for stage %s", name)
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		opts:    opts,
		stages:  stages,
		sem:     semaphore.NewWeighted(int64(opts.MaxInFlight)),
		log:     opts.Log,
		m:       opts.Metrics,
		baseCtx: ctx,
		stop:    stop,
		cancels: map[string]context.CancelFunc{},
		queued:  map[string]struct{}{},
	}, nil
}

// Submit validates the request, records a queued job and starts it in the
// background. It never waits on stage work.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", apperr.InvalidRequest("prompt is required")
	}
	target := strings.TrimSpace(req.DeployTarget)
	if target != "" {
		if _, ok := o.stages[job.StageDeploy]; !ok || o.opts.Targets == nil {
			return "", apperr.InvalidRequest("deployment is not configured")
		}
		if err := o.opts.Targets.Validate(target); err != nil {
			return "", apperr.Wrap(apperr.KindInvalidRequest, err, "unknown deploy target %q", target)
		}
	}
	coverage := o.opts.DefaultCoverageTarget
	if req.CoverageTarget != nil {
		coverage = *req.CoverageTarget
	}
	if coverage < MinCoverageTarget || coverage > MaxCoverageTarget {
		return "", apperr.InvalidRequest("coverage target %.2f outside [%.1f, %.1f]", coverage, MinCoverageTarget, MaxCoverageTarget)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return "", ErrShuttingDown
	}

	j := job.New(uuid.NewString(), prompt, job.Options{
		DeployTarget:   target,
		CoverageTarget: coverage,
		ComponentName:  strings.TrimSpace(req.ComponentName),
	}, o.opts.Now())
	if err := o.opts.Store.Create(ctx, j); err != nil {
		return "", err
	}
	o.m.JobsSubmitted.Inc()
	o.m.JobsQueued.Inc()
	o.log.Info("job submitted", logger.JobID(j.ID), logger.String("deploy_target", target))

	waitCtx, cancel := context.WithCancel(o.baseCtx)
	o.cancels[j.ID] = cancel
	o.queued[j.ID] = struct{}{}
	o.wg.Add(1)
	go o.run(waitCtx, j.ID)
	return j.ID, nil
}

// GetStatus returns the last committed snapshot of a job.
func (o *Orchestrator) GetStatus(ctx context.Context, id string) (*job.Job, error) {
	return o.opts.Store.Get(ctx, id)
}

// ListJobs returns recent jobs, newest first.
func (o *Orchestrator) ListJobs(ctx context.Context, limit int) ([]*job.Job, error) {
	return o.opts.Store.List(ctx, limit)
}

// Cancel stops a queued or running job at the next stage boundary. A stage
// already running is allowed to finish. Cancelling a finished job returns
// it unchanged.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*job.Job, error) {
	current, err := o.opts.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Terminal() {
		return current, nil
	}
	j, err := o.opts.Store.Update(ctx, id, func(j *job.Job) error {
		if j.Terminal() {
			return errAlreadyTerminal
		}
		return j.SetStatus(job.StatusCancelled, o.opts.Now())
	})
	if errors.Is(err, errAlreadyTerminal) {
		return o.opts.Store.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
	}
	o.mu.Unlock()

	o.log.Info("job cancelled", logger.JobID(id), logger.String("current_stage", string(j.CurrentStage)))
	o.emit(j, "", "cancelled")
	return j, nil
}

var errAlreadyTerminal = errors.New("job already terminal")

// ListHistory lists history entries or, in similarity mode, the entries
// most similar to a draft prompt.
func (o *Orchestrator) ListHistory(ctx context.Context, q HistoryQuery) ([]types.HistoryEntry, error) {
	if strings.TrimSpace(q.SimilarTo) != "" {
		return o.opts.History.FindSimilar(ctx, q.SimilarTo, q.Filter.Limit)
	}
	return o.opts.History.List(ctx, q.Filter)
}

// Suggestions returns past entries similar to a draft prompt.
func (o *Orchestrator) Suggestions(ctx context.Context, draft string, limit int) ([]types.HistoryEntry, error) {
	if strings.TrimSpace(draft) == "" {
		return []types.HistoryEntry{}, nil
	}
	return o.opts.History.FindSimilar(ctx, draft, limit)
}

// History exposes the history store.
func (o *Orchestrator) History() history.Store {
	return o.opts.History
}

// Shutdown stops accepting jobs, cancels the ones still queued and waits
// for running ones. When ctx ends first, the contexts of in-flight stages
// are cancelled and Shutdown returns without waiting further.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	for id := range o.queued {
		o.cancels[id]()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		o.stop()
		return nil
	case <-ctx.Done():
		o.stop()
		return ctx.Err()
	}
}

// dequeue records that a job got its worker slot. It reports false when
// the orchestrator is shutting down and the job must not start.
func (o *Orchestrator) dequeue(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.queued, id)
	return !o.closed
}

func (o *Orchestrator) emit(j *job.Job, stage job.StageName, msg string) {
	if o.opts.OnProgress == nil {
		return
	}
	o.opts.OnProgress(ProgressEvent{
		JobID:   j.ID,
		Stage:   stage,
		Status:  string(j.Status),
		Message: msg,
		Version: j.Version,
	})
}
