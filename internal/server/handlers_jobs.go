package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/pipeline"
	"github.com/jonathan/ui-builder/internal/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// JobResponse is returned by submission and cancellation.
type JobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobSummary is one row of GET /jobs.
type JobSummary struct {
	ID           string        `json:"id"`
	Prompt       string        `json:"prompt"`
	Status       job.Status    `json:"status"`
	CurrentStage job.StageName `json:"current_stage,omitempty"`
	DeployTarget string        `json:"deploy_target,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// handleSubmitJob queues a generation job and returns without waiting.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitJobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	id, err := s.orch.Submit(r.Context(), pipeline.SubmitRequest{
		Prompt:         req.Prompt,
		DeployTarget:   req.DeployTarget,
		CoverageTarget: req.CoverageTarget,
		ComponentName:  req.ComponentName,
	})
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	w.Header().Set("Location", "/jobs/"+id)
	s.jsonResponse(w, http.StatusAccepted, JobResponse{JobID: id, Status: string(job.StatusQueued)})
}

// handleListJobs returns recent jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	jobs, err := s.orch.ListJobs(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	out := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobSummary{
			ID:           j.ID,
			Prompt:       j.Prompt,
			Status:       j.Status,
			CurrentStage: j.CurrentStage,
			DeployTarget: j.Options.DeployTarget,
			CreatedAt:    j.CreatedAt,
			UpdatedAt:    j.UpdatedAt,
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": out, "count": len(out)})
}

// handleGetJob returns the latest committed snapshot of a job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.orch.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, j)
}

// handleCancelJob cancels a queued or running job.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.orch.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, JobResponse{JobID: j.ID, Status: string(j.Status)})
}

// handleJobEvents streams a snapshot event every time the job changes and a
// complete event once it is terminal.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	wake, unsubscribe := s.events.Subscribe(id)
	defer unsubscribe()

	j, err := s.orch.GetStatus(ctx, id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, r, apperr.Internal(err, "cannot stream events"))
		return
	}

	var sent int64
	send := func(j *job.Job) bool {
		if j.Version != sent {
			if err := sse.WriteEvent("snapshot", j); err != nil {
				s.log.Debug("event stream closed", logger.JobID(id), logger.Error(err))
				return false
			}
			sent = j.Version
		}
		if j.Terminal() {
			sse.WriteComplete(j.ID, string(j.Status))
			return false
		}
		return true
	}
	if !send(j) {
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			sse.WriteError("server shutting down")
			return
		case <-wake:
		case <-ticker.C:
		}
		j, err := s.orch.GetStatus(ctx, id)
		if err != nil {
			sse.WriteError(errorMessage(err))
			return
		}
		if !send(j) {
			return
		}
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.InvalidRequest("%s must be a non-negative integer", key)
	}
	return v, nil
}
