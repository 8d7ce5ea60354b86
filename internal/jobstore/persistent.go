package jobstore

import (
	"context"
	"time"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/job"
	"github.com/jonathan/ui-builder/internal/logger"
	"github.com/jonathan/ui-builder/internal/schemas"
)

// Mirror is durable storage for job snapshots, implemented by *db.DB.
type Mirror interface {
	SaveJob(ctx context.Context, j *job.Job) error
	GetJob(ctx context.Context, id string) (*job.Job, error)
}

// PersistentStore decorates a Store and mirrors every committed snapshot.
// Mirror failures are logged and never fail the job.
type PersistentStore struct {
	inner   Store
	mirror  Mirror
	log     logger.Logger
	timeout time.Duration
}

// NewPersistentStore wraps inner with a durable mirror.
func NewPersistentStore(inner Store, mirror Mirror, log logger.Logger) *PersistentStore {
	return &PersistentStore{inner: inner, mirror: mirror, log: log, timeout: 5 * time.Second}
}

func (s *PersistentStore) Create(ctx context.Context, j *job.Job) error {
	if err := s.inner.Create(ctx, j); err != nil {
		return err
	}
	s.save(ctx, j)
	return nil
}

// Get serves from the owned store and falls back to the mirror for jobs
// created by an earlier process.
func (s *PersistentStore) Get(ctx context.Context, id string) (*job.Job, error) {
	j, err := s.inner.Get(ctx, id)
	if err == nil || apperr.KindOf(err) != apperr.KindNotFound {
		return j, err
	}
	stored, mirrorErr := s.mirror.GetJob(ctx, id)
	if mirrorErr != nil {
		s.log.Warn("job mirror lookup failed", logger.JobID(id), logger.Error(mirrorErr))
		return nil, err
	}
	if stored == nil {
		return nil, err
	}
	return stored, nil
}

func (s *PersistentStore) Update(ctx context.Context, id string, fn func(*job.Job) error) (*job.Job, error) {
	j, err := s.inner.Update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	s.save(ctx, j)
	return j, nil
}

func (s *PersistentStore) List(ctx context.Context, limit int) ([]*job.Job, error) {
	return s.inner.List(ctx, limit)
}

func (s *PersistentStore) save(ctx context.Context, j *job.Job) {
	for stage, doc := range j.Artifacts {
		if err := schemas.ValidateArtifact(string(stage), doc); err != nil {
			s.log.Error("artifact failed schema validation, snapshot not persisted",
				logger.JobID(j.ID), logger.Stage(string(stage)), logger.Error(err))
			return
		}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.mirror.SaveJob(ctx, j); err != nil {
		s.log.Warn("failed to persist job snapshot",
			logger.JobID(j.ID), logger.Int64("version", j.Version), logger.Error(err))
	}
}
