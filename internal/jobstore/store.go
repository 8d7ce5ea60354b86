// Package jobstore owns job records. Readers always get an immutable,
// fully committed snapshot.
package jobstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jonathan/ui-builder/internal/apperr"
	"github.com/jonathan/ui-builder/internal/job"
)

// Store holds job records keyed by id. Jobs are never removed.
type Store interface {
	Create(ctx context.Context, j *job.Job) error
	Get(ctx context.Context, id string) (*job.Job, error)
	// Update applies fn to a private copy of the job and commits it
	// atomically. If fn returns an error nothing is committed.
	Update(ctx context.Context, id string, fn func(*job.Job) error) (*job.Job, error)
	// List returns up to limit jobs, newest first.
	List(ctx context.Context, limit int) ([]*job.Job, error)
}

// MemoryStore keeps each job behind an atomic pointer. Committed values are
// never mutated, so Get never waits on a writer.
type MemoryStore struct {
	jobs  sync.Map // string -> *atomic.Pointer[job.Job]
	count atomic.Int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, j *job.Job) error {
	if j == nil || j.ID == "" {
		return apperr.InvalidRequest("job id is required")
	}
	p := &atomic.Pointer[job.Job]{}
	p.Store(j.Clone())
	if _, loaded := s.jobs.LoadOrStore(j.ID, p); loaded {
		return apperr.InvalidRequest("job %s already exists", j.ID)
	}
	s.count.Add(1)
	return nil
}

func (s *MemoryStore) pointer(id string) (*atomic.Pointer[job.Job], error) {
	v, ok := s.jobs.Load(id)
	if !ok {
		return nil, apperr.NotFound("job %s not found", id)
	}
	return v.(*atomic.Pointer[job.Job]), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*job.Job, error) {
	p, err := s.pointer(id)
	if err != nil {
		return nil, err
	}
	return p.Load().Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*job.Job) error) (*job.Job, error) {
	p, err := s.pointer(id)
	if err != nil {
		return nil, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := p.Load()
		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1
		if p.CompareAndSwap(current, next) {
			return next.Clone(), nil
		}
	}
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*job.Job, error) {
	out := make([]*job.Job, 0, s.count.Load())
	s.jobs.Range(func(_, v any) bool {
		out = append(out, v.(*atomic.Pointer[job.Job]).Load())
		return true
	})
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID > out[k].ID
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}
