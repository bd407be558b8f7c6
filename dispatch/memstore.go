package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"
)

type Memjob struct {
	kind   string
	target string
	state  string

	lk sync.Mutex

	createdAt time.Time
	updatedAt time.Time

	retryCount int
	retryAfter *time.Time
}

// Memstore is a simple in-memory implementation of the dispatch Store
// interface, for tests and one-shot scans.
type Memstore struct {
	lk   sync.RWMutex
	jobs map[jobKey]*Memjob
}

func NewMemstore() *Memstore {
	return &Memstore{
		jobs: make(map[jobKey]*Memjob),
	}
}

func (s *Memstore) EnqueueJob(ctx context.Context, kind, target string) error {
	return s.EnqueueJobWithState(ctx, kind, target, StateEnqueued)
}

func (s *Memstore) EnqueueJobWithState(ctx context.Context, kind, target, state string) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	key := jobKey{kind, target}
	if j, ok := s.jobs[key]; ok {
		j.reenqueue(state)
		return nil
	}

	j := &Memjob{
		kind:      kind,
		target:    target,
		createdAt: time.Now(),
		updatedAt: time.Now(),
		state:     state,
	}
	s.jobs[key] = j
	return nil
}

func (s *Memstore) GetJob(ctx context.Context, kind, target string) (Job, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()

	j, ok := s.jobs[jobKey{kind, target}]
	if !ok || j == nil {
		return nil, ErrJobNotFound
	}
	return j, nil
}

func (s *Memstore) GetNextEnqueuedJob(ctx context.Context) (Job, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()

	for _, j := range s.jobs {
		shouldRetry := strings.HasPrefix(j.State(), "failed") && j.retryAfterElapsed()

		if j.State() == StateEnqueued || shouldRetry {
			return j, nil
		}
	}
	return nil, nil
}

func (s *Memstore) PurgeTarget(ctx context.Context, kind, target string) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	delete(s.jobs, jobKey{kind, target})
	return nil
}

func (j *Memjob) Kind() string {
	return j.kind
}

func (j *Memjob) Target() string {
	return j.target
}

func (j *Memjob) State() string {
	j.lk.Lock()
	defer j.lk.Unlock()

	return j.state
}

func (j *Memjob) SetState(ctx context.Context, state string) error {
	j.lk.Lock()
	defer j.lk.Unlock()

	j.state = state
	j.updatedAt = time.Now()

	if strings.HasPrefix(state, "failed") {
		if j.retryCount < MaxRetries {
			next := time.Now().Add(computeExponentialBackoff(j.retryCount))
			j.retryAfter = &next
			j.retryCount++
		} else {
			j.retryAfter = nil
		}
	}
	return nil
}

func (j *Memjob) RetryCount() int {
	j.lk.Lock()
	defer j.lk.Unlock()
	return j.retryCount
}

// reenqueue resets a finished job to the given state. Jobs still queued or
// running are left alone.
func (j *Memjob) reenqueue(state string) {
	j.lk.Lock()
	defer j.lk.Unlock()

	switch j.state {
	case StateEnqueued, StateInProgress:
		return
	}

	j.state = state
	j.retryCount = 0
	j.retryAfter = nil
	j.updatedAt = time.Now()
}

func (j *Memjob) retryAfterElapsed() bool {
	j.lk.Lock()
	defer j.lk.Unlock()

	return j.retryAfter != nil && time.Now().After(*j.retryAfter)
}
