package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

type Gormjob struct {
	kind   string
	target string
	state  string

	lk sync.Mutex

	dbj *GormDBJob
	db  *gorm.DB

	createdAt time.Time
	updatedAt time.Time

	retryCount int
	retryAfter *time.Time
}

type GormDBJob struct {
	gorm.Model
	Kind       string `gorm:"uniqueIndex:idx_scan_jobs_kind_target"`
	Target     string `gorm:"uniqueIndex:idx_scan_jobs_kind_target"`
	State      string `gorm:"index"`
	RetryCount int
	RetryAfter *time.Time
}

type jobKey struct {
	kind   string
	target string
}

// Gormstore is a gorm-backed implementation of the dispatch Store interface
type Gormstore struct {
	lk   sync.RWMutex
	jobs map[jobKey]*Gormjob
	db   *gorm.DB
}

func NewGormstore(db *gorm.DB) *Gormstore {
	return &Gormstore{
		jobs: make(map[jobKey]*Gormjob),
		db:   db,
	}
}

// LoadJobs pulls persisted jobs into the in-memory cache, so queued scans
// survive a daemon restart.
func (s *Gormstore) LoadJobs(ctx context.Context) error {
	limit := 20_000
	offset := 0
	s.lk.Lock()
	defer s.lk.Unlock()

	for {
		var dbjobs []*GormDBJob
		if err := s.db.Limit(limit).Offset(offset).Find(&dbjobs).Error; err != nil {
			return err
		}
		if len(dbjobs) == 0 {
			break
		}
		offset += len(dbjobs)

		// Convert them to in-memory jobs
		for i := range dbjobs {
			dbj := dbjobs[i]
			j := &Gormjob{
				kind:      dbj.Kind,
				target:    dbj.Target,
				state:     dbj.State,
				createdAt: dbj.CreatedAt,
				updatedAt: dbj.UpdatedAt,

				dbj: dbj,
				db:  s.db,

				retryCount: dbj.RetryCount,
				retryAfter: dbj.RetryAfter,
			}
			s.jobs[jobKey{dbj.Kind, dbj.Target}] = j
		}
	}

	return nil
}

func (s *Gormstore) EnqueueJob(ctx context.Context, kind, target string) error {
	return s.EnqueueJobWithState(ctx, kind, target, StateEnqueued)
}

func (s *Gormstore) EnqueueJobWithState(ctx context.Context, kind, target, state string) error {
	if j := s.checkJobCache(ctx, kind, target); j != nil {
		return j.reenqueue(state)
	}

	// Persist the job to the database
	dbj := &GormDBJob{
		Kind:   kind,
		Target: target,
		State:  state,
	}
	if err := s.db.Create(dbj).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with another enqueue; reset the existing row instead
			j, err := s.getJob(ctx, kind, target)
			if err != nil {
				return err
			}
			return j.reenqueue(state)
		}
		return err
	}

	s.lk.Lock()
	defer s.lk.Unlock()

	// Convert it to an in-memory job
	key := jobKey{kind, target}
	if existing, ok := s.jobs[key]; ok {
		// The DB create should have errored if the job already existed, but just in case
		return existing.reenqueue(state)
	}

	j := &Gormjob{
		kind:      kind,
		target:    target,
		createdAt: time.Now(),
		updatedAt: time.Now(),
		state:     state,

		dbj: dbj,
		db:  s.db,
	}
	s.jobs[key] = j

	return nil
}

func (s *Gormstore) GetJob(ctx context.Context, kind, target string) (Job, error) {
	return s.getJob(ctx, kind, target)
}

func (s *Gormstore) getJob(ctx context.Context, kind, target string) (*Gormjob, error) {
	cj := s.checkJobCache(ctx, kind, target)
	if cj != nil {
		return cj, nil
	}

	return s.loadJob(ctx, kind, target)
}

func (s *Gormstore) loadJob(ctx context.Context, kind, target string) (*Gormjob, error) {
	var dbj GormDBJob
	if err := s.db.Find(&dbj, "kind = ? AND target = ?", kind, target).Error; err != nil {
		return nil, err
	}

	if dbj.ID == 0 {
		return nil, ErrJobNotFound
	}

	j := &Gormjob{
		kind:      dbj.Kind,
		target:    dbj.Target,
		state:     dbj.State,
		createdAt: dbj.CreatedAt,
		updatedAt: dbj.UpdatedAt,

		dbj: &dbj,
		db:  s.db,

		retryCount: dbj.RetryCount,
		retryAfter: dbj.RetryAfter,
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	// would imply a race condition
	exist, ok := s.jobs[jobKey{kind, target}]
	if ok {
		return exist, nil
	}
	s.jobs[jobKey{kind, target}] = j
	return j, nil
}

func (s *Gormstore) checkJobCache(ctx context.Context, kind, target string) *Gormjob {
	s.lk.RLock()
	defer s.lk.RUnlock()

	j, ok := s.jobs[jobKey{kind, target}]
	if !ok || j == nil {
		return nil
	}
	return j
}

func (s *Gormstore) GetNextEnqueuedJob(ctx context.Context) (Job, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()

	for _, j := range s.jobs {
		shouldRetry := strings.HasPrefix(j.State(), "failed") && j.retryAfter != nil && time.Now().After(*j.retryAfter)

		if j.State() == StateEnqueued || shouldRetry {
			return j, nil
		}
	}
	return nil, nil
}

func (s *Gormstore) PurgeTarget(ctx context.Context, kind, target string) error {
	// hard delete, so re-adding the target later can recreate the row
	if err := s.db.Unscoped().Where("kind = ? AND target = ?", kind, target).Delete(&GormDBJob{}).Error; err != nil {
		return err
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.jobs, jobKey{kind, target})
	return nil
}

func (j *Gormjob) Kind() string {
	return j.kind
}

func (j *Gormjob) Target() string {
	return j.target
}

func (j *Gormjob) State() string {
	j.lk.Lock()
	defer j.lk.Unlock()

	return j.state
}

func (j *Gormjob) SetState(ctx context.Context, state string) error {
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

	// Persist the job to the database
	j.dbj.State = state
	j.dbj.RetryCount = j.retryCount
	j.dbj.RetryAfter = j.retryAfter
	return j.db.Save(j.dbj).Error
}

func (j *Gormjob) RetryCount() int {
	j.lk.Lock()
	defer j.lk.Unlock()
	return j.retryCount
}

// reenqueue resets a finished job to the given state. Jobs still queued or
// running are left alone.
func (j *Gormjob) reenqueue(state string) error {
	j.lk.Lock()
	defer j.lk.Unlock()

	switch j.state {
	case StateEnqueued, StateInProgress:
		return nil
	}

	j.state = state
	j.retryCount = 0
	j.retryAfter = nil
	j.updatedAt = time.Now()

	j.dbj.State = state
	j.dbj.RetryCount = 0
	j.dbj.RetryAfter = nil
	return j.db.Save(j.dbj).Error
}
