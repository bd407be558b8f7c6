// Package dispatch runs queued scan jobs with bounded parallelism.
//
// The scheduler (or an operator command) enqueues account sweeps; sweeping an
// account fans out one post job per unprocessed post. Workers pull jobs of
// either kind, run them through the scan engine, and record completion or
// schedule a retry. Jobs are keyed by kind and target and re-enqueueable,
// since monitored accounts are swept over and over for as long as they stay
// active.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/opensocialmonitor/vigil/normalize"
)

// Job kinds. Account jobs sweep a monitored account's recent posts and queue
// them; post jobs scan the comments on one post.
var (
	KindAccount = "account"
	KindPost    = "post"
)

// Job is one queued unit of scan work.
type Job interface {
	Kind() string
	Target() string
	State() string
	SetState(ctx context.Context, state string) error
	RetryCount() int
}

// Store is an interface for a dispatch store which holds Jobs
type Store interface {
	GetJob(ctx context.Context, kind, target string) (Job, error)
	GetNextEnqueuedJob(ctx context.Context) (Job, error)

	// EnqueueJob creates the job, or resets a finished one back to enqueued.
	// Enqueueing a job that is already enqueued or running is a no-op.
	EnqueueJob(ctx context.Context, kind, target string) error
	// EnqueueJobWithState creates (or resets) a job in a specific state.
	EnqueueJobWithState(ctx context.Context, kind, target, state string) error

	PurgeTarget(ctx context.Context, kind, target string) error
}

var (
	// StateEnqueued is the state of a scan job when it is first created
	StateEnqueued = "enqueued"
	// StateInProgress is the state of a scan job when it is being processed
	StateInProgress = "in_progress"
	// StateComplete is the state of a scan job when it has been processed
	StateComplete = "complete"
)

// ErrJobNotFound is returned when looking up a job that doesn't exist
var ErrJobNotFound = errors.New("job not found")

// MaxRetries is the maximum number of times to retry a failed job before
// leaving it for the next scheduler pass
var MaxRetries = 5

func computeExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * 10 * time.Second
}

// Dispatcher pulls scan jobs off the store and runs them through the scan
// engine callbacks.
type Dispatcher struct {
	Name string
	// HandleAccount sweeps one account and returns the post URLs to queue.
	HandleAccount func(ctx context.Context, username string) ([]string, error)
	// HandlePost scans the comments on one post.
	HandlePost func(ctx context.Context, url string) error
	Store      Store

	// Number of jobs to process in parallel
	ParallelJobs int

	jobLimiter *rate.Limiter

	stop chan chan struct{}
}

type Options struct {
	ParallelJobs  int
	JobsPerSecond float64
}

func DefaultOptions() *Options {
	return &Options{
		ParallelJobs:  2,
		JobsPerSecond: 1,
	}
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(name string, store Store, handleAccount func(ctx context.Context, username string) ([]string, error), handlePost func(ctx context.Context, url string) error, opts *Options) *Dispatcher {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &Dispatcher{
		Name:          name,
		Store:         store,
		HandleAccount: handleAccount,
		HandlePost:    handlePost,
		ParallelJobs:  opts.ParallelJobs,
		jobLimiter:    rate.NewLimiter(rate.Limit(opts.JobsPerSecond), 1),
		stop:          make(chan chan struct{}, 1),
	}
}

// EnqueueAccount queues a sweep for the given account.
func (d *Dispatcher) EnqueueAccount(ctx context.Context, username string) error {
	username = normalize.Username(username)
	if username == "" {
		return fmt.Errorf("refusing to enqueue empty username")
	}
	if err := d.Store.EnqueueJob(ctx, KindAccount, username); err != nil {
		return err
	}
	jobsEnqueued.WithLabelValues(d.Name, KindAccount).Inc()
	return nil
}

// Start starts the job processor routine
func (d *Dispatcher) Start() {
	ctx := context.Background()

	log := slog.With("source", "dispatcher", "name", d.Name)
	log.Info("starting scan job processor")

	sem := semaphore.NewWeighted(int64(d.ParallelJobs))

	for {
		select {
		case stopped := <-d.stop:
			log.Info("stopping scan job processor")
			sem.Acquire(ctx, int64(d.ParallelJobs))
			close(stopped)
			return
		default:
		}

		// Get the next job
		job, err := d.Store.GetNextEnqueuedJob(ctx)
		if err != nil {
			log.Error("failed to get next enqueued job", "error", err)
			time.Sleep(1 * time.Second)
			continue
		} else if job == nil {
			time.Sleep(1 * time.Second)
			continue
		}

		log := log.With("kind", job.Kind(), "target", job.Target())

		// Mark the job as "in progress"
		err = job.SetState(ctx, StateInProgress)
		if err != nil {
			log.Error("failed to set job state", "error", err)
			continue
		}

		sem.Acquire(ctx, 1)
		go func(j Job) {
			defer sem.Release(1)
			newState, err := d.ProcessJob(ctx, j)
			if err != nil {
				log.Error("failed to process job", "error", err)
			}
			if newState != "" {
				if sserr := j.SetState(ctx, newState); sserr != nil {
					log.Error("failed to set job state", "error", sserr)
				}
			}
			jobsProcessed.WithLabelValues(d.Name, j.Kind()).Inc()
		}(job)
	}
}

// Stop stops the job processor
func (d *Dispatcher) Stop(ctx context.Context) error {
	log := slog.With("source", "dispatcher", "name", d.Name)
	log.Info("stopping scan job processor")
	stopped := make(chan struct{})
	d.stop <- stopped
	select {
	case <-stopped:
		log.Info("scan job processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessJob runs one queued job and returns the job's next state. Account
// jobs fan out one post job per unprocessed post the handler reports.
func (d *Dispatcher) ProcessJob(ctx context.Context, job Job) (string, error) {
	start := time.Now()

	kind := job.Kind()
	target := job.Target()

	log := slog.With("source", "dispatcher_worker", "kind", kind, "target", target)
	if job.RetryCount() > 0 {
		log = log.With("retry_count", job.RetryCount())
	}
	log.Info(fmt.Sprintf("processing %s job for %s", kind, target))

	d.jobLimiter.Wait(ctx)

	switch kind {
	case KindAccount:
		targets, err := d.HandleAccount(ctx, target)
		if err != nil {
			return "failed sweeping account", err
		}
		for _, t := range targets {
			if err := d.Store.EnqueueJob(ctx, KindPost, t); err != nil {
				// keep the account job retryable so the posts get queued eventually
				return "failed queueing posts", err
			}
			jobsEnqueued.WithLabelValues(d.Name, KindPost).Inc()
		}
		if len(targets) > 0 {
			log.Info("queued post scans", "count", len(targets))
		}
	case KindPost:
		if err := d.HandlePost(ctx, target); err != nil {
			return "failed scanning post", err
		}
	default:
		return "failed unknown job kind", fmt.Errorf("unknown job kind: %s", kind)
	}

	log.Info("job complete", "duration", time.Since(start))

	return StateComplete, nil
}
