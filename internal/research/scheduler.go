package research

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned by Enqueue when the backlog is at capacity.
var ErrQueueFull = errors.New("research queue full")

// ErrStopped is returned by Enqueue after the scheduler has shut down.
var ErrStopped = errors.New("research scheduler stopped")

// Job is one pending research request.
type Job struct {
	TodoID string
	Query  string
}

// ResultFunc stores a finished report.
type ResultFunc func(ctx context.Context, todoID string, r Report) error

// NotifyFunc is told the outcome of every job; err is nil on success.
type NotifyFunc func(ctx context.Context, job Job, r Report, err error)

// Scheduler runs research jobs on a fixed pool of workers.
type Scheduler struct {
	researcher *Researcher
	store      ResultFunc
	notify     NotifyFunc
	workers    int
	logger     *zap.Logger

	jobs    chan Job
	mu      sync.RWMutex
	stopped bool
}

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithWorkers sets the worker count.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithNotifier registers a callback for job outcomes.
func WithNotifier(fn NotifyFunc) SchedulerOption {
	return func(s *Scheduler) { s.notify = fn }
}

// NewScheduler creates a Scheduler with a backlog of queueSize jobs.
//
// Precondition: researcher, store, and logger must be non-nil; queueSize > 0.
func NewScheduler(researcher *Researcher, store ResultFunc, queueSize int, logger *zap.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		researcher: researcher,
		store:      store,
		workers:    2,
		logger:     logger,
		jobs:       make(chan Job, queueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue adds a job without blocking.
func (s *Scheduler) Enqueue(todoID, query string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return ErrStopped
	}
	select {
	case s.jobs <- Job{TodoID: todoID, Query: query}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes jobs until ctx is cancelled, then finishes the jobs already
// queued and returns.
//
// Postcondition: every worker goroutine has exited.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for job := range s.jobs {
				s.process(gctx, job)
			}
			return nil
		})
	}

	s.logger.Info("research scheduler started", zap.Int("workers", s.workers))
	<-ctx.Done()

	s.mu.Lock()
	s.stopped = true
	close(s.jobs)
	s.mu.Unlock()

	err := g.Wait()
	s.logger.Info("research scheduler stopped")
	return err
}

func (s *Scheduler) process(ctx context.Context, job Job) {
	report, err := s.researcher.Research(ctx, job.Query, job.TodoID)
	if err == nil {
		err = s.store(ctx, job.TodoID, report)
	}
	if err != nil {
		s.logger.Error("research job failed",
			zap.String("todo_id", job.TodoID),
			zap.Error(err),
		)
	}
	if s.notify != nil {
		s.notify(ctx, job, report, err)
	}
}
