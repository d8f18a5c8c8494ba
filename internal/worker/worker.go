// Package worker consumes background jobs from the Redis queue.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/inr99/academy/pkg/queue"
)

var (
	// ErrMalformedJob marks jobs that can never succeed; they skip retries.
	ErrMalformedJob    = errors.New("malformed job")
	ErrUnknownTemplate = errors.New("unknown email template")
	ErrNoProcessor     = errors.New("no processor for job type")
)

// DequeueTimeout bounds each blocking pop so shutdown is noticed promptly.
const DequeueTimeout = 5 * time.Second

// Source is the job queue.
type Source interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) error
}

// Processor executes one job type.
type Processor interface {
	Process(ctx context.Context, job *queue.Job) error
}

// failureHook is implemented by processors that react to dead-lettered jobs.
type failureHook interface {
	Failed(ctx context.Context, job *queue.Job)
}

// Runner dispatches jobs to processors by type.
type Runner struct {
	src        Source
	processors map[queue.JobType]Processor
	sleep      func(ctx context.Context, d time.Duration)
	logger     *zap.Logger
}

// NewRunner creates a runner over src.
func NewRunner(src Source, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{src: src, processors: map[queue.JobType]Processor{}, sleep: sleepCtx, logger: logger}
}

// Handle registers p for jobs of type t.
func (r *Runner) Handle(t queue.JobType, p Processor) {
	r.processors[t] = p
}

// Run dequeues and processes jobs until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("worker loop started")
	for {
		if ctx.Err() != nil {
			r.logger.Info("worker loop stopping")
			return
		}
		job, err := r.src.Dequeue(ctx, DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Warn("dequeue error", zap.Error(err))
			r.sleep(ctx, queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}
		r.RunJob(ctx, job)
	}
}

// RunJob processes one job and retries, dead-letters or drops it on failure.
func (r *Runner) RunJob(ctx context.Context, job *queue.Job) {
	log := r.logger.With(zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int("attempt", job.Attempt))
	p, ok := r.processors[job.Type]
	var err error
	if !ok {
		err = ErrNoProcessor
	} else {
		err = p.Process(ctx, job)
	}
	if err == nil {
		return
	}

	if errors.Is(err, ErrMalformedJob) || errors.Is(err, ErrUnknownTemplate) || errors.Is(err, ErrNoProcessor) {
		// straight to the dead-letter list
		job.Attempt = queue.MaxRetries - 1
	}
	log.Error("job failed", zap.Error(err))
	if reErr := r.src.Retry(ctx, job, err); reErr != nil {
		log.Error("retry enqueue failed", zap.Error(reErr))
		return
	}
	if job.Attempt >= queue.MaxRetries {
		if hook, ok := p.(failureHook); ok {
			hook.Failed(ctx, job)
		}
		return
	}
	r.sleep(ctx, queue.Backoff(job.Attempt))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
