// Package queue implements the Background Queue (C7): the in-process worker
// pool that runs material processing jobs off the upload request's hot path
// (§4.7). It provides bounded concurrency and backpressure but no
// persistence — jobs submitted before a crash are simply lost, and the
// caller (the upload handler) is expected to re-submit on next read via the
// stuck-processing sweep instead of relying on a durable queue (§4.7,
// Non-goals).
package queue

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Shaswata28/studymate/internal/errs"
	"github.com/Shaswata28/studymate/internal/log"
)

// Config controls the queue's concurrency and backpressure behavior (§6.3).
type Config struct {
	Concurrency int           `conf:"concurrency" yaml:"concurrency" json:"concurrency"`
	BufferSize  int           `conf:"buffer_size" yaml:"buffer_size" json:"buffer_size"`
	EnqueueWait time.Duration `conf:"enqueue_wait" yaml:"enqueue_wait" json:"enqueue_wait"`
}

// Job is one unit of background work: processing a single material.
type Job struct {
	MaterialID string
}

// Handler runs one Job. Errors are logged by the queue; the handler owns
// writing its own terminal failure state (materials.Service.Process already
// does this via the material's own status field).
type Handler func(ctx context.Context, job Job) error

// Queue is the Background Queue (C7): a bounded worker pool fed by a
// buffered channel, with a weighted semaphore limiting in-flight jobs to
// Config.Concurrency — the same FIFO-fair primitive the Residency Manager
// uses for specialist serialization, here bounding parallelism instead.
type Queue struct {
	cfg     Config
	handler Handler
	sem     *semaphore.Weighted
	jobs    chan Job
	done    chan struct{}
}

// New builds a Queue. Call Run in a goroutine to start draining it.
func New(cfg Config, handler Handler) *Queue {
	return &Queue{
		cfg:     cfg,
		handler: handler,
		sem:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		jobs:    make(chan Job, cfg.BufferSize),
		done:    make(chan struct{}),
	}
}

// Enqueue submits a job. It blocks up to Config.EnqueueWait for buffer
// space; if the buffer is still full after that, it returns a Timeout error
// rather than blocking the upload request indefinitely or silently dropping
// the job (§4.7's "brief block, then report pending" backpressure rule).
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	timer := time.NewTimer(q.cfg.EnqueueWait)
	defer timer.Stop()

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return errs.Timeout("queue enqueue canceled", ctx.Err())
	case <-timer.C:
		return errs.Wrap(errs.KindAIUnavailable, "background queue is at capacity; the material remains pending", nil)
	}
}

// Run drains the job channel until ctx is canceled, dispatching each job to
// a goroutine gated by the concurrency semaphore. It returns once every
// in-flight job has finished, giving callers a clean shutdown point (§4.7's
// "at-least-once while the process is alive" guarantee: jobs already
// dequeued finish even if ctx cancels mid-run; nothing new is accepted).
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)

	inFlight := make(chan struct{})
	active := 0

	for {
		select {
		case job, ok := <-q.jobs:
			if !ok {
				// Stop closed the channel; drain whatever is already
				// in-flight before returning instead of abandoning those
				// goroutines mid-send on inFlight.
				for active > 0 {
					<-inFlight
					active--
				}

				return
			}

			if err := q.sem.Acquire(ctx, 1); err != nil {
				return
			}

			active++

			go func() {
				defer func() {
					q.sem.Release(1)
					inFlight <- struct{}{}
				}()

				if err := q.handler(context.WithoutCancel(ctx), job); err != nil {
					log.Error(ctx, "background job failed", log.String("material_id", job.MaterialID), log.Cause(err))
				}
			}()
		case <-inFlight:
			active--
		case <-ctx.Done():
			for active > 0 {
				<-inFlight
				active--
			}

			return
		}
	}
}

// Stop closes the job channel, causing Run to drain and return once
// in-flight jobs finish. Call after no further Enqueue calls will happen.
func (q *Queue) Stop() {
	close(q.jobs)
	<-q.done
}
