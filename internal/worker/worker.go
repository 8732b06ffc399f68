package worker

import (
	"context"

	"github.com/anhhuy04/ai-lms-prd/internal/executor"
	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/queue"
)

// JobRunner executes a single seeding job
type JobRunner interface {
	ExecuteJob(ctx context.Context, job *queue.Job) (*queue.JobResult, error)
}

// Worker processes seeding jobs from the queue
type Worker struct {
	runner JobRunner
	queue  queue.Queue
}

// NewWorker creates a new seeding worker
func NewWorker(runner JobRunner, q queue.Queue) *Worker {
	return &Worker{
		runner: runner,
		queue:  q,
	}
}

// Start consumes jobs until ctx is cancelled or the queue fails
func (w *Worker) Start(ctx context.Context) error {
	logger.Info("Starting seed worker...")
	return w.queue.Consume(ctx, w.processJob)
}

// processJob processes a single seeding job. Record failures are part of
// the result; only a job that cannot run returns an error.
func (w *Worker) processJob(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
	logger.Infof("Processing seed job %s", job.ID)

	if err := job.Validate(); err != nil {
		return &queue.JobResult{
			JobID:   job.ID,
			Success: false,
			Errors:  []string{err.Error()},
		}, err
	}

	ctx = executor.SetExecutionContext(ctx, executedBy(job), "worker")
	return w.runner.ExecuteJob(ctx, job)
}

// Stop stops the worker
func (w *Worker) Stop() error {
	logger.Info("Stopping seed worker...")
	return w.queue.Close()
}

func executedBy(job *queue.Job) string {
	if by, ok := job.Metadata["executed_by"].(string); ok && by != "" {
		return by
	}
	return "queue"
}
