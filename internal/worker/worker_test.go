package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/anhhuy04/ai-lms-prd/internal/executor"
	"github.com/anhhuy04/ai-lms-prd/internal/queue"
	"github.com/anhhuy04/ai-lms-prd/internal/seeder"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockRunner records the jobs it runs
type mockRunner struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	callers []string
	err     error
}

func (m *mockRunner) ExecuteJob(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	by, method := executor.GetExecutionContext(ctx)
	m.callers = append(m.callers, by+"/"+method)
	if m.err != nil {
		return &queue.JobResult{JobID: job.ID, Errors: []string{m.err.Error()}}, m.err
	}
	return &queue.JobResult{
		JobID:   job.ID,
		Success: true,
		Report:  &seeder.BatchReport{Total: len(job.Records), Succeeded: len(job.Records)},
	}, nil
}

// channelQueue delivers jobs from a channel until ctx is cancelled
type channelQueue struct {
	jobs    chan *queue.Job
	results chan *queue.JobResult
	errs    chan error
	closed  bool
}

func newChannelQueue() *channelQueue {
	return &channelQueue{
		jobs:    make(chan *queue.Job),
		results: make(chan *queue.JobResult, 8),
		errs:    make(chan error, 8),
	}
}

func (q *channelQueue) PublishJob(ctx context.Context, job *queue.Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *channelQueue) Consume(ctx context.Context, handler queue.JobHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.jobs:
			result, err := handler(ctx, job)
			q.results <- result
			q.errs <- err
		}
	}
}

func (q *channelQueue) Close() error {
	q.closed = true
	return nil
}

func TestWorker_ProcessesJobsUntilCancelled(t *testing.T) {
	runner := &mockRunner{}
	q := newChannelQueue()
	w := NewWorker(runner, q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx)
	}()

	job := queue.NewJob("classes")
	job.Records = []seeder.Record{{"name": "A"}, {"name": "B"}}
	job.Metadata = map[string]interface{}{"executed_by": "ops"}
	if err := q.PublishJob(ctx, job); err != nil {
		t.Fatalf("PublishJob() error = %v", err)
	}

	result := <-q.results
	if err := <-q.errs; err != nil {
		t.Fatalf("Expected job to succeed, got %v", err)
	}
	if result.JobID != job.ID || !result.Success || result.Report.Total != 2 {
		t.Errorf("Unexpected result %+v", result)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not stop after cancellation")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if !q.closed {
		t.Error("Expected queue to be closed")
	}
	if len(runner.callers) != 1 || runner.callers[0] != "ops/worker" {
		t.Errorf("Expected execution context ops/worker, got %v", runner.callers)
	}
}

func TestWorker_InvalidJobIsNotRun(t *testing.T) {
	runner := &mockRunner{}
	w := NewWorker(runner, newChannelQueue())

	result, err := w.processJob(context.Background(), &queue.Job{ID: "empty"})
	if !errors.Is(err, queue.ErrInvalidJob) {
		t.Fatalf("Expected ErrInvalidJob for a job without records or dataset, got %v", err)
	}
	if result.Success || len(result.Errors) != 1 {
		t.Errorf("Expected failed result, got %+v", result)
	}
	if len(runner.jobs) != 0 {
		t.Errorf("Expected runner not to be called, got %d calls", len(runner.jobs))
	}
}

func TestWorker_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("failed to load dataset")}
	w := NewWorker(runner, newChannelQueue())

	_, err := w.processJob(context.Background(), &queue.Job{ID: "j", Dataset: "missing.yaml"})
	if err == nil {
		t.Error("Expected runner error to propagate")
	}
	if runner.callers[0] != "queue/worker" {
		t.Errorf("Expected default executed_by queue, got %s", runner.callers[0])
	}
}
