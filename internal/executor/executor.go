package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anhhuy04/ai-lms-prd/internal/dataset"
	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/metrics"
	"github.com/anhhuy04/ai-lms-prd/internal/queue"
	"github.com/anhhuy04/ai-lms-prd/internal/seeder"
)

// ErrInvalidRequest marks a request that fails the same way on every
// attempt: conflicting sources, an unknown policy, a missing table or a
// dataset that does not exist or does not parse.
var ErrInvalidRequest = errors.New("invalid seed request")

func invalidRequest(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

// Context keys for execution metadata
type contextKey string

const (
	executedByKey      contextKey = "executed_by"
	executionMethodKey contextKey = "execution_method"
)

// SetExecutionContext records who triggered a run and through which surface
func SetExecutionContext(ctx context.Context, executedBy, executionMethod string) context.Context {
	ctx = context.WithValue(ctx, executedByKey, executedBy)
	return context.WithValue(ctx, executionMethodKey, executionMethod)
}

// GetExecutionContext extracts execution context from context
func GetExecutionContext(ctx context.Context) (executedBy, executionMethod string) {
	executedBy = "system"
	executionMethod = "api"

	if s, ok := ctx.Value(executedByKey).(string); ok {
		executedBy = s
	}
	if s, ok := ctx.Value(executionMethodKey).(string); ok {
		executionMethod = s
	}
	return executedBy, executionMethod
}

// DatasetLoader reads records from a file or object location
type DatasetLoader interface {
	Load(ctx context.Context, location string) (*dataset.Dataset, error)
}

// Defaults fill in whatever a request leaves empty
type Defaults struct {
	Table      string
	Policy     string
	KeyColumns []string
	LabelField string
}

// Request describes one seeding run. Records are inline, or Dataset names
// where to load them from.
type Request struct {
	Table      string          `json:"table,omitempty"`
	Dataset    string          `json:"dataset,omitempty"`
	Records    []seeder.Record `json:"records,omitempty"`
	Policy     string          `json:"policy,omitempty"`
	KeyColumns []string        `json:"key_columns,omitempty"`
}

// ExecuteResult is either a finished report or a queued job
type ExecuteResult struct {
	Report *seeder.BatchReport `json:"report,omitempty"`
	Queued bool                `json:"queued"`
	JobID  string              `json:"job_id,omitempty"`
}

// Executor runs seeding requests against a store
type Executor struct {
	store    seeder.Store
	loader   DatasetLoader
	metrics  *metrics.Metrics
	defaults Defaults
	queue    queue.Queue // Optional queue for async execution
	mu       sync.Mutex
}

// NewExecutor creates a new seeding executor
func NewExecutor(store seeder.Store, loader DatasetLoader, defaults Defaults) *Executor {
	return &Executor{
		store:    store,
		loader:   loader,
		defaults: defaults,
	}
}

// SetQueue sets the queue for async execution
func (e *Executor) SetQueue(q queue.Queue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = q
}

// SetMetrics sets the collector seeding outcomes are counted in
func (e *Executor) SetMetrics(m *metrics.Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// HasQueue reports whether async execution is available
func (e *Executor) HasQueue() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue != nil
}

// Execute runs req, or publishes it as a job when async is requested and a
// queue is configured.
func (e *Executor) Execute(ctx context.Context, req *Request, async bool) (*ExecuteResult, error) {
	e.mu.Lock()
	q := e.queue
	e.mu.Unlock()

	// An empty inline batch has nothing to hand to a worker
	if async && q != nil && !isEmptyInline(req) {
		return e.queueJob(ctx, q, req)
	}

	report, err := e.ExecuteSync(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ExecuteResult{Report: report}, nil
}

// ExecuteSync runs req in the calling goroutine (bypasses queue, used by
// worker and CLI). Errors are about the request itself; record failures
// are only in the report.
func (e *Executor) ExecuteSync(ctx context.Context, req *Request, opts ...seeder.Option) (*seeder.BatchReport, error) {
	if req == nil {
		return nil, invalidRequest(fmt.Errorf("seed request is required"))
	}
	if req.Dataset != "" && len(req.Records) > 0 {
		return nil, invalidRequest(fmt.Errorf("seed request must not carry both records and a dataset"))
	}

	records := req.Records
	datasetTable := ""
	if req.Dataset != "" {
		if e.loader == nil {
			return nil, fmt.Errorf("no dataset loader configured")
		}
		ds, err := e.loader.Load(ctx, req.Dataset)
		if err != nil {
			err = fmt.Errorf("failed to load dataset: %w", err)
			if errors.Is(err, dataset.ErrNotFound) || errors.Is(err, dataset.ErrMalformed) || errors.Is(err, dataset.ErrInvalidLocation) {
				err = invalidRequest(err)
			}
			return nil, err
		}
		records = ds.Records
		datasetTable = ds.Table
	}

	table := firstNonEmpty(req.Table, datasetTable, e.defaults.Table)
	if table == "" {
		return nil, invalidRequest(fmt.Errorf("target table is required"))
	}

	policy, err := seeder.ParsePolicy(firstNonEmpty(req.Policy, e.defaults.Policy))
	if err != nil {
		return nil, invalidRequest(err)
	}
	keyColumns := req.KeyColumns
	if len(keyColumns) == 0 {
		keyColumns = e.defaults.KeyColumns
	}

	e.mu.Lock()
	m := e.metrics
	e.mu.Unlock()

	seedOpts := []seeder.Option{
		seeder.WithPolicy(policy),
		seeder.WithKeyColumns(keyColumns...),
		seeder.WithMetrics(m),
	}
	if e.defaults.LabelField != "" {
		seedOpts = append(seedOpts, seeder.WithLabelField(e.defaults.LabelField))
	}
	s, err := seeder.New(e.store, append(seedOpts, opts...)...)
	if err != nil {
		return nil, invalidRequest(err)
	}

	executedBy, method := GetExecutionContext(ctx)
	logger.WithFields(logger.Fields{
		"table":       table,
		"records":     len(records),
		"policy":      policy,
		"executed_by": executedBy,
		"method":      method,
	}).Info("starting seed run")

	return s.Seed(ctx, table, records), nil
}

// ExecuteJob runs a queued job. A job that can never run returns an error
// wrapping queue.ErrInvalidJob so the consumer drops it instead of retrying.
func (e *Executor) ExecuteJob(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
	report, err := e.ExecuteSync(ctx, &Request{
		Table:      job.Table,
		Dataset:    job.Dataset,
		Records:    job.Records,
		Policy:     job.Policy,
		KeyColumns: job.KeyColumns,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			err = fmt.Errorf("%w %s: %w", queue.ErrInvalidJob, job.ID, err)
		}
		return &queue.JobResult{
			JobID:   job.ID,
			Success: false,
			Errors:  []string{err.Error()},
		}, err
	}

	result := &queue.JobResult{
		JobID:   job.ID,
		Success: !report.HasFailures(),
		Report:  report,
		Errors:  []string{},
	}
	for _, outcome := range report.Outcomes {
		if outcome.Status == seeder.StatusFailed {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", outcome.Label, outcome.Reason))
		}
	}
	return result, nil
}

// queueJob publishes req for a worker
func (e *Executor) queueJob(ctx context.Context, q queue.Queue, req *Request) (*ExecuteResult, error) {
	if req == nil {
		return nil, invalidRequest(fmt.Errorf("seed request is required"))
	}
	if req.Dataset != "" && len(req.Records) > 0 {
		return nil, invalidRequest(fmt.Errorf("seed request must not carry both records and a dataset"))
	}
	policy, err := seeder.ParsePolicy(firstNonEmpty(req.Policy, e.defaults.Policy))
	if err != nil {
		return nil, invalidRequest(err)
	}
	keyColumns := req.KeyColumns
	if len(keyColumns) == 0 {
		keyColumns = e.defaults.KeyColumns
	}
	// Reject what the worker would reject before it reaches the queue
	if _, err := seeder.New(e.store, seeder.WithPolicy(policy), seeder.WithKeyColumns(keyColumns...)); err != nil {
		return nil, invalidRequest(err)
	}

	job := queue.NewJob(req.Table)
	job.Dataset = req.Dataset
	job.Records = req.Records
	job.Policy = req.Policy
	job.KeyColumns = req.KeyColumns

	executedBy, method := GetExecutionContext(ctx)
	job.Metadata = map[string]interface{}{
		"executed_by": executedBy,
		"method":      method,
	}

	if err := job.Validate(); err != nil {
		return nil, invalidRequest(err)
	}
	if err := q.PublishJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue seed job: %w", err)
	}

	return &ExecuteResult{
		Queued: true,
		JobID:  job.ID,
	}, nil
}

func isEmptyInline(req *Request) bool {
	return req != nil && req.Dataset == "" && len(req.Records) == 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
