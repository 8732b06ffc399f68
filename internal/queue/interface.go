package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anhhuy04/ai-lms-prd/internal/seeder"
)

// ErrInvalidJob marks a job that can never succeed, however often it is
// redelivered. Consumers acknowledge such jobs instead of retrying them.
var ErrInvalidJob = errors.New("invalid seed job")

// Job represents a seeding job to be queued. Records are inline, or
// Dataset names a file or s3:// location the worker loads.
type Job struct {
	ID          string                 `json:"id"`
	Table       string                 `json:"table"`
	Dataset     string                 `json:"dataset,omitempty"`
	Records     []seeder.Record        `json:"records,omitempty"`
	Policy      string                 `json:"policy,omitempty"`
	KeyColumns  []string               `json:"key_columns,omitempty"`
	SubmittedAt time.Time              `json:"submitted_at"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewJob creates a job with a fresh ID
func NewJob(table string) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Table:       table,
		SubmittedAt: time.Now().UTC(),
	}
}

// Validate checks that the job can be processed
func (j *Job) Validate() error {
	if j.Dataset == "" && len(j.Records) == 0 {
		return fmt.Errorf("%w %s: has neither records nor a dataset", ErrInvalidJob, j.ID)
	}
	if j.Dataset != "" && len(j.Records) > 0 {
		return fmt.Errorf("%w %s: has both records and a dataset", ErrInvalidJob, j.ID)
	}
	return nil
}

// DecodeJob parses a job message body
func DecodeJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// JobResult represents the result of a seeding job
type JobResult struct {
	JobID   string              `json:"job_id"`
	Success bool                `json:"success"`
	Report  *seeder.BatchReport `json:"report,omitempty"`
	Errors  []string            `json:"errors"`
}

// Producer publishes seeding jobs to the queue
type Producer interface {
	// PublishJob publishes a seeding job to the queue
	PublishJob(ctx context.Context, job *Job) error

	// Close closes the producer connection
	Close() error
}

// Consumer consumes seeding jobs from the queue
type Consumer interface {
	// Consume starts consuming jobs from the queue
	// The handler function is called for each job
	Consume(ctx context.Context, handler JobHandler) error

	// Close closes the consumer connection
	Close() error
}

// JobHandler processes a seeding job. Failed records are reported in the
// result; an error means the job itself could not run.
type JobHandler func(ctx context.Context, job *Job) (*JobResult, error)

// Queue provides both producer and consumer capabilities
type Queue interface {
	Producer
	Consumer
}
