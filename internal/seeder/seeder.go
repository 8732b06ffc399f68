package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/anhhuy04/ai-lms-prd/internal/logger"
	"github.com/anhhuy04/ai-lms-prd/internal/metrics"
)

// ProgressFunc is called after each record with its outcome and the batch size
type ProgressFunc func(outcome Outcome, total int)

// Seeder inserts records one at a time and accounts for every result
type Seeder struct {
	store      Store
	policy     Policy
	keyColumns []string
	labelField string
	progress   ProgressFunc
	metrics    *metrics.Metrics
}

type Option func(*Seeder)

func WithPolicy(policy Policy) Option {
	return func(s *Seeder) {
		s.policy = policy
	}
}

// WithKeyColumns sets the columns compared by PolicySkipIfExists
func WithKeyColumns(columns ...string) Option {
	return func(s *Seeder) {
		s.keyColumns = append([]string(nil), columns...)
	}
}

// WithLabelField names the record field used to label outcomes in logs
func WithLabelField(field string) Option {
	return func(s *Seeder) {
		s.labelField = field
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(s *Seeder) {
		s.progress = fn
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Seeder) {
		s.metrics = m
	}
}

// New creates a seeder bound to store
func New(store Store, opts ...Option) (*Seeder, error) {
	if store == nil {
		return nil, fmt.Errorf("seeder requires a store")
	}

	s := &Seeder{
		store:      store,
		policy:     PolicyAlwaysInsert,
		labelField: "name",
	}
	for _, opt := range opts {
		opt(s)
	}

	switch s.policy {
	case PolicyAlwaysInsert:
	case PolicySkipIfExists:
		if _, ok := store.(ExistenceChecker); !ok {
			return nil, fmt.Errorf("policy %s requires a store that supports existence checks", s.policy)
		}
		if len(s.keyColumns) == 0 {
			return nil, fmt.Errorf("policy %s requires at least one key column", s.policy)
		}
	default:
		return nil, fmt.Errorf("unknown seed policy: %s", s.policy)
	}

	return s, nil
}

// Seed submits records to table in input order. A failing record never
// stops the batch, and each record is attempted exactly once. ctx is passed
// through to the store and is not checked between records.
func (s *Seeder) Seed(ctx context.Context, table string, records []Record) *BatchReport {
	start := time.Now()
	report := &BatchReport{
		Table:    table,
		Outcomes: make([]Outcome, 0, len(records)),
	}

	logger.Infof("Seeding %d records into %s (policy: %s)", len(records), table, s.policy)

	for i, record := range records {
		outcome := s.submit(ctx, table, i, record)
		report.record(outcome)

		if outcome.Status == StatusFailed {
			logger.WithFields(logger.Fields{
				"table":  table,
				"index":  i,
				"label":  outcome.Label,
				"reason": outcome.Reason,
			}).Warn("record insert failed")
		} else {
			logger.Debugf("Record %d/%d (%s) %s", i+1, len(records), outcome.Label, outcome.Status)
		}

		s.metrics.IncRecord(string(outcome.Status))
		if s.progress != nil {
			s.progress(outcome, len(records))
		}
	}

	report.Duration = time.Since(start)
	s.metrics.ObserveBatch(report.Failed, report.Duration)

	logger.Infof("Seeding %s finished: %d/%d succeeded, %d failed, %d skipped",
		table, report.Succeeded, report.Total, report.Failed, report.Skipped)

	return report
}

// submit handles one record. A panic in the store becomes a failed outcome.
func (s *Seeder) submit(ctx context.Context, table string, index int, record Record) (outcome Outcome) {
	outcome = Outcome{
		Index: index,
		Label: s.label(record, index),
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = StatusFailed
			outcome.Reason = fmt.Sprintf("panic: %v", r)
		}
	}()

	if s.policy == PolicySkipIfExists {
		exists, err := s.store.(ExistenceChecker).Exists(ctx, table, s.match(record))
		if err != nil {
			outcome.Status = StatusFailed
			outcome.Reason = fmt.Sprintf("existence check failed: %v", err)
			return outcome
		}
		if exists {
			outcome.Status = StatusSkipped
			return outcome
		}
	}

	if err := s.store.Insert(ctx, table, record); err != nil {
		outcome.Status = StatusFailed
		outcome.Reason = err.Error()
		return outcome
	}

	outcome.Status = StatusInserted
	return outcome
}

func (s *Seeder) match(record Record) map[string]any {
	match := make(map[string]any, len(s.keyColumns))
	for _, column := range s.keyColumns {
		match[column] = record[column]
	}
	return match
}

func (s *Seeder) label(record Record, index int) string {
	if s.labelField != "" {
		if value, ok := record[s.labelField]; ok && value != nil {
			return fmt.Sprint(value)
		}
	}
	return fmt.Sprintf("record %d", index+1)
}
