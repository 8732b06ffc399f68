package seeder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Record is a single row to insert, keyed by column name. The seeder never
// mutates it.
type Record = map[string]any

// Status is the result of submitting one record
type Status string

const (
	StatusInserted Status = "inserted"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Outcome describes what happened to the record at Index
type Outcome struct {
	Index  int    `json:"index"`
	Label  string `json:"label,omitempty"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// BatchReport aggregates the outcomes of one Seed call.
// Succeeded + Failed always equals Total, and Skipped is counted in Succeeded.
type BatchReport struct {
	Table     string        `json:"table"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Outcomes  []Outcome     `json:"outcomes"`
	Duration  time.Duration `json:"duration_ns"`
}

// HasFailures reports whether any record failed
func (r *BatchReport) HasFailures() bool {
	return r.Failed > 0
}

func (r *BatchReport) record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Total++
	switch o.Status {
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
		r.Succeeded++
	default:
		r.Succeeded++
	}
}

// Store is the tabular store records are written to
type Store interface {
	Insert(ctx context.Context, table string, record map[string]any) error
}

// ExistenceChecker is implemented by stores that can look a row up by
// column equality. Required by PolicySkipIfExists.
type ExistenceChecker interface {
	Exists(ctx context.Context, table string, match map[string]any) (bool, error)
}

// Policy controls what happens to a record that may already be stored
type Policy string

const (
	PolicyAlwaysInsert Policy = "always-insert"
	PolicySkipIfExists Policy = "skip-if-exists"
)

// ParsePolicy maps a configured name to a Policy. Empty selects
// PolicyAlwaysInsert.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(PolicyAlwaysInsert):
		return PolicyAlwaysInsert, nil
	case string(PolicySkipIfExists):
		return PolicySkipIfExists, nil
	default:
		return "", fmt.Errorf("unknown seed policy: %s (supported: %s, %s)", name, PolicyAlwaysInsert, PolicySkipIfExists)
	}
}
