package dto

import (
	"github.com/anhhuy04/ai-lms-prd/internal/migration"
)

// SeedRequest represents a seeding request. Exactly one of Records and
// Dataset must be present; an empty records list is allowed.
type SeedRequest struct {
	Table      string           `json:"table"`
	Dataset    string           `json:"dataset"`
	Records    []map[string]any `json:"records"`
	Policy     string           `json:"policy"`      // Optional, "always-insert" or "skip-if-exists"
	KeyColumns []string         `json:"key_columns"` // Required with skip-if-exists
	Async      bool             `json:"async"`       // Queue the job when a queue is configured
}

// QueuedResponse is returned when a seed job was handed to the queue
type QueuedResponse struct {
	Queued bool   `json:"queued"`
	JobID  string `json:"job_id"`
}

// ValidateMigrationRequest carries migration text to check
type ValidateMigrationRequest struct {
	SQL string `json:"sql"`
}

// ValidateMigrationResponse reports the advisory check of a migration
type ValidateMigrationResponse struct {
	Valid      bool                `json:"valid"`
	Characters int                 `json:"characters"`
	Warnings   []migration.Warning `json:"warnings"`
	Messages   []string            `json:"messages"`
	Summary    *migration.Summary  `json:"summary"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
