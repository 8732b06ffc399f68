package queue

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewJob(t *testing.T) {
	a := NewJob("classes")
	b := NewJob("classes")

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected unique non-empty IDs, got %q and %q", a.ID, b.ID)
	}
	if a.Table != "classes" {
		t.Errorf("Expected table classes, got %s", a.Table)
	}
	if a.SubmittedAt.IsZero() {
		t.Error("Expected submission time to be set")
	}
}

func TestJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		job     *Job
		wantErr bool
	}{
		{name: "inline records", job: &Job{ID: "1", Records: []map[string]any{{"name": "A"}}}},
		{name: "dataset", job: &Job{ID: "2", Dataset: "data/classes.yaml"}},
		{name: "neither", job: &Job{ID: "3"}, wantErr: true},
		{name: "both", job: &Job{ID: "4", Dataset: "x.yaml", Records: []map[string]any{{"name": "A"}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidJob) {
				t.Errorf("Expected ErrInvalidJob, got %v", err)
			}
		})
	}
}

func TestDecodeJob(t *testing.T) {
	job := NewJob("classes")
	job.Records = []map[string]any{{"name": "A", "class_settings": map[string]any{"defaults": map[string]any{"lock_class": false}}}}
	job.Policy = "skip-if-exists"
	job.KeyColumns = []string{"name"}

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	decoded, err := DecodeJob(data)
	if err != nil {
		t.Fatalf("DecodeJob() error = %v", err)
	}
	if decoded.ID != job.ID || decoded.Policy != job.Policy || len(decoded.Records) != 1 {
		t.Errorf("Decoded job does not match: %+v", decoded)
	}
	if _, ok := decoded.Records[0]["class_settings"].(map[string]any); !ok {
		t.Errorf("Expected nested settings to decode as a map, got %T", decoded.Records[0]["class_settings"])
	}

	if _, err := DecodeJob([]byte("not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
