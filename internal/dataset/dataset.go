package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anhhuy04/ai-lms-prd/internal/seeder"
)

// Format is the encoding of a dataset file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Dataset is a batch of records and, optionally, the table they belong to
type Dataset struct {
	Table   string          `json:"table,omitempty"`
	Records []seeder.Record `json:"records"`
}

// FormatFor picks the format from a file name. Unknown extensions are YAML,
// which also accepts JSON documents.
func FormatFor(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Parse decodes a dataset. The document is either a list of records or a
// mapping with "table" and "records" keys.
func Parse(data []byte, format Format) (*Dataset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON dataset: %w", err)
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", format)
	}

	return fromDocument(normalize(doc))
}

func fromDocument(doc any) (*Dataset, error) {
	switch v := doc.(type) {
	case []any:
		records, err := toRecords(v)
		if err != nil {
			return nil, err
		}
		return &Dataset{Records: records}, nil

	case map[string]any:
		ds := &Dataset{}
		if table, ok := v["table"]; ok && table != nil {
			name, ok := table.(string)
			if !ok {
				return nil, fmt.Errorf("dataset table must be a string, got %T", table)
			}
			ds.Table = name
		}
		raw, ok := v["records"]
		if !ok {
			return nil, fmt.Errorf("dataset mapping must contain a records list")
		}
		if raw == nil {
			ds.Records = []seeder.Record{}
			return ds, nil
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("dataset records must be a list, got %T", raw)
		}
		records, err := toRecords(list)
		if err != nil {
			return nil, err
		}
		ds.Records = records
		return ds, nil

	default:
		return nil, fmt.Errorf("dataset must be a list of records or a mapping, got %T", doc)
	}
}

func toRecords(list []any) ([]seeder.Record, error) {
	records := make([]seeder.Record, 0, len(list))
	for i, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is not a mapping (got %T)", i+1, item)
		}
		records = append(records, record)
	}
	return records, nil
}

// normalize converts non-string-keyed YAML maps into map[string]any
// and whole JSON numbers into int64 so records encode the same way
// whichever format they came from.
func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	case int:
		return int64(v)
	default:
		return v
	}
}
