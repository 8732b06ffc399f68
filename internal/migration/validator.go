package migration

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrFileMissing is returned when the migration file does not exist
	ErrFileMissing = errors.New("migration file not found")
	// ErrFileEmpty is returned when the migration holds only whitespace
	ErrFileEmpty = errors.New("migration file is empty")
)

// DangerousKeywords are matched case-insensitively against the raw SQL
var DangerousKeywords = []string{"drop database", "drop schema", "truncate"}

// Warning flags a potentially destructive statement. Warnings are advisory
// and never fail validation.
type Warning struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

func (w Warning) String() string {
	if w.Count == 1 {
		return fmt.Sprintf("found potentially dangerous statement: %s", w.Keyword)
	}
	return fmt.Sprintf("found potentially dangerous statement: %s (%d occurrences)", w.Keyword, w.Count)
}

// ReadFile loads a migration file
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileMissing, path)
		}
		return "", fmt.Errorf("failed to read migration file %s: %w", path, err)
	}

	content := string(data)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: %s", ErrFileEmpty, path)
	}
	return content, nil
}

// Validate runs the basic checks on sql. Blank input is an error; otherwise
// one warning is returned per dangerous keyword present, in keyword order.
// The SQL is never parsed or executed, so keywords inside comments or
// string literals are reported too.
func Validate(sql string) ([]Warning, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrFileEmpty
	}

	lower := strings.ToLower(sql)
	var warnings []Warning
	for _, keyword := range DangerousKeywords {
		if n := strings.Count(lower, keyword); n > 0 {
			warnings = append(warnings, Warning{Keyword: keyword, Count: n})
		}
	}
	return warnings, nil
}

// Result is the outcome of checking one migration file
type Result struct {
	Path       string    `json:"path,omitempty"`
	Characters int       `json:"characters"`
	Warnings   []Warning `json:"warnings"`
	Summary    *Summary  `json:"summary"`
}

// Check reads, validates and summarizes the migration at path
func Check(path string) (*Result, error) {
	sql, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	result, err := CheckSQL(sql)
	if err != nil {
		return nil, err
	}
	result.Path = path
	return result, nil
}

// CheckSQL validates and summarizes migration text
func CheckSQL(sql string) (*Result, error) {
	warnings, err := Validate(sql)
	if err != nil {
		return nil, err
	}
	if warnings == nil {
		warnings = []Warning{}
	}

	return &Result{
		Characters: len([]rune(sql)),
		Warnings:   warnings,
		Summary:    Summarize(sql),
	}, nil
}
