package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anhhuy04/ai-lms-prd/internal/migration"
	"github.com/anhhuy04/ai-lms-prd/internal/seeder"
)

func TestCheckMigration_QuestionBank(t *testing.T) {
	var out bytes.Buffer
	if err := checkMigration(&out, "../../db/02_create_question_bank_tables.sql"); err != nil {
		t.Fatalf("checkMigration() error = %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Basic validation passed",
		"  - learning_objectives",
		"  - assignment_distributions",
		"8 indexes",
		"3 triggers",
		"10 RLS policies",
		"does not execute SQL",
		"3. Check index performance",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q\n%s", want, text)
		}
	}
	if strings.Contains(text, "WARNING") {
		t.Errorf("Expected no warnings, got\n%s", text)
	}
}

func TestCheckMigration_WarningDoesNotFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "danger.sql")
	if err := os.WriteFile(path, []byte("TRUNCATE TABLE users;\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	var out bytes.Buffer
	if err := checkMigration(&out, path); err != nil {
		t.Fatalf("Expected warnings not to fail, got %v", err)
	}
	if strings.Count(out.String(), "WARNING:") != 1 || !strings.Contains(out.String(), "truncate") {
		t.Errorf("Expected exactly one truncate warning\n%s", out.String())
	}
	if !strings.Contains(out.String(), "creates no tables") {
		t.Errorf("Expected empty summary\n%s", out.String())
	}
}

func TestCheckMigration_FatalErrors(t *testing.T) {
	dir := t.TempDir()
	blank := filepath.Join(dir, "blank.sql")
	if err := os.WriteFile(blank, []byte("   \n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "missing", path: filepath.Join(dir, "missing.sql"), want: migration.ErrFileMissing},
		{name: "whitespace", path: blank, want: migration.ErrFileEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := checkMigration(&out, tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if strings.Contains(out.String(), "WARNING") {
				t.Errorf("Expected no warnings before the fatal error\n%s", out.String())
			}
		})
	}
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	progress := progressPrinter(&out)

	progress(seeder.Outcome{Index: 0, Label: "Tin học đại cương", Status: seeder.StatusInserted}, 22)
	progress(seeder.Outcome{Index: 1, Label: "Đồ họa máy tính", Status: seeder.StatusFailed, Reason: "duplicate key"}, 22)
	progress(seeder.Outcome{Index: 2, Label: "Cơ sở dữ liệu", Status: seeder.StatusSkipped}, 22)

	want := "[OK] [1/22] Created: Tin học đại cương\n" +
		"[ERROR] [2/22] Failed to create Đồ họa máy tính: duplicate key\n" +
		"[SKIP] [3/22] Already present: Cơ sở dữ liệu\n"
	if out.String() != want {
		t.Errorf("Unexpected progress output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, &seeder.BatchReport{Table: "classes", Total: 3, Succeeded: 2, Failed: 1})

	text := out.String()
	if !strings.Contains(text, "Succeeded: 2/3") || !strings.Contains(text, "Failed: 1/3") {
		t.Errorf("Expected counts in report\n%s", text)
	}
	if !strings.Contains(text, "1 records were not created") {
		t.Errorf("Expected failure line\n%s", text)
	}

	out.Reset()
	printReport(&out, &seeder.BatchReport{Table: "classes", Total: 2, Succeeded: 2})
	if !strings.Contains(out.String(), "All 2 records are in classes") {
		t.Errorf("Expected success line\n%s", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "dbops version") {
		t.Errorf("Unexpected version output %q", out.String())
	}
}
