package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/anhhuy04/ai-lms-prd/internal/backendfactory"
	"github.com/anhhuy04/ai-lms-prd/internal/dataset"
	"github.com/anhhuy04/ai-lms-prd/internal/executor"
	"github.com/anhhuy04/ai-lms-prd/internal/seeder"
)

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if seedBackend != "" {
		cfg.Store.Backend = seedBackend
	}

	file := seedFile
	if file == "" {
		file = cfg.Seed.File
	}
	policy := seedPolicy
	if policy == "" {
		policy = cfg.Seed.Policy
	}
	keys := seedKeys
	if len(keys) == 0 {
		keys = cfg.Seed.KeyColumns
	}
	if _, err := seeder.ParsePolicy(policy); err != nil {
		return err
	}

	store, err := backendfactory.Open(cfg.Connection())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	exec := executor.NewExecutor(store, dataset.NewLoader(), executor.Defaults{
		Table:      cfg.Seed.Table,
		Policy:     cfg.Seed.Policy,
		KeyColumns: cfg.Seed.KeyColumns,
		LabelField: cfg.Seed.LabelField,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeding records from %s into the %s store...\n", file, store.Name())

	ctx := executor.SetExecutionContext(context.Background(), currentUser(), "cli")
	report, err := exec.ExecuteSync(ctx, &executor.Request{
		Table:      seedTable,
		Dataset:    file,
		Policy:     policy,
		KeyColumns: keys,
	}, seeder.WithProgress(progressPrinter(out)))
	if err != nil {
		return err
	}

	printReport(out, report)

	if seedFailOnError && report.HasFailures() {
		return fmt.Errorf("%d of %d records failed", report.Failed, report.Total)
	}
	return nil
}

// progressPrinter prints one line per record as it completes
func progressPrinter(out io.Writer) seeder.ProgressFunc {
	return func(o seeder.Outcome, total int) {
		switch o.Status {
		case seeder.StatusInserted:
			fmt.Fprintf(out, "[OK] [%d/%d] Created: %s\n", o.Index+1, total, o.Label)
		case seeder.StatusSkipped:
			fmt.Fprintf(out, "[SKIP] [%d/%d] Already present: %s\n", o.Index+1, total, o.Label)
		default:
			fmt.Fprintf(out, "[ERROR] [%d/%d] Failed to create %s: %s\n", o.Index+1, total, o.Label, o.Reason)
		}
	}
}

func printReport(out io.Writer, r *seeder.BatchReport) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Result:")
	fmt.Fprintf(out, "   Succeeded: %d/%d\n", r.Succeeded, r.Total)
	if r.Skipped > 0 {
		fmt.Fprintf(out, "   Skipped: %d/%d\n", r.Skipped, r.Total)
	}
	fmt.Fprintf(out, "   Failed: %d/%d\n", r.Failed, r.Total)
	fmt.Fprintln(out)

	if r.HasFailures() {
		fmt.Fprintf(out, "%d records were not created.\n", r.Failed)
		return
	}
	fmt.Fprintf(out, "All %d records are in %s.\n", r.Total, r.Table)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "cli"
}
