package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anhhuy04/ai-lms-prd/internal/migration"
)

const rule = "=================================================="

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := migrateFile
	if path == "" {
		path = cfg.Migration.File
	}
	return checkMigration(cmd.OutOrStdout(), path)
}

// checkMigration prints the advisory report for path. Only a missing or
// empty file is an error; warnings are printed and ignored.
func checkMigration(out io.Writer, path string) error {
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Migration Check")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Migration file: %s\n\n", path)

	fmt.Fprintln(out, "Reading migration file...")
	sql, err := migration.ReadFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Migration file read successfully (%d characters)\n\n", len([]rune(sql)))

	fmt.Fprintln(out, "Validating SQL...")
	result, err := migration.CheckSQL(sql)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "WARNING: %s\n", w)
	}
	fmt.Fprintf(out, "Basic validation passed\n\n")

	printSummary(out, result.Summary)

	fmt.Fprintln(out, "The migration is applied out-of-band; dbops does not execute SQL.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Verify tables in the Supabase dashboard")
	fmt.Fprintln(out, "  2. Test RLS policies")
	fmt.Fprintln(out, "  3. Check index performance")
	return nil
}

func printSummary(out io.Writer, s *migration.Summary) {
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Migration Summary")
	fmt.Fprintln(out, rule)

	if len(s.Tables) == 0 {
		fmt.Fprintln(out, "This migration creates no tables.")
	} else {
		fmt.Fprintln(out, "This migration creates:")
		for _, table := range s.Tables {
			fmt.Fprintf(out, "  - %s\n", table)
		}
	}
	fmt.Fprintln(out)

	var extras []string
	if s.Indexes > 0 {
		extras = append(extras, plural(s.Indexes, "index", "indexes"))
	}
	if s.Triggers > 0 {
		extras = append(extras, plural(s.Triggers, "trigger", "triggers"))
	}
	if s.Functions > 0 {
		extras = append(extras, plural(s.Functions, "function", "functions"))
	}
	if s.Policies > 0 {
		extras = append(extras, plural(s.Policies, "RLS policy", "RLS policies"))
	}
	if s.RLSTables > 0 {
		extras = append(extras, plural(s.RLSTables, "table with RLS enabled", "tables with RLS enabled"))
	}
	if len(extras) > 0 {
		fmt.Fprintln(out, "And associated:")
		fmt.Fprintf(out, "  - %s\n\n", strings.Join(extras, "\n  - "))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
