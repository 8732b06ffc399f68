package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anhhuy04/ai-lms-prd/internal/config"
	"github.com/anhhuy04/ai-lms-prd/internal/logger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	configFile string

	migrateFile string

	seedFile        string
	seedTable       string
	seedPolicy      string
	seedKeys        []string
	seedBackend     string
	seedFailOnError bool
)

var rootCmd = &cobra.Command{
	Use:   "dbops",
	Short: "dbops - migration checks and batch seeding",
	Long: `dbops checks SQL migrations before they are applied out-of-band and
seeds records into a hosted store one at a time, reporting every result.

Configuration comes from dbops.yaml (in . or ./config), a file given with
--config, and DBOPS_* environment variables. Store credentials are read
from DBOPS_STORE_API_KEY or DBOPS_STORE_PASSWORD and never compiled in.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Check a SQL migration file",
	Long: `Migrate reads a migration file, rejects it when it is missing or empty,
warns about dangerous statements and summarizes what it creates.

The SQL is never executed: migrations are applied out-of-band.

Example:
  dbops migrate
  dbops migrate --file db/02_create_question_bank_tables.sql`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert dataset records into the store",
	Long: `Seed loads records from a YAML or JSON dataset (a local path or
s3://bucket/key) and inserts them one at a time. A failed record never
stops the batch.

By default every record is inserted, so running seed twice duplicates
rows. Use --policy skip-if-exists with --key to skip records whose key
columns already match a stored row.

Example:
  dbops seed
  dbops seed --file data/classes.yaml --table classes
  dbops seed --policy skip-if-exists --key name --key subject`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dbops version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: ./dbops.yaml or ./config/dbops.yaml)")

	migrateCmd.Flags().StringVarP(&migrateFile, "file", "f", "", "Migration file (default: migration.file from config)")

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Dataset file or s3:// location (default: seed.file from config)")
	seedCmd.Flags().StringVarP(&seedTable, "table", "t", "", "Target table (default: dataset table, then seed.table)")
	seedCmd.Flags().StringVar(&seedPolicy, "policy", "", "Insert policy: always-insert or skip-if-exists")
	seedCmd.Flags().StringSliceVar(&seedKeys, "key", nil, "Key column compared by skip-if-exists (repeatable)")
	seedCmd.Flags().StringVar(&seedBackend, "backend", "", "Store backend: postgrest, postgresql or etcd")
	seedCmd.Flags().BoolVar(&seedFailOnError, "fail-on-error", false, "Exit with status 1 when any record fails")

	rootCmd.AddCommand(migrateCmd, seedCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	return cfg, nil
}
