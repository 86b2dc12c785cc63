// Command bdp-migrate applies the registry's embedded schema migrations
// against DATABASE_URL. It is a thin wrapper over internal/db.Migrate,
// following the teacher's pattern of a minimal main() that delegates
// immediately into the library package it fronts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nishad/bdp/internal/config"
	"github.com/nishad/bdp/internal/db"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:   "bdp-migrate",
	Short: "Apply bdp registry schema migrations",
	Long: `bdp-migrate applies every embedded migration up to the latest version
against the registry database. It is safe to run on every deploy: the
underlying migrator is a no-op once the schema is current.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL / config file)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	url := databaseURL
	if url == "" {
		url = cfg.Database.URL
	}

	if err := db.Migrate(url); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
