package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/observability"
	"github.com/jonathan/application-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var statsDatabaseURL string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard summary",
	Long:  "Prints totals, response rate, the stage breakdown, monthly velocity and the most recent applications.",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsDatabaseURL, "database-url", "", "SQLite path or PostgreSQL URL (default: DATABASE_URL env var or jobtracker.db)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	store, err := db.Open(ctx, databaseURLOrEnv(statsDatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	dash, err := tracker.NewService(store, nil, nil).Dashboard(ctx)
	if err != nil {
		return err
	}
	observability.NewPrinter(os.Stdout).PrintDashboard(dash)
	return nil
}
