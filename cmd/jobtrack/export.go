package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jonathan/application-tracker/internal/config"
	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportOut         string
	exportDatabaseURL string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all applications as CSV",
	Long:  "Writes every application, newest first, as CSV with a header row.",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportDatabaseURL, "database-url", "", "SQLite path or PostgreSQL URL (default: DATABASE_URL env var or jobtracker.db)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	store, err := db.Open(ctx, databaseURLOrEnv(exportDatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", exportOut, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	n, err := export.WriteCSV(ctx, store, w)
	if err != nil {
		return err
	}
	if exportOut != "" {
		log.Printf("[export] Wrote %d applications to %s", n, exportOut)
	}
	return nil
}

// databaseURLOrEnv returns flag when set, else DATABASE_URL, else the default store.
func databaseURLOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return config.GetEnvString("DATABASE_URL", config.DefaultDatabaseURL)
}
