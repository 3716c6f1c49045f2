package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/application-tracker/internal/config"
	"github.com/jonathan/application-tracker/internal/db"
	"github.com/jonathan/application-tracker/internal/importer"
	"github.com/jonathan/application-tracker/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort        int
	serveDatabaseURL string
	serveSeed        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server exposing the dashboard, application CRUD, CSV export and portal import.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: PORT env var or 5050)")
	serveCmd.Flags().StringVar(&serveDatabaseURL, "database-url", "", "SQLite path or PostgreSQL URL (default: DATABASE_URL env var or jobtracker.db)")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", true, "Insert sample applications when the store is empty (default: SEED_SAMPLE_DATA env var or true)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := config.FromEnv()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		env.Port = servePort
	}
	if cmd.Flags().Changed("database-url") {
		env.DatabaseURL = serveDatabaseURL
	}
	if cmd.Flags().Changed("seed") {
		env.SeedSampleData = serveSeed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, env.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if env.SeedSampleData {
		n, err := db.SeedSampleData(ctx, store, time.Now())
		if err != nil {
			return fmt.Errorf("failed to seed sample data: %w", err)
		}
		if n > 0 {
			log.Printf("[serve] Seeded %d sample applications", n)
		}
	}

	srv, err := server.New(server.Config{
		Port:     env.Port,
		Store:    store,
		Importer: importer.NewRunner(env.DatabaseURL),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
