// Package main provides the jobtrack CLI: the tracker web server, the portal crawler and
// a few offline helpers over the same store.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "jobtrack",
	Short:         "Job application tracker",
	Long:          "jobtrack records job applications, serves a small HTTP API over them and imports application tables from job portals with a headless browser.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
