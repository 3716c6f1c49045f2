package main

import (
	"fmt"
	"os"

	"github.com/jonathan/application-tracker/internal/status"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <label>...",
	Short: "Show the canonical status for raw portal labels",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(_ *cobra.Command, args []string) error {
	n := status.Default()
	for _, raw := range args {
		_, _ = fmt.Fprintf(os.Stdout, "%s → %s\n", raw, n.Normalize(raw))
	}
	return nil
}
