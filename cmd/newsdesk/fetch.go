package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsdesk/internal/observability"
)

var fetchJSON bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <topic>",
	Short: "Fetch candidates for a topic without rewriting them",
	Long: `Sample the configured feed sources, keep items matching the topic and print
them. Useful for checking the source roster and topic keywords.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print candidates as JSON")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(_ *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	topic := args[0]
	candidates := a.feedClient().Fetch(ctx, topic)

	if fetchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	}
	observability.NewPrinter(os.Stdout).PrintCandidates(topic, candidates)
	return nil
}
