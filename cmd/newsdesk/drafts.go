package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsdesk/internal/db"
	"github.com/jonathan/newsdesk/internal/observability"
)

var (
	draftsLimit int
	draftsJSON  bool
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List the newest drafts awaiting review",
	RunE:  runDrafts,
}

func init() {
	draftsCmd.Flags().IntVarP(&draftsLimit, "limit", "n", db.DefaultListLimit, "Maximum number of drafts to list")
	draftsCmd.Flags().BoolVar(&draftsJSON, "json", false, "Print drafts as JSON")
	rootCmd.AddCommand(draftsCmd)
}

func runDrafts(_ *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	drafts, err := store.ListDrafts(ctx, draftsLimit)
	if err != nil {
		return err
	}

	if draftsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(drafts)
	}
	observability.NewPrinter(os.Stdout).PrintDrafts(drafts)
	return nil
}
