// Package main provides the entry point for the newsdesk pipeline service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "Newsdesk content ingestion and rewriting pipeline",
	Long: `Newsdesk pulls syndicated items for rotating topics, rewrites each in one of
several editorial voices, scores the result, and stores acceptable rewrites as
drafts for editorial review.

Configuration is read from a YAML file (--config or NEWSDESK_CONFIG) merged over
built-in defaults. DATABASE_URL, DATABASE_DRIVER, GEMINI_API_KEY, REDIS_ADDR and
LOG_LEVEL override file values.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (defaults to NEWSDESK_CONFIG, then built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed progress and debug logs")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
