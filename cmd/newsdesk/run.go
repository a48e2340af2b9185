package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsdesk/internal/observability"
	"github.com/jonathan/newsdesk/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and print the report",
	Long: `Execute a single pipeline run: select topics, fetch candidates, rewrite,
score, and store accepted drafts. The run takes the same guard as the
service, so it is refused while a scheduled run is in progress.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	orch, closeLLM, err := a.orchestrator(ctx, store)
	if err != nil {
		return err
	}
	defer closeLLM()

	guard, closeRedis, err := a.guard(ctx)
	if err != nil {
		return err
	}
	defer closeRedis()

	sched, err := scheduler.New(orch, guard, scheduler.Options{}, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = sched.Stop(context.Background()) }()

	report, runErr := sched.RunNow(ctx)
	observability.NewPrinter(os.Stdout).PrintRunReport(report, runErr)
	return runErr
}
