package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/newsdesk/internal/scheduler"
	"github.com/jonathan/newsdesk/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP trigger",
	Long: `Start the long-lived service: pipeline runs fire on the configured cron
schedule, and POST /run triggers one on demand. Overlapping runs are refused,
across processes when redis.addr is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
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

	loc, err := a.cfg.Scheduler.Location()
	if err != nil {
		return err
	}
	sched, err := scheduler.New(orch, guard, scheduler.Options{
		Specs:    a.cfg.Scheduler.Times,
		Location: loc,
	}, a.logger)
	if err != nil {
		return err
	}
	sched.Start(ctx)

	port := a.cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	srv := server.New(server.Config{Port: port}, sched, store, a.logger)
	serveErr := srv.Start(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler did not stop cleanly", zap.Error(err))
	}

	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}
