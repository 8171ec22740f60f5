// Command syncjob runs a single sync job, reports it and exits non-zero when
// the run failed. It is meant for cron or a container scheduler.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/channelsync/internal/bootstrap"
	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/infrastructure/config"
	"github.com/erp/channelsync/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 {
		printUsage(os.Stderr)
		return 2
	}
	jobType, err := integration.ParseJobType(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		printUsage(os.Stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		return 1
	}
	log := app.Logger
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
	}()

	job, err := app.Job(jobType)
	if err != nil {
		log.Error("Job not available", zap.String("job", jobType.String()), zap.Error(err))
		return 1
	}

	result, err := app.Runner.Run(ctx, job, scheduler.TriggerCLI)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Job interrupted", zap.String("job", jobType.String()))
		}
		return 1
	}

	log.Info("Job finished",
		zap.String("job", jobType.String()),
		zap.String("run_id", result.ID.String()),
		zap.String("status", result.Status.String()),
		zap.Duration("duration", result.Duration()),
	)
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage:
  syncjob <inventory|push|orders|shipments>

Jobs:
  inventory   Reconcile local products against the marketplace inventory
  push        Push local stock levels to the marketplace
  orders      Ingest new and updated marketplace orders
  shipments   Poll carriers and advance active shipments`)
}
