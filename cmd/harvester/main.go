package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"climate-harvester/internal/app"
	"climate-harvester/internal/config"
	"climate-harvester/internal/scheduler"
	"climate-harvester/internal/services"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Schedule.Stations) == 0 || len(cfg.Schedule.Years) == 0 {
		fmt.Fprintln(os.Stderr, "Invalid configuration: schedule.stations and schedule.years are required")
		os.Exit(1)
	}
	if err := app.ValidateStationIDs(cfg.Schedule.Stations); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: schedule.stations: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg, "harvester")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting climate harvester", logging.Fields{
		"version":  app.Version,
		"interval": cfg.Schedule.Interval.String(),
		"stations": cfg.Schedule.Stations,
		"years":    cfg.Schedule.Years,
	})

	a, err := app.New(ctx, cfg, logger, metrics.NewCollector("harvester"))
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to initialize", logging.Fields{}, err)
	}
	defer a.Close()

	extraction := a.Extraction()
	transformation := a.Transformation()

	job := func(ctx context.Context) error {
		extracted, err := extraction.Run(ctx, services.ExtractRequest{
			Stations: cfg.Schedule.Stations,
			Years:    cfg.Schedule.Years,
		})
		if err != nil {
			return fmt.Errorf("extraction: %w", err)
		}
		app.PrintExtraction(os.Stdout, extracted)

		transformed, err := transformation.Run(ctx, services.TransformRequest{
			Name:   cfg.Schedule.OutputName,
			Format: cfg.Schedule.OutputFormat,
		})
		if err != nil {
			return fmt.Errorf("transformation: %w", err)
		}
		app.PrintTransformation(os.Stdout, transformed)

		a.PushMetrics(ctx)
		return nil
	}

	sched := scheduler.New(cfg.Schedule.Interval, job, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to start scheduler", logging.Fields{}, err)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Stopping scheduler...", logging.Fields{})
	sched.Stop()
	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Harvester stopped", logging.Fields{})
}
