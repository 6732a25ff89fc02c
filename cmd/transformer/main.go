package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"climate-harvester/internal/app"
	"climate-harvester/internal/config"
	"climate-harvester/internal/export"
	"climate-harvester/internal/services"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

func main() {
	name := flag.String("n", export.DefaultName, "Output file name without extension")
	format := flag.String("t", string(export.DefaultFormat), "Output format: csv, json or parquet")
	flag.Parse()

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

	logger, err := app.NewLogger(cfg, "data_transformation")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[TRANSFORMER_START] Starting weather data transformation", logging.Fields{
		"version":  app.Version,
		"name":     *name,
		"format":   *format,
		"data_dir": cfg.DataDir,
	})

	a, err := app.New(ctx, cfg, logger, metrics.NewCollector("data_transformation"))
	if err != nil {
		logger.Fatal(ctx, "[TRANSFORMER_ERROR] Failed to initialize", logging.Fields{}, err)
	}
	defer a.Close()

	result, err := a.Transformation().Run(ctx, services.TransformRequest{
		Name:   *name,
		Format: *format,
	})
	a.PushMetrics(ctx)

	if err != nil {
		logger.Error(ctx, "[TRANSFORMER_ERROR] Transformation failed", logging.Fields{}, err)
		return
	}

	app.PrintTransformation(os.Stdout, result)
}
