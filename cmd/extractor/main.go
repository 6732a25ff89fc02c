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
	"climate-harvester/internal/services"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

func main() {
	var stations, years app.ListFlag
	flag.Var(&stations, "s", "Space-separated station ids (required, repeatable)")
	flag.Var(&years, "y", "Space-separated years to extract for stations without coverage (required, repeatable)")
	format := flag.String("f", "csv", "Format requested from the upstream weather service")
	// Values may follow -s and -y without quoting: -s 26953 31688 -y 2022 2023
	flag.CommandLine.Parse(app.JoinListArgs(os.Args[1:], "s", "y"))

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", flag.Args())
		flag.Usage()
		os.Exit(1)
	}
	if len(stations) == 0 || len(years) == 0 {
		fmt.Fprintln(os.Stderr, "both -s and -y are required")
		flag.Usage()
		os.Exit(1)
	}

	if err := app.ValidateStationIDs(stations); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -s: %v\n", err)
		os.Exit(1)
	}

	yearList, err := years.Ints()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -y: %v\n", err)
		os.Exit(1)
	}

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

	logger, err := app.NewLogger(cfg, "data_extraction")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[EXTRACTOR_START] Starting weather data extraction", logging.Fields{
		"version":  app.Version,
		"stations": []string(stations),
		"years":    yearList,
		"format":   *format,
		"data_dir": cfg.DataDir,
	})

	a, err := app.New(ctx, cfg, logger, metrics.NewCollector("data_extraction"))
	if err != nil {
		logger.Fatal(ctx, "[EXTRACTOR_ERROR] Failed to initialize", logging.Fields{}, err)
	}
	defer a.Close()

	result, err := a.Extraction().Run(ctx, services.ExtractRequest{
		Stations: stations,
		Years:    yearList,
		Format:   *format,
	})
	a.PushMetrics(ctx)

	if result != nil {
		app.PrintExtraction(os.Stdout, result)
	}
	if err != nil {
		// Partial work is already on disk; failures are reported through the log only.
		logger.Error(ctx, "[EXTRACTOR_ERROR] Extraction run ended early", logging.Fields{}, err)
	}
}
