package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"climate-harvester/internal/app"
	"climate-harvester/internal/config"
	"climate-harvester/internal/models"
	"climate-harvester/internal/rawstore"
	"climate-harvester/internal/services"
	"climate-harvester/pkg/logging"
)

// inspect previews the monthly aggregates that a transformation run would publish,
// reading only the raw store. Nothing is written to the database or the remote store.
func main() {
	station := flag.String("s", "", "Only report this station id")
	verbose := flag.Bool("v", false, "Log raw store reads")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("inspect", app.Version, logging.WarnLevel)
	if *verbose {
		logger.SetLevel(logging.DebugLevel)
	}
	ctx := context.Background()

	raw, err := rawstore.New(cfg.DataDir, cfg.StationDataFile, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open raw store: %v\n", err)
		os.Exit(1)
	}

	observations, err := raw.ReadObservations(ctx)
	if err != nil {
		logger.Fatal(ctx, "[INSPECT_ERROR] Failed to read raw extracts", logging.Fields{"data_dir": cfg.DataDir}, err)
	}
	stations, err := raw.ReadStations(ctx)
	if err != nil {
		logger.Fatal(ctx, "[INSPECT_ERROR] Failed to read station reference", logging.Fields{"data_dir": cfg.DataDir}, err)
	}

	missing := 0
	for _, obs := range observations {
		if obs.TemperatureCelsius == nil {
			missing++
		}
	}

	aggregates, err := services.Aggregate(observations, stations)
	if err != nil {
		logger.Fatal(ctx, "[INSPECT_ERROR] Aggregation failed", logging.Fields{}, err)
	}
	aggregates, dropped := services.Clean(aggregates, models.YearMonthOf(time.Now()))

	byStation := make(map[string][]*models.MonthlyAggregate)
	var order []string
	for _, agg := range aggregates {
		if *station != "" && agg.StationID != *station {
			continue
		}
		if _, ok := byStation[agg.StationID]; !ok {
			order = append(order, agg.StationID)
		}
		byStation[agg.StationID] = append(byStation[agg.StationID], agg)
	}

	fmt.Printf("Raw observations:   %s (%s without temperature)\n", humanize.Comma(int64(len(observations))), humanize.Comma(int64(missing)))
	fmt.Printf("Reference stations: %d\n", len(stations))
	fmt.Printf("Monthly aggregates: %s (%d future months dropped)\n\n", humanize.Comma(int64(len(aggregates))), dropped)

	// Aggregate output is sorted by station, so order follows it.
	for _, id := range order {
		app.PrintStationSummary(os.Stdout, services.Summarize(id, byStation[id]))
	}
}
