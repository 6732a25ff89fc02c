package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"climate-harvester/internal/models"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

// RawReader loads raw extracts and the station reference file
type RawReader interface {
	ReadObservations(ctx context.Context) ([]models.RawObservation, error)
	ReadStations(ctx context.Context) ([]models.Station, error)
}

// TransformRequest names the published artifact
type TransformRequest struct {
	Name   string
	Format string
}

// TransformResult contains transformation run statistics
type TransformResult struct {
	RunID        string
	Observations int
	Aggregated   int
	Dropped      int
	Publish      *PublishResult
	Duration     time.Duration
}

// TransformationService turns the raw store into published monthly aggregates
type TransformationService struct {
	raw       RawReader
	publisher *Publisher
	clock     clockwork.Clock
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewTransformationService creates a new transformation service
func NewTransformationService(raw RawReader, publisher *Publisher, clock clockwork.Clock, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *TransformationService {
	return &TransformationService{
		raw:       raw,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Run aggregates every raw extract, cleans the result and publishes it.
func (s *TransformationService) Run(ctx context.Context, req TransformRequest) (*TransformResult, error) {
	startTime := s.clock.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	s.logger.Info(ctx, "[TRANSFORM_START] Starting transformation run", logging.Fields{
		"name":   req.Name,
		"format": req.Format,
		"stage":  "INITIALIZATION",
	})

	observations, err := s.raw.ReadObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw extracts: %w", err)
	}

	stations, err := s.raw.ReadStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load station reference: %w", err)
	}

	rows, err := Aggregate(observations, stations)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	s.metrics.AggregatedRowsTotal.Add(float64(len(rows)))

	now := s.clock.Now()
	rows, dropped := Clean(rows, models.YearMonthOf(now))
	s.metrics.CleanedRowsDropped.Add(float64(dropped))

	ingested := now.UTC()
	for _, row := range rows {
		row.IngestTimestamp = ingested
		row.RunID = runID
	}

	s.logger.Info(ctx, "[TRANSFORM_AGGREGATE] Aggregates computed", logging.Fields{
		"observations": len(observations),
		"stations":     len(stations),
		"rows":         len(rows),
		"dropped":      dropped,
	})

	result := &TransformResult{
		RunID:        runID,
		Observations: len(observations),
		Aggregated:   len(rows),
		Dropped:      dropped,
	}

	result.Publish = s.publisher.Publish(ctx, PublishRequest{
		Rows:     rows,
		Stations: stations,
		Name:     req.Name,
		Format:   req.Format,
	})

	result.Duration = s.clock.Since(startTime)
	s.metrics.TransformDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[TRANSFORM_COMPLETE] Transformation run completed", logging.Fields{
		"rows":             result.Aggregated,
		"path":             result.Publish.Path,
		"degraded":         result.Publish.Degraded(),
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}
