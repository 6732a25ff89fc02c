package services

import (
	"context"

	"climate-harvester/internal/models"
	"climate-harvester/internal/repository"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

// WeatherService serves published aggregates to the read API
type WeatherService struct {
	repo     repository.WeatherRepository
	coverage *CoverageService
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewWeatherService creates a new weather service
func NewWeatherService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherService {
	return &WeatherService{
		repo:     repo,
		coverage: NewCoverageService(repo, logger, metricsCollector),
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// GetMonthlyAggregates retrieves aggregates with filtering
func (s *WeatherService) GetMonthlyAggregates(ctx context.Context, filter repository.AggregateFilter) ([]*models.MonthlyAggregate, int, error) {
	return s.repo.GetMonthlyAggregates(ctx, filter)
}

// GetStations retrieves station reference rows
func (s *WeatherService) GetStations(ctx context.Context, limit, offset int) ([]*models.Station, error) {
	return s.repo.ListStations(ctx, limit, offset)
}

// GetCoverage returns the latest published month for a station
func (s *WeatherService) GetCoverage(ctx context.Context, stationID string) models.Coverage {
	return s.coverage.LatestCoverage(ctx, stationID)
}

// HealthCheck reports whether the relational store is reachable
func (s *WeatherService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
