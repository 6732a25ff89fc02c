package services

import (
	"context"

	"climate-harvester/internal/models"
	"climate-harvester/internal/repository"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

// CoverageService reports how far each station's published aggregates reach
type CoverageService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCoverageService creates a new coverage service
func NewCoverageService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CoverageService {
	return &CoverageService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// LatestCoverage returns the latest month stored for stationID. A station with no rows is
// CoverageNotFound; a storage failure is CoverageError and is never mistaken for "no data".
func (s *CoverageService) LatestCoverage(ctx context.Context, stationID string) models.Coverage {
	latest, err := s.repo.GetLatestMonthYear(ctx, stationID)

	switch {
	case err == nil:
		s.logger.Info(ctx, "[COVERAGE_FOUND] Latest stored month resolved", logging.Fields{
			"station_id": stationID,
			"latest":     latest.String(),
		})
		return models.Coverage{StationID: stationID, Status: models.CoverageFound, Latest: latest}

	case repository.IsNotFound(err):
		s.logger.Info(ctx, "[COVERAGE_NONE] No stored data for station", logging.Fields{
			"station_id": stationID,
		})
		return models.Coverage{StationID: stationID, Status: models.CoverageNotFound}

	default:
		s.logger.Error(ctx, "[COVERAGE_ERROR] Coverage lookup failed", logging.Fields{
			"station_id": stationID,
		}, err)
		return models.Coverage{StationID: stationID, Status: models.CoverageError, Err: err}
	}
}
