package services

import (
	"context"
	"fmt"
	"time"

	"climate-harvester/internal/models"
	"climate-harvester/internal/repository"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

// maxSummaryRows bounds the aggregates read for one station summary (over 800 years of months).
const maxSummaryRows = 10000

// StatisticsService summarizes a station's published aggregates
type StatisticsService struct {
	repo    repository.WeatherRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// StationSummary computes the covered range and temperature extremes for stationID.
// A station without published rows yields a *repository.NotFoundError.
func (s *StatisticsService) StationSummary(ctx context.Context, stationID string) (*models.StationSummary, error) {
	startTime := time.Now()

	rows, _, err := s.repo.GetMonthlyAggregates(ctx, repository.AggregateFilter{
		StationID: &stationID,
		Limit:     maxSummaryRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregates: %w", err)
	}
	if len(rows) == 0 {
		return nil, &repository.NotFoundError{Resource: "weather_data", ID: stationID}
	}

	summary := Summarize(stationID, rows)

	s.logger.Debug(ctx, "[STATS_SUMMARY] Station summary computed", logging.Fields{
		"station_id":  stationID,
		"months":      summary.Months,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	return summary, nil
}

// Summarize reduces rows to a summary, counting each (year, month) once.
// When a month was published more than once the most recently ingested row wins.
func Summarize(stationID string, rows []*models.MonthlyAggregate) *models.StationSummary {
	latest := make(map[models.YearMonth]*models.MonthlyAggregate, len(rows))
	for _, row := range rows {
		ym := models.YearMonth{Year: row.Year, Month: row.Month}
		if prev, ok := latest[ym]; !ok || row.IngestTimestamp.After(prev.IngestTimestamp) {
			latest[ym] = row
		}
	}

	summary := &models.StationSummary{StationID: stationID, Months: len(latest)}

	var sum float64
	var counted int
	for ym, row := range latest {
		if summary.StationName == "" {
			summary.StationName = row.StationName
		}
		if summary.First.Year == 0 || ym.Before(summary.First) {
			summary.First = ym
		}
		if summary.Last.Before(ym) {
			summary.Last = ym
		}

		if row.TemperatureCelsiusAvg != nil {
			sum += *row.TemperatureCelsiusAvg
			counted++
		}
		if row.TemperatureCelsiusMax != nil && (summary.WarmestMax == nil || *row.TemperatureCelsiusMax > *summary.WarmestMax) {
			summary.WarmestMax = row.TemperatureCelsiusMax
			summary.WarmestMonth = ym
		}
		if row.TemperatureCelsiusMin != nil && (summary.ColdestMin == nil || *row.TemperatureCelsiusMin < *summary.ColdestMin) {
			summary.ColdestMin = row.TemperatureCelsiusMin
			summary.ColdestMonth = ym
		}
	}

	if counted > 0 {
		mean := sum / float64(counted)
		summary.MeanTemperature = &mean
	}

	return summary
}
