package repository

import (
	"context"
	"fmt"

	"climate-harvester/internal/models"
)

// unavailableRepository stands in when the database could not be reached at startup.
// Every call fails with the connection error so callers record it per step.
type unavailableRepository struct {
	err error
}

// NewUnavailableRepository returns a WeatherRepository whose every method fails with cause.
func NewUnavailableRepository(cause error) WeatherRepository {
	return &unavailableRepository{err: fmt.Errorf("database unavailable: %w", cause)}
}

func (r *unavailableRepository) GetLatestMonthYear(ctx context.Context, stationID string) (models.YearMonth, error) {
	return models.YearMonth{}, r.err
}

func (r *unavailableRepository) InsertMonthlyAggregates(ctx context.Context, rows []*models.MonthlyAggregate) error {
	return r.err
}

func (r *unavailableRepository) GetMonthlyAggregates(ctx context.Context, filter AggregateFilter) ([]*models.MonthlyAggregate, int, error) {
	return nil, 0, r.err
}

func (r *unavailableRepository) UpsertStations(ctx context.Context, stations []*models.Station) error {
	return r.err
}

func (r *unavailableRepository) ListStations(ctx context.Context, limit, offset int) ([]*models.Station, error) {
	return nil, r.err
}

func (r *unavailableRepository) HealthCheck(ctx context.Context) error {
	return r.err
}
