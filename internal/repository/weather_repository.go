package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"climate-harvester/internal/models"
	"climate-harvester/pkg/database"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

// WeatherRepository provides data access for the relational store
type WeatherRepository interface {
	// Coverage
	GetLatestMonthYear(ctx context.Context, stationID string) (models.YearMonth, error)

	// Aggregates
	InsertMonthlyAggregates(ctx context.Context, rows []*models.MonthlyAggregate) error
	GetMonthlyAggregates(ctx context.Context, filter AggregateFilter) ([]*models.MonthlyAggregate, int, error)

	// Stations
	UpsertStations(ctx context.Context, stations []*models.Station) error
	ListStations(ctx context.Context, limit, offset int) ([]*models.Station, error)

	HealthCheck(ctx context.Context) error
}

// AggregateFilter defines filters for querying monthly aggregates
type AggregateFilter struct {
	StationID *string
	Year      *int
	Month     *int
	Limit     int
	Offset    int
}

const aggregateColumns = `station_id, station_name, climate_id, month, year,
	latitude, longitude, feature_id, map,
	temperature_celsius_avg, temperature_celsius_min, temperature_celsius_max,
	date_month, temperature_celsius_yoy_avg, ingest_timestamp, run_id`

type weatherRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherRepository creates a new weather repository
func NewWeatherRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetLatestMonthYear returns the latest (year, month) present in weather_data for a station.
// A station with no rows yields a *NotFoundError.
func (r *weatherRepository) GetLatestMonthYear(ctx context.Context, stationID string) (models.YearMonth, error) {
	query := `
		SELECT year, month
		FROM weather_data
		WHERE station_id = $1
		ORDER BY year DESC, month DESC
		LIMIT 1
	`

	var latest models.YearMonth
	err := r.db.WithConn(ctx, "get_latest_month_year", func(conn *sqlx.Conn) error {
		row := conn.QueryRowxContext(ctx, query, stationID)
		return row.Scan(&latest.Year, &latest.Month)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return models.YearMonth{}, &NotFoundError{
			Resource: "weather_data",
			ID:       stationID,
		}
	}

	if err != nil {
		return models.YearMonth{}, fmt.Errorf("failed to get latest month and year: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_COVERAGE] Latest month fetched", logging.Fields{
		"station_id": stationID,
		"year":       latest.Year,
		"month":      latest.Month,
	})

	return latest, nil
}

// InsertMonthlyAggregates appends rows to weather_data in a single transaction
func (r *weatherRepository) InsertMonthlyAggregates(ctx context.Context, rows []*models.MonthlyAggregate) error {
	if len(rows) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(rows),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO weather_data (`+aggregateColumns+`)
		VALUES (:station_id, :station_name, :climate_id, :month, :year,
			:latitude, :longitude, :feature_id, :map,
			:temperature_celsius_avg, :temperature_celsius_min, :temperature_celsius_max,
			:date_month, :temperature_celsius_yoy_avg, :ingest_timestamp, :run_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("failed to insert aggregate %s/%s: %w", row.StationID, row.DateMonth, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.PublishedRowsTotal.WithLabelValues("database").Add(float64(len(rows)))

	return nil
}

// GetMonthlyAggregates retrieves aggregates with filtering and pagination
func (r *weatherRepository) GetMonthlyAggregates(ctx context.Context, filter AggregateFilter) ([]*models.MonthlyAggregate, int, error) {
	query := `
		SELECT ` + aggregateColumns + `
		FROM weather_data
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.StationID != nil {
		query += fmt.Sprintf(" AND station_id = $%d", argNum)
		args = append(args, *filter.StationID)
		argNum++
	}

	if filter.Year != nil {
		query += fmt.Sprintf(" AND year = $%d", argNum)
		args = append(args, *filter.Year)
		argNum++
	}

	if filter.Month != nil {
		query += fmt.Sprintf(" AND month = $%d", argNum)
		args = append(args, *filter.Month)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_aggregates", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count aggregates: %w", err)
	}

	query += " ORDER BY station_id, year DESC, month DESC, ingest_timestamp DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []*models.MonthlyAggregate
	if err := r.db.SelectContext(ctx, "get_aggregates", &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get aggregates: %w", err)
	}

	return rows, totalCount, nil
}

// UpsertStations writes the station reference table
func (r *weatherRepository) UpsertStations(ctx context.Context, stations []*models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO weather_stations (
			station_id, station_name, climate_id, latitude, longitude, feature_id, map, updated_at
		)
		VALUES (:station_id, :station_name, :climate_id, :latitude, :longitude, :feature_id, :map, :updated_at)
		ON CONFLICT (station_id) DO UPDATE SET
			station_name = EXCLUDED.station_name,
			climate_id = EXCLUDED.climate_id,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			feature_id = EXCLUDED.feature_id,
			map = EXCLUDED.map,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, station := range stations {
		if _, err := stmt.ExecContext(ctx, station); err != nil {
			return fmt.Errorf("failed to upsert station %s: %w", station.StationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_STATIONS] Stations written", logging.Fields{
		"count": len(stations),
	})

	return nil
}

// ListStations retrieves station reference rows with pagination
func (r *weatherRepository) ListStations(ctx context.Context, limit, offset int) ([]*models.Station, error) {
	query := `
		SELECT station_id, station_name, climate_id, latitude, longitude, feature_id, map, updated_at
		FROM weather_stations
		ORDER BY station_id
		LIMIT $1 OFFSET $2
	`

	var stations []*models.Station
	if err := r.db.SelectContext(ctx, "list_stations", &stations, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	return stations, nil
}

// HealthCheck performs a repository health check
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
