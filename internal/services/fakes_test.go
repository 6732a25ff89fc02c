package services

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"climate-harvester/internal/models"
	"climate-harvester/internal/repository"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
	"climate-harvester/pkg/upstream"
)

func testLogger() *logging.StructuredLogger {
	return logging.NewStructuredLogger("services-test", "test", logging.FatalLevel)
}

func testMetrics() *metrics.Collector {
	reg := prometheus.NewRegistry()
	return metrics.NewCollectorWithRegistry("test", reg, reg)
}

// fakeRepo is an in-memory WeatherRepository. Coverage is derived from inserted rows
// unless latestErr is set.
type fakeRepo struct {
	inserted  []*models.MonthlyAggregate
	stations  map[string]*models.Station
	latestErr error
	insertErr error
	lookups   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stations: make(map[string]*models.Station)}
}

func (r *fakeRepo) GetLatestMonthYear(ctx context.Context, stationID string) (models.YearMonth, error) {
	r.lookups++
	if r.latestErr != nil {
		return models.YearMonth{}, r.latestErr
	}

	var latest models.YearMonth
	found := false
	for _, row := range r.inserted {
		ym := models.YearMonth{Year: row.Year, Month: row.Month}
		if row.StationID == stationID && (!found || latest.Before(ym)) {
			latest, found = ym, true
		}
	}
	if !found {
		return models.YearMonth{}, &repository.NotFoundError{Resource: "weather_data", ID: stationID}
	}
	return latest, nil
}

func (r *fakeRepo) InsertMonthlyAggregates(ctx context.Context, rows []*models.MonthlyAggregate) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, rows...)
	return nil
}

func (r *fakeRepo) GetMonthlyAggregates(ctx context.Context, filter repository.AggregateFilter) ([]*models.MonthlyAggregate, int, error) {
	var rows []*models.MonthlyAggregate
	for _, row := range r.inserted {
		if filter.StationID != nil && row.StationID != *filter.StationID {
			continue
		}
		if filter.Year != nil && row.Year != *filter.Year {
			continue
		}
		if filter.Month != nil && row.Month != *filter.Month {
			continue
		}
		rows = append(rows, row)
	}

	total := len(rows)
	if filter.Offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(rows) {
		rows = rows[:filter.Limit]
	}
	return rows, total, nil
}

func (r *fakeRepo) UpsertStations(ctx context.Context, stations []*models.Station) error {
	for _, st := range stations {
		r.stations[st.StationID] = st
	}
	return nil
}

func (r *fakeRepo) ListStations(ctx context.Context, limit, offset int) ([]*models.Station, error) {
	var out []*models.Station
	for _, st := range r.stations {
		out = append(out, st)
	}
	return out, nil
}

func (r *fakeRepo) HealthCheck(ctx context.Context) error {
	return nil
}

// fakeFetcher serves canned monthly batches; months without an entry fail.
type fakeFetcher struct {
	months map[string][]models.RawObservation
	calls  []string
}

func monthKey(stationID string, year, month int) string {
	return fmt.Sprintf("%s/%d-%d", stationID, year, month)
}

func (f *fakeFetcher) FetchMonth(ctx context.Context, format, stationID string, year, month int) ([]models.RawObservation, error) {
	key := monthKey(stationID, year, month)
	f.calls = append(f.calls, key)

	rows, ok := f.months[key]
	if !ok {
		return nil, &upstream.StatusError{URL: key, StatusCode: 500}
	}
	return rows, nil
}

type fakeLocator struct {
	geo   upstream.GeoName
	err   error
	calls int
}

func (l *fakeLocator) Lookup(ctx context.Context, lat, lon float64, radius int) (upstream.GeoName, error) {
	l.calls++
	return l.geo, l.err
}

// fakeRemote records uploads by key.
type fakeRemote struct {
	objects map[string][]byte
	err     error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{objects: make(map[string][]byte)}
}

func (r *fakeRemote) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if r.err != nil {
		return r.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	r.objects[key] = data
	return nil
}

func (r *fakeRemote) Close() error { return nil }

func observations(t *testing.T, stationID string, year, month int, temps ...float64) []models.RawObservation {
	t.Helper()

	rows := make([]models.RawObservation, 0, len(temps))
	for i := range temps {
		temp := temps[i]
		rows = append(rows, models.RawObservation{
			StationID:          stationID,
			StationName:        "TORONTO CITY",
			ClimateID:          "6158355",
			Latitude:           43.67,
			Longitude:          -79.4,
			DateTime:           time.Date(year, time.Month(month), i+1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Year:               year,
			Month:              month,
			Day:                i + 1,
			TemperatureCelsius: &temp,
		})
	}
	return rows
}
