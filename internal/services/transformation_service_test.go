package services

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-harvester/internal/models"
	"climate-harvester/internal/rawstore"
)

// Station 26953, January to March 2023, (min, max) readings per month.
func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()
	m := testMetrics()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC))

	raw, err := rawstore.New(t.TempDir(), "station_data.parquet", logger)
	require.NoError(t, err)

	readings := map[int][2]float64{1: {5, 10}, 2: {6, 11}, 3: {7, 12}}
	for month, pair := range readings {
		_, err := raw.WriteObservations(ctx, "26953", 2023, month, observations(t, "26953", 2023, month, pair[0], pair[1]))
		require.NoError(t, err)
	}
	_, err = raw.MergeStations(ctx, []models.Station{{
		StationID: "26953", StationName: "TORONTO CITY", ClimateID: "6158355",
		Latitude: 43.67, Longitude: -79.4, FeatureID: "ab123", Map: "30M11",
	}})
	require.NoError(t, err)

	observed, err := raw.ReadObservations(ctx)
	require.NoError(t, err)
	stations, err := raw.ReadStations(ctx)
	require.NoError(t, err)

	aggregated, err := Aggregate(observed, stations)
	require.NoError(t, err)
	require.Len(t, aggregated, 3)
	assert.Nil(t, aggregated[0].TemperatureCelsiusYoYAvg)
	for i, row := range aggregated {
		pair := readings[i+1]
		assert.Equal(t, i+1, row.Month)
		assert.Equal(t, (pair[0]+pair[1])/2, *row.TemperatureCelsiusAvg)
		assert.Equal(t, pair[0], *row.TemperatureCelsiusMin)
		assert.Equal(t, pair[1], *row.TemperatureCelsiusMax)
		assert.Equal(t, "ab123", row.FeatureID)
	}

	cleaned, dropped := Clean(aggregated, models.YearMonthOf(clock.Now()))
	assert.Zero(t, dropped)
	assert.Len(t, cleaned, 3)

	repo := newFakeRepo()
	remote := newFakeRemote()
	outDir := t.TempDir()
	svc := NewTransformationService(raw, NewPublisher(repo, remote, outDir, logger, m), clock, logger, m)

	result, err := svc.Run(ctx, TransformRequest{Name: "final_dataset", Format: "csv"})
	require.NoError(t, err)

	assert.Equal(t, 6, result.Observations)
	assert.Equal(t, 3, result.Aggregated)
	assert.False(t, result.Publish.Degraded())

	require.Len(t, repo.inserted, 3)
	for _, row := range repo.inserted {
		assert.Equal(t, result.RunID, row.RunID)
		assert.Equal(t, clock.Now().UTC(), row.IngestTimestamp)
	}
	assert.Contains(t, repo.stations, "26953")

	f, err := os.Open(result.Publish.Path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4, "header plus three rows")

	assert.Contains(t, remote.objects, "processed_data/final_dataset.csv")
}

func TestTransformationService_Run_DropsFutureMonths(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()
	m := testMetrics()
	clock := clockwork.NewFakeClockAt(time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC))

	raw, err := rawstore.New(t.TempDir(), "station_data.parquet", logger)
	require.NoError(t, err)
	for month := 1; month <= 3; month++ {
		_, err := raw.WriteObservations(ctx, "1", 2023, month, observations(t, "1", 2023, month, float64(month)))
		require.NoError(t, err)
	}

	repo := newFakeRepo()
	svc := NewTransformationService(raw, NewPublisher(repo, nil, t.TempDir(), logger, m), clock, logger, m)

	result, err := svc.Run(ctx, TransformRequest{Format: "parquet"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, 2, result.Aggregated)
	assert.Len(t, repo.inserted, 2)
	require.NotNil(t, repo.inserted[0].TemperatureCelsiusYoYAvg, "cleaner zero-fills the missing delta")
	assert.Zero(t, *repo.inserted[0].TemperatureCelsiusYoYAvg)
}
