package rawstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"climate-harvester/internal/models"
	"climate-harvester/pkg/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logging.NewStructuredLogger("rawstore-test", "test", logging.ErrorLevel)
	store, err := New(t.TempDir(), "station_data.parquet", logger)
	require.NoError(t, err)
	return store
}

func observation(station string, year, month int, temp *float64) models.RawObservation {
	return models.RawObservation{
		StationID:          station,
		StationName:        "TORONTO CITY",
		ClimateID:          "6158355",
		Latitude:           43.67,
		Longitude:          -79.4,
		DateTime:           "2023-01-01",
		Year:               year,
		Month:              month,
		Day:                1,
		TemperatureCelsius: temp,
	}
}

func TestObservationFileName(t *testing.T) {
	assert.Equal(t, "weather_26953_2023_1.parquet", ObservationFileName("26953", 2023, 1))
}

func TestStore_WriteAndReadObservations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.WriteObservations(ctx, "26953", 2023, 1, []models.RawObservation{
		observation("26953", 2023, 1, ptr.To(5.0)),
		observation("26953", 2023, 1, nil),
	})
	require.NoError(t, err)

	_, err = store.WriteObservations(ctx, "26953", 2023, 2, []models.RawObservation{
		observation("26953", 2023, 2, ptr.To(6.0)),
	})
	require.NoError(t, err)

	_, err = store.MergeStations(ctx, []models.Station{{StationID: "26953"}})
	require.NoError(t, err)

	rows, err := store.ReadObservations(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3, "station reference file must not be read as observations")

	require.NotNil(t, rows[0].TemperatureCelsius)
	assert.Equal(t, 5.0, *rows[0].TemperatureCelsius)
	assert.Nil(t, rows[1].TemperatureCelsius)
	assert.Equal(t, 2, rows[2].Month)
}

func TestStore_WriteObservations_Overwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 2; i++ {
		_, err := store.WriteObservations(ctx, "1", 2023, 5, []models.RawObservation{
			observation("1", 2023, 5, ptr.To(float64(i))),
		})
		require.NoError(t, err)
	}

	rows, err := store.ReadObservations(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, *rows[0].TemperatureCelsius)

	_, err = os.Stat(filepath.Join(store.Dir(), ObservationFileName("1", 2023, 5)+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Files_IgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.WriteObservations(ctx, "1", 2023, 1, []models.RawObservation{observation("1", 2023, 1, nil)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644))

	files, err := store.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(store.Dir(), "weather_1_2023_1.parquet")}, files)
}

func TestStore_ReadStations_Missing(t *testing.T) {
	store := newTestStore(t)

	stations, err := store.ReadStations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stations)
}

func TestStore_MergeStations_KeepsUntouchedStations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.MergeStations(ctx, []models.Station{
		{StationID: "1", StationName: "A", FeatureID: "f1"},
		{StationID: "2", StationName: "B", FeatureID: "f2"},
	})
	require.NoError(t, err)

	merged, err := store.MergeStations(ctx, []models.Station{
		{StationID: "2", StationName: "B2", FeatureID: "f2b"},
	})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	stations, err := store.ReadStations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "A", stations[0].StationName)
	assert.Equal(t, "B2", stations[1].StationName)
	assert.Equal(t, "f2b", stations[1].FeatureID)
}

func TestStore_MergeStations_KeepsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	updated := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	_, err := store.MergeStations(ctx, []models.Station{{StationID: "26953", UpdatedAt: updated}})
	require.NoError(t, err)

	stations, err := store.ReadStations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.True(t, updated.Equal(stations[0].UpdatedAt), "got %s", stations[0].UpdatedAt)
}

func TestStore_WriteObservations_RejectsPathStationID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, id := range []string{"../x", "a/b", ""} {
		_, err := store.WriteObservations(ctx, id, 2023, 1, []models.RawObservation{observation(id, 2023, 1, nil)})

		var validationErr *models.ValidationError
		require.True(t, errors.As(err, &validationErr), "station id %q", id)
		assert.Equal(t, "station_id", validationErr.Field)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Dir()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "nothing may be written beside the data directory")
}
