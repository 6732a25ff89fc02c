package rawstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"climate-harvester/internal/models"
	"climate-harvester/pkg/logging"
)

const (
	filePrefix = "weather_"
	fileExt    = ".parquet"
)

// Store keeps raw monthly extracts and the station reference file under one directory.
type Store struct {
	dir         string
	stationFile string
	logger      *logging.StructuredLogger
}

// New creates a raw store rooted at dir. stationFile is the reference file name
// (for example "station_data.parquet") inside dir.
func New(dir, stationFile string, logger *logging.StructuredLogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	return &Store{
		dir:         dir,
		stationFile: stationFile,
		logger:      logger,
	}, nil
}

// Dir returns the directory backing the store
func (s *Store) Dir() string {
	return s.dir
}

// ObservationFileName is the raw file name for one station and month.
func ObservationFileName(stationID string, year, month int) string {
	return fmt.Sprintf("%s%s_%d_%d%s", filePrefix, stationID, year, month, fileExt)
}

// WriteObservations replaces the raw file for (stationID, year, month) with rows.
func (s *Store) WriteObservations(ctx context.Context, stationID string, year, month int, rows []models.RawObservation) (string, error) {
	name := ObservationFileName(stationID, year, month)
	if stationID == "" || filepath.Base(name) != name {
		return "", &models.ValidationError{
			Field:   "station_id",
			Value:   stationID,
			Message: "station id cannot be used as a file name",
		}
	}
	path := filepath.Join(s.dir, name)
	if err := writeParquet(path, rows); err != nil {
		return "", fmt.Errorf("failed to write raw extract %s: %w", path, err)
	}

	s.logger.Debug(ctx, "[RAW_WRITE] Raw extract saved", logging.Fields{
		"path": path,
		"rows": len(rows),
	})

	return path, nil
}

// Files lists every raw extract in the store, sorted by name. The station reference file is excluded.
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == s.stationFile {
			continue
		}
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		files = append(files, filepath.Join(s.dir, name))
	}

	sort.Strings(files)
	return files, nil
}

// ReadObservations loads the union of all raw extracts.
func (s *Store) ReadObservations(ctx context.Context) ([]models.RawObservation, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	var all []models.RawObservation
	for _, path := range files {
		rows, err := parquet.ReadFile[models.RawObservation](path)
		if err != nil {
			return nil, fmt.Errorf("failed to read raw extract %s: %w", path, err)
		}
		all = append(all, rows...)
	}

	s.logger.Info(ctx, "[RAW_READ] Raw extracts loaded", logging.Fields{
		"files": len(files),
		"rows":  len(all),
	})

	return all, nil
}

// StationFilePath returns the full path of the station reference file
func (s *Store) StationFilePath() string {
	return filepath.Join(s.dir, s.stationFile)
}

// ReadStations loads the station reference file. A missing file yields no stations.
func (s *Store) ReadStations(ctx context.Context) ([]models.Station, error) {
	path := s.StationFilePath()

	stations, err := parquet.ReadFile[models.Station](path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read station reference %s: %w", path, err)
	}

	return stations, nil
}

// MergeStations writes the station reference file as the existing entries updated with
// fresh, keyed by station id. Stations absent from fresh keep their previous metadata.
func (s *Store) MergeStations(ctx context.Context, fresh []models.Station) ([]models.Station, error) {
	existing, err := s.ReadStations(ctx)
	if err != nil {
		return nil, err
	}

	merged := MergeStations(existing, fresh)
	if err := writeParquet(s.StationFilePath(), merged); err != nil {
		return nil, fmt.Errorf("failed to write station reference: %w", err)
	}

	s.logger.Info(ctx, "[RAW_STATIONS] Station reference saved", logging.Fields{
		"path":     s.StationFilePath(),
		"stations": len(merged),
		"updated":  len(fresh),
	})

	return merged, nil
}

// MergeStations returns existing overlaid with fresh by station id, sorted by station id.
func MergeStations(existing, fresh []models.Station) []models.Station {
	byID := make(map[string]models.Station, len(existing)+len(fresh))
	for _, st := range existing {
		byID[st.StationID] = st
	}
	for _, st := range fresh {
		byID[st.StationID] = st
	}

	merged := make([]models.Station, 0, len(byID))
	for _, st := range byID {
		merged = append(merged, st)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].StationID < merged[j].StationID
	})

	return merged
}

// writeParquet atomically writes rows to path via a .tmp intermediate file.
func writeParquet[T any](path string, rows []T) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}
