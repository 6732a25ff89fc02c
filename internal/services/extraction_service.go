package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"climate-harvester/internal/models"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
	"climate-harvester/pkg/objectstore"
	"climate-harvester/pkg/upstream"
)

// ObservationFetcher downloads one month of raw observations for a station
type ObservationFetcher interface {
	FetchMonth(ctx context.Context, format, stationID string, year, month int) ([]models.RawObservation, error)
}

// StationLocator resolves station coordinates to a geographical name
type StationLocator interface {
	Lookup(ctx context.Context, lat, lon float64, radius int) (upstream.GeoName, error)
}

// RawWriter persists raw extracts and the station reference file
type RawWriter interface {
	WriteObservations(ctx context.Context, stationID string, year, month int, rows []models.RawObservation) (string, error)
	MergeStations(ctx context.Context, fresh []models.Station) ([]models.Station, error)
	StationFilePath() string
}

// ExtractRequest selects the stations and target years of one extraction run.
type ExtractRequest struct {
	Stations []string
	Years    []int
	// Format is passed to the upstream service; only "csv" is parsed.
	Format string
}

// MonthSummary holds the station scalars read from the first row of one monthly batch.
type MonthSummary struct {
	Latitude    float64
	Longitude   float64
	StationName string
	ClimateID   string
}

// MonthFailure records one month that could not be extracted.
type MonthFailure struct {
	Month models.YearMonth
	Err   error
}

// StationResult is the outcome of one station within a run. A failure here never aborts the run.
type StationResult struct {
	StationID string
	Coverage  models.Coverage
	Planned   []models.YearMonth
	Extracted []models.YearMonth
	Failed    []MonthFailure
	Rows      int
	// Station is nil when no month was extracted or the locator failed.
	Station *models.Station
	// Err is set when coverage lookup or station location failed.
	Err error
}

// Skipped reports whether the station was left out of the run because coverage was unknown.
func (r *StationResult) Skipped() bool {
	return r.Coverage.Status == models.CoverageError
}

// ExtractionResult contains extraction run statistics
type ExtractionResult struct {
	RunID            string
	Stations         []*StationResult
	MonthsExtracted  int
	MonthsFailed     int
	RowsExtracted    int
	StationsUpdated  int
	FilesUploaded    int
	BytesUploaded    int64
	RemoteErrors     []string
	Duration         time.Duration
	StationReference string
}

// ExtractionService runs coverage lookup, gap planning, monthly extraction and station location
// for each requested station in sequence.
type ExtractionService struct {
	coverage *CoverageService
	fetcher  ObservationFetcher
	locator  StationLocator
	raw      RawWriter
	remote   objectstore.Store
	clock    clockwork.Clock
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewExtractionService creates a new extraction service. remote may be nil to disable mirroring.
func NewExtractionService(
	coverage *CoverageService,
	fetcher ObservationFetcher,
	locator StationLocator,
	raw RawWriter,
	remote objectstore.Store,
	clock clockwork.Clock,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ExtractionService {
	return &ExtractionService{
		coverage: coverage,
		fetcher:  fetcher,
		locator:  locator,
		raw:      raw,
		remote:   remote,
		clock:    clock,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// Run extracts every missing month for the requested stations. It returns an error only when
// the context is cancelled or the station reference cannot be written; per-station failures
// are reported inside the result.
func (s *ExtractionService) Run(ctx context.Context, req ExtractRequest) (*ExtractionResult, error) {
	startTime := s.clock.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	if req.Format == "" {
		req.Format = "csv"
	}

	s.logger.Info(ctx, "[EXTRACT_START] Starting extraction run", logging.Fields{
		"stations": req.Stations,
		"years":    req.Years,
		"format":   req.Format,
		"stage":    "INITIALIZATION",
	})

	result := &ExtractionResult{RunID: runID}
	var (
		fresh   []models.Station
		written []string
	)

	now := models.YearMonthOf(s.clock.Now())
	for _, stationID := range req.Stations {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		stationResult, paths := s.extractStation(ctx, req, stationID, now)
		result.Stations = append(result.Stations, stationResult)
		result.MonthsExtracted += len(stationResult.Extracted)
		result.MonthsFailed += len(stationResult.Failed)
		result.RowsExtracted += stationResult.Rows
		written = append(written, paths...)

		if stationResult.Station != nil {
			fresh = append(fresh, *stationResult.Station)
		}
	}

	if _, err := s.raw.MergeStations(ctx, fresh); err != nil {
		return result, fmt.Errorf("failed to save station reference: %w", err)
	}
	result.StationsUpdated = len(fresh)
	result.StationReference = s.raw.StationFilePath()

	s.mirrorRaw(ctx, result, append(written, result.StationReference))

	result.Duration = s.clock.Since(startTime)
	s.metrics.ExtractionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[EXTRACT_COMPLETE] Extraction run completed", logging.Fields{
		"stations":         len(result.Stations),
		"months_extracted": result.MonthsExtracted,
		"months_failed":    result.MonthsFailed,
		"rows":             result.RowsExtracted,
		"stations_updated": result.StationsUpdated,
		"files_uploaded":   result.FilesUploaded,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *ExtractionService) extractStation(ctx context.Context, req ExtractRequest, stationID string, now models.YearMonth) (*StationResult, []string) {
	result := &StationResult{StationID: stationID}
	log := s.logger.WithFields(logging.Fields{"station_id": stationID})

	result.Coverage = s.coverage.LatestCoverage(ctx, stationID)
	if result.Coverage.Status == models.CoverageError {
		result.Err = fmt.Errorf("coverage lookup failed: %w", result.Coverage.Err)
		log.Warn(ctx, "[EXTRACT_SKIP] Skipping station with unknown coverage", nil)
		return result, nil
	}

	result.Planned = PlanGaps(result.Coverage, req.Years, now)
	log.Info(ctx, "[EXTRACT_PLAN] Months planned for station", logging.Fields{
		"coverage": result.Coverage.Status.String(),
		"months":   len(result.Planned),
	})

	var (
		summary *MonthSummary
		paths   []string
	)
	for _, ym := range result.Planned {
		if ctx.Err() != nil {
			break
		}

		monthSummary, path, rows, err := s.ExtractMonth(ctx, req.Format, stationID, ym.Year, ym.Month)
		if err != nil {
			result.Failed = append(result.Failed, MonthFailure{Month: ym, Err: err})
			continue
		}

		result.Extracted = append(result.Extracted, ym)
		result.Rows += rows
		paths = append(paths, path)
		summary = monthSummary
	}

	if len(result.Failed) > 0 {
		log.Warn(ctx, "[EXTRACT_PARTIAL] Some months could not be extracted", logging.Fields{
			"extracted": len(result.Extracted),
			"failed":    len(result.Failed),
		})
	}

	if summary == nil {
		return result, paths
	}

	station, err := s.locate(ctx, log, stationID, summary)
	if err != nil {
		result.Err = err
		return result, paths
	}
	result.Station = station

	return result, paths
}

// ExtractMonth fetches one month for stationID, saves it to the raw store and returns the
// first row's station scalars along with the saved path and row count.
func (s *ExtractionService) ExtractMonth(ctx context.Context, format, stationID string, year, month int) (*MonthSummary, string, int, error) {
	fields := logging.Fields{
		"station_id": stationID,
		"year":       year,
		"month":      month,
	}

	rows, err := s.fetcher.FetchMonth(ctx, format, stationID, year, month)
	if err == nil && len(rows) == 0 {
		err = upstream.ErrEmptyResponse
	}
	if err != nil {
		s.metrics.RecordExtractedMonth("error")
		s.logger.Error(ctx, "[EXTRACT_MONTH_ERROR] Failed to fetch month", fields, err)
		return nil, "", 0, err
	}

	path, err := s.raw.WriteObservations(ctx, stationID, year, month, rows)
	if err != nil {
		s.metrics.RecordExtractedMonth("error")
		s.logger.Error(ctx, "[EXTRACT_MONTH_ERROR] Failed to save month", fields, err)
		return nil, "", 0, err
	}

	first := rows[0]
	s.metrics.RecordExtractedMonth("ok")
	s.metrics.ExtractedRowsTotal.Add(float64(len(rows)))

	fields["rows"] = len(rows)
	fields["path"] = path
	s.logger.Info(ctx, "[EXTRACT_MONTH] Month extracted", fields)

	return &MonthSummary{
		Latitude:    first.Latitude,
		Longitude:   first.Longitude,
		StationName: first.StationName,
		ClimateID:   first.ClimateID,
	}, path, len(rows), nil
}

func (s *ExtractionService) locate(ctx context.Context, log *logging.ContextLogger, stationID string, summary *MonthSummary) (*models.Station, error) {
	geo, err := s.locator.Lookup(ctx, summary.Latitude, summary.Longitude, upstream.Radius)
	if err != nil {
		log.Error(ctx, "[EXTRACT_LOCATE_ERROR] Station lookup failed", logging.Fields{
			"latitude":  summary.Latitude,
			"longitude": summary.Longitude,
		}, err)
		return nil, fmt.Errorf("station lookup failed: %w", err)
	}

	return &models.Station{
		StationID:   stationID,
		StationName: summary.StationName,
		ClimateID:   summary.ClimateID,
		Latitude:    summary.Latitude,
		Longitude:   summary.Longitude,
		FeatureID:   geo.FeatureID,
		Map:         geo.Map,
		UpdatedAt:   s.clock.Now().UTC(),
	}, nil
}

func (s *ExtractionService) mirrorRaw(ctx context.Context, result *ExtractionResult, paths []string) {
	if s.remote == nil {
		return
	}

	for _, path := range paths {
		key := objectstore.Key(objectstore.RawPrefix, path)
		n, err := objectstore.UploadFile(ctx, s.remote, key, path)
		if err != nil {
			s.metrics.RecordPublishError("remote")
			result.RemoteErrors = append(result.RemoteErrors, err.Error())
			s.logger.Error(ctx, "[EXTRACT_UPLOAD_ERROR] Raw file upload failed", logging.Fields{
				"path": path,
				"key":  key,
			}, err)
			if errors.Is(err, context.Canceled) {
				return
			}
			continue
		}

		result.FilesUploaded++
		result.BytesUploaded += n
		s.metrics.UploadedBytesTotal.WithLabelValues(objectstore.RawPrefix).Add(float64(n))
	}
}
