package services

import (
	"context"
	"fmt"

	"climate-harvester/internal/export"
	"climate-harvester/internal/models"
	"climate-harvester/internal/repository"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
	"climate-harvester/pkg/objectstore"
)

// PublishRequest is one batch of cleaned aggregates to publish
type PublishRequest struct {
	Rows     []*models.MonthlyAggregate
	Stations []models.Station
	Name     string
	Format   string
}

// PublishResult reports which targets received the batch. Errors are per target;
// a remote failure after local and database success marks the result Degraded.
type PublishResult struct {
	Path      string
	Format    export.Format
	Rows      int
	RemoteKey string
	Bytes     int64

	FileErr   error
	DBErr     error
	RemoteErr error
}

// Degraded reports that the batch was saved locally and to the database but not remotely.
func (r *PublishResult) Degraded() bool {
	return r.FileErr == nil && r.DBErr == nil && r.RemoteErr != nil
}

// Publisher writes aggregates to a local file, the relational store and the remote bucket.
type Publisher struct {
	repo      repository.WeatherRepository
	remote    objectstore.Store
	outputDir string
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewPublisher creates a publisher writing files under outputDir. remote may be nil.
func NewPublisher(repo repository.WeatherRepository, remote objectstore.Store, outputDir string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Publisher {
	return &Publisher{
		repo:      repo,
		remote:    remote,
		outputDir: outputDir,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Publish saves req.Rows to file, database and remote store in that order.
// Each step is attempted once; a failure is logged and recorded in the result.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) *PublishResult {
	format, ok := export.ParseFormat(req.Format)
	if !ok {
		p.logger.Warn(ctx, "[PUBLISH_FORMAT] Unsupported output format, falling back to default", logging.Fields{
			"requested": req.Format,
			"format":    string(format),
		})
	}

	result := &PublishResult{Format: format, Rows: len(req.Rows)}

	path, err := export.WriteFile(p.outputDir, req.Name, format, req.Rows)
	if err != nil {
		result.FileErr = err
		p.metrics.RecordPublishError("file")
		p.logger.Error(ctx, "[PUBLISH_FILE_ERROR] Failed to save output file", logging.Fields{
			"format": string(format),
		}, err)
	} else {
		result.Path = path
		p.metrics.PublishedRowsTotal.WithLabelValues("file").Add(float64(len(req.Rows)))
		p.logger.Info(ctx, "[PUBLISH_FILE] Output file saved", logging.Fields{
			"path": path,
			"rows": len(req.Rows),
		})
	}

	if err := p.publishDB(ctx, req); err != nil {
		result.DBErr = err
		p.metrics.RecordPublishError("database")
		p.logger.Error(ctx, "[PUBLISH_DB_ERROR] Failed to append to database", logging.Fields{
			"rows": len(req.Rows),
		}, err)
	}

	if p.remote == nil || result.Path == "" {
		return result
	}

	result.RemoteKey = objectstore.Key(objectstore.ProcessedPrefix, result.Path)
	n, err := objectstore.UploadFile(ctx, p.remote, result.RemoteKey, result.Path)
	if err != nil {
		result.RemoteErr = err
		p.metrics.RecordPublishError("remote")
		p.logger.Error(ctx, "[PUBLISH_REMOTE_ERROR] Saved locally/db but not to remote store", logging.Fields{
			"key": result.RemoteKey,
		}, err)
		return result
	}

	result.Bytes = n
	p.metrics.UploadedBytesTotal.WithLabelValues(objectstore.ProcessedPrefix).Add(float64(n))
	p.metrics.PublishedRowsTotal.WithLabelValues("remote").Add(float64(len(req.Rows)))
	p.logger.Info(ctx, "[PUBLISH_REMOTE] Output uploaded", logging.Fields{
		"key":   result.RemoteKey,
		"bytes": n,
	})

	return result
}

func (p *Publisher) publishDB(ctx context.Context, req PublishRequest) error {
	rows, err := p.newRows(ctx, req.Rows)
	if err != nil {
		return err
	}

	if err := p.repo.InsertMonthlyAggregates(ctx, rows); err != nil {
		return err
	}
	p.logger.Info(ctx, "[PUBLISH_DB] Aggregates appended", logging.Fields{
		"rows":    len(rows),
		"skipped": len(req.Rows) - len(rows),
	})

	stations := make([]*models.Station, 0, len(req.Stations))
	for i := range req.Stations {
		stations = append(stations, &req.Stations[i])
	}
	if err := p.repo.UpsertStations(ctx, stations); err != nil {
		return fmt.Errorf("aggregates stored but stations were not: %w", err)
	}

	return nil
}

// newRows keeps the rows dated after each station's stored coverage, so that re-running a
// transformation over the whole raw store appends only months weather_data does not hold yet.
func (p *Publisher) newRows(ctx context.Context, rows []*models.MonthlyAggregate) ([]*models.MonthlyAggregate, error) {
	latest := make(map[string]*models.YearMonth)
	fresh := make([]*models.MonthlyAggregate, 0, len(rows))

	for _, row := range rows {
		covered, ok := latest[row.StationID]
		if !ok {
			ym, err := p.repo.GetLatestMonthYear(ctx, row.StationID)
			switch {
			case err == nil:
				covered = &ym
			case repository.IsNotFound(err):
			default:
				return nil, fmt.Errorf("failed to read coverage for station %s: %w", row.StationID, err)
			}
			latest[row.StationID] = covered
		}

		if covered == nil || covered.Before(models.YearMonth{Year: row.Year, Month: row.Month}) {
			fresh = append(fresh, row)
		}
	}

	return fresh, nil
}
