package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"climate-harvester/internal/models"
)

func TestCoverageService_LatestCoverage(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		svc := NewCoverageService(newFakeRepo(), testLogger(), testMetrics())

		cov := svc.LatestCoverage(ctx, "1")
		assert.Equal(t, models.CoverageNotFound, cov.Status)
		assert.NoError(t, cov.Err)
	})

	t.Run("found", func(t *testing.T) {
		repo := newFakeRepo()
		repo.inserted = []*models.MonthlyAggregate{
			{StationID: "1", Year: 2023, Month: 11},
			{StationID: "1", Year: 2024, Month: 2},
			{StationID: "2", Year: 2025, Month: 1},
		}
		svc := NewCoverageService(repo, testLogger(), testMetrics())

		cov := svc.LatestCoverage(ctx, "1")
		assert.Equal(t, models.CoverageFound, cov.Status)
		assert.Equal(t, ym(2024, 2), cov.Latest)
	})

	t.Run("storage error is not mistaken for no data", func(t *testing.T) {
		repo := newFakeRepo()
		repo.latestErr = errors.New("connection refused")
		svc := NewCoverageService(repo, testLogger(), testMetrics())

		cov := svc.LatestCoverage(ctx, "1")
		assert.Equal(t, models.CoverageError, cov.Status)
		assert.EqualError(t, cov.Err, "connection refused")
	})
}
