package app

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-harvester/internal/config"
	"climate-harvester/internal/services"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

func TestDatabaseConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Name = "climate"
	cfg.Database.Password = "secret"

	db := DatabaseConfig(cfg)

	assert.Equal(t, "climate", db.Database)
	assert.Equal(t, "secret", db.Password)
	assert.Equal(t, 1, db.MaxOpenConns)
}

func TestObjectStoreConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Remote.Provider = "minio"
	cfg.Remote.Bucket = "weather"
	cfg.Remote.Endpoint = "localhost:9000"

	remote := ObjectStoreConfig(cfg)

	assert.Equal(t, "minio", remote.Provider)
	assert.Equal(t, "weather", remote.Bucket)
	assert.Equal(t, "localhost:9000", remote.Endpoint)
}

func TestUpstreamOptions(t *testing.T) {
	cfg := config.Default()

	opts := upstreamOptions(cfg, cfg.Upstream.WeatherURL)

	assert.Equal(t, config.DefaultWeatherURL, opts.URLTemplate)
	assert.Equal(t, cfg.Upstream.Timeout, opts.Timeout)
	assert.Equal(t, uint32(5), opts.BreakerFailures)
}

func TestNew_DatabaseUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1

	reg := prometheus.NewRegistry()
	logger := logging.NewStructuredLogger("app-test", "test", logging.FatalLevel)
	ctx := context.Background()

	a, err := New(ctx, cfg, logger, metrics.NewCollectorWithRegistry("test", reg, reg))
	require.NoError(t, err, "an unreachable database must not stop startup")
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Remote)
	require.Error(t, a.Repo.HealthCheck(ctx))

	result, err := a.Transformation().Run(ctx, services.TransformRequest{Format: "csv"})
	require.NoError(t, err)
	require.NotNil(t, result.Publish)
	assert.NoError(t, result.Publish.FileErr)
	assert.FileExists(t, result.Publish.Path)
	assert.Error(t, result.Publish.DBErr)
}
