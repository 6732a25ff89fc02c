package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
log_level: DEBUG
log_dir: /var/log/harvester
data_dir: /srv/raw
station_data_file: stations.parquet
database:
  host: db.internal
  name: climate
remote:
  provider: gcs
  bucket: weather-bucket
  credentials_file: secrets/sa.json
upstream:
  timeout: 15s
schedule:
  interval: 6h
  stations: ["26953", "31688"]
  years: [2022, 2023]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configuration.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "/srv/raw", cfg.DataDir)
	assert.Equal(t, "stations.parquet", cfg.StationDataFile)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "climate", cfg.Database.Name)
	assert.Equal(t, 5432, cfg.Database.Port, "unset keys keep defaults")
	assert.Equal(t, "gcs", cfg.Remote.Provider)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, DefaultWeatherURL, cfg.Upstream.WeatherURL)
	assert.Equal(t, 6*time.Hour, cfg.Schedule.Interval)
	assert.Equal(t, []string{"26953", "31688"}, cfg.Schedule.Stations)
	assert.Equal(t, []int{2022, 2023}, cfg.Schedule.Years)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "station_data.parquet", cfg.StationDataFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/override")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REMOTE_BUCKET", "other-bucket")
	t.Setenv("SCHEDULE_STATIONS", "1,2 3")

	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override", cfg.DataDir)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "other-bucket", cfg.Remote.Bucket)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.Schedule.Stations)
}

func TestLoadFile_InvalidTimeoutEnv(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	_, err := LoadFile(writeConfig(t, sampleYAML))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"missing data dir", func(c *Config) { c.DataDir = "" }, true},
		{"zero timeout", func(c *Config) { c.Upstream.Timeout = 0 }, true},
		{"unknown provider", func(c *Config) { c.Remote.Provider = "s4" }, true},
		{"gcs without bucket", func(c *Config) { c.Remote.Provider = "gcs" }, true},
		{"minio without endpoint", func(c *Config) {
			c.Remote.Provider = "minio"
			c.Remote.Bucket = "b"
		}, true},
		{"minio complete", func(c *Config) {
			c.Remote.Provider = "minio"
			c.Remote.Bucket = "b"
			c.Remote.Endpoint = "localhost:9000"
		}, false},
		{"no connections", func(c *Config) { c.Database.MaxOpenConns = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
