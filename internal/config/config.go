package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is read from the working directory unless CONFIG_FILE points elsewhere.
	DefaultConfigFile = "configuration.yaml"

	DefaultWeatherURL  = "https://climate.weather.gc.ca/climate_data/bulk_data_e.html?format=%s&stationID=%s&Year=%d&Month=%d&Day=%d&time=LST&timeframe=1&submit=Download+Data"
	DefaultGeonamesURL = "http://geogratis.gc.ca/services/geoname/en/geonames.csv?lat=%v&lon=%v&radius=%d"
)

// Config is loaded once at startup and handed to each component's constructor.
type Config struct {
	LogLevel        string `yaml:"log_level"`
	LogDir          string `yaml:"log_dir"`
	DataDir         string `yaml:"data_dir"`
	StationDataFile string `yaml:"station_data_file"`

	Database DatabaseConfig `yaml:"database"`
	Remote   RemoteConfig   `yaml:"remote"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig locates the relational store holding weather_data.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RemoteConfig selects and configures the remote object store.
type RemoteConfig struct {
	// Provider is "gcs", "minio" or "" (remote mirroring disabled).
	Provider        string `yaml:"provider"`
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// UpstreamConfig holds the upstream URL templates and HTTP behaviour.
type UpstreamConfig struct {
	WeatherURL      string        `yaml:"weather_url"`
	GeonamesURL     string        `yaml:"geonames_url"`
	Timeout         time.Duration `yaml:"timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ScheduleConfig drives the harvester daemon.
type ScheduleConfig struct {
	Interval     time.Duration `yaml:"interval"`
	Stations     []string      `yaml:"stations"`
	Years        []int         `yaml:"years"`
	OutputName   string        `yaml:"output_name"`
	OutputFormat string        `yaml:"output_format"`
}

type MetricsConfig struct {
	PushGatewayURL string `yaml:"pushgateway_url"`
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		LogLevel:        "INFO",
		LogDir:          "logs",
		DataDir:         "data",
		StationDataFile: "station_data.parquet",
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "weather",
			Name:            "weather",
			SSLMode:         "disable",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Upstream: UpstreamConfig{
			WeatherURL:      DefaultWeatherURL,
			GeonamesURL:     DefaultGeonamesURL,
			Timeout:         30 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Schedule: ScheduleConfig{
			Interval:     24 * time.Hour,
			OutputName:   "final_dataset",
			OutputFormat: "csv",
		},
	}
}

// LoadConfig reads the YAML configuration file, then applies .env and environment overrides.
// A missing configuration file is not an error; defaults and environment still apply.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	path := getenvDefault("CONFIG_FILE", DefaultConfigFile)
	return LoadFile(path)
}

// LoadFile loads configuration from path plus environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogDir = getenvDefault("LOG_DIR", cfg.LogDir)
	cfg.DataDir = getenvDefault("DATA_DIR", cfg.DataDir)
	cfg.StationDataFile = getenvDefault("STATION_DATA_FILE", cfg.StationDataFile)

	cfg.Database.Host = getenvDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getenvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getenvDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getenvDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getenvDefault("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getenvDefault("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Remote.Provider = getenvDefault("REMOTE_PROVIDER", cfg.Remote.Provider)
	cfg.Remote.Bucket = getenvDefault("REMOTE_BUCKET", cfg.Remote.Bucket)
	cfg.Remote.CredentialsFile = getenvDefault("GOOGLE_APPLICATION_CREDENTIALS", cfg.Remote.CredentialsFile)
	cfg.Remote.Endpoint = getenvDefault("REMOTE_ENDPOINT", cfg.Remote.Endpoint)
	cfg.Remote.AccessKey = getenvDefault("REMOTE_ACCESS_KEY", cfg.Remote.AccessKey)
	cfg.Remote.SecretKey = getenvDefault("REMOTE_SECRET_KEY", cfg.Remote.SecretKey)

	cfg.Server.Port = getenvInt("PORT", cfg.Server.Port)
	cfg.Metrics.PushGatewayURL = getenvDefault("PUSHGATEWAY_URL", cfg.Metrics.PushGatewayURL)

	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		cfg.Upstream.Timeout = d
	}

	if v := os.Getenv("SCHEDULE_STATIONS"); v != "" {
		cfg.Schedule.Stations = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}

	return nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.StationDataFile == "" {
		return errors.New("station_data_file is required")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	if c.Upstream.WeatherURL == "" || c.Upstream.GeonamesURL == "" {
		return errors.New("upstream weather_url and geonames_url are required")
	}

	switch c.Remote.Provider {
	case "":
	case "gcs", "minio":
		if c.Remote.Bucket == "" {
			return fmt.Errorf("remote.bucket is required for provider %q", c.Remote.Provider)
		}
		if c.Remote.Provider == "minio" && c.Remote.Endpoint == "" {
			return errors.New("remote.endpoint is required for provider \"minio\"")
		}
	default:
		return fmt.Errorf("unsupported remote.provider %q", c.Remote.Provider)
	}

	if c.Database.MaxOpenConns < 1 {
		return errors.New("database.max_open_conns must be at least 1")
	}

	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
