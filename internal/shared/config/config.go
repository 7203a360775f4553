package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Remote backend selectors.
const (
	RemoteHTTP     = "http"
	RemotePostgres = "postgres"
)

type Config struct {
	User       UserConfig
	Cache      CacheConfig
	Encryption EncryptionConfig
	Remote     RemoteConfig
	Database   DatabaseConfig
	Sync       SyncConfig
	Category   CategoryConfig
	Report     ReportConfig
	Telemetry  TelemetryConfig
}

type UserConfig struct {
	ID string
}

type CacheConfig struct {
	Path string
}

type EncryptionConfig struct {
	Key string
}

type RemoteConfig struct {
	Backend string
	BaseURL string
	APIKey  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SyncConfig struct {
	Workers   int
	QueueSize int
}

type CategoryConfig struct {
	KeywordsFile string
}

type ReportConfig struct {
	InstallmentHorizon int
	RiskFraction       string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	syncWorkers, err := strconv.Atoi(getEnv("SYNC_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_WORKERS: %w", err)
	}
	syncQueueSize, err := strconv.Atoi(getEnv("SYNC_QUEUE_SIZE", "128"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_QUEUE_SIZE: %w", err)
	}

	horizon, err := strconv.Atoi(getEnv("REPORT_INSTALLMENT_HORIZON", "12"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_INSTALLMENT_HORIZON: %w", err)
	}

	cfg := &Config{
		User: UserConfig{
			ID: getEnv("CENTAVO_USER_ID", ""),
		},
		Cache: CacheConfig{
			Path: getEnv("CACHE_PATH", defaultCachePath()),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Remote: RemoteConfig{
			Backend: getEnv("REMOTE_BACKEND", RemoteHTTP),
			BaseURL: getEnv("REMOTE_BASE_URL", ""),
			APIKey:  getEnv("REMOTE_API_KEY", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "centavo"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "centavo"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Sync: SyncConfig{
			Workers:   syncWorkers,
			QueueSize: syncQueueSize,
		},
		Category: CategoryConfig{
			KeywordsFile: getEnv("CATEGORY_KEYWORDS_FILE", ""),
		},
		Report: ReportConfig{
			InstallmentHorizon: horizon,
			RiskFraction:       getEnv("REPORT_RISK_FRACTION", "0.4"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "centavo"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9464"),
		},
	}

	if cfg.Encryption.Key != "" && len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes")
	}
	switch cfg.Remote.Backend {
	case RemoteHTTP:
		if cfg.Remote.BaseURL == "" {
			return nil, fmt.Errorf("REMOTE_BASE_URL is required when REMOTE_BACKEND=http")
		}
	case RemotePostgres:
	default:
		return nil, fmt.Errorf("invalid REMOTE_BACKEND %q: must be http or postgres", cfg.Remote.Backend)
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "centavo.db"
	}
	return home + "/.centavo/cache.db"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
