package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	LogLevel    string

	DatabaseURL    string
	HTTPListenAddr string
	MetricsAddr    string

	// OperatorAPIKeys are accepted in the X-API-Key header of the operator
	// API.
	OperatorAPIKeys []string

	TemporalAddress       string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	// SearchEndpointsFile points at the YAML allow-list of search services.
	// Messages naming any other endpoint are rejected.
	SearchEndpointsFile string
	SearchAPIKey        string
	SearchAPIVersion    string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	BackupQueue            string
	RestoreQueue           string
	QueuePollInterval      time.Duration
	QueueVisibilityTimeout time.Duration
	QueueMaxDequeueCount   int

	BackupSweepCron string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:            getEnv("SERVICE_NAME", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		HTTPListenAddr:         getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:            getEnv("METRICS_ADDR", ":9090"),
		TemporalAddress:        getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTLSCert:        getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:         getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:      getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName:  getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
		SearchEndpointsFile:    getEnv("SEARCH_ENDPOINTS_FILE", "search-endpoints.yaml"),
		SearchAPIKey:           getEnv("SEARCH_API_KEY", ""),
		SearchAPIVersion:       getEnv("SEARCH_API_VERSION", "2023-11-01"),
		S3Endpoint:             getEnv("S3_ENDPOINT", ""),
		S3Region:               getEnv("S3_REGION", "us-east-1"),
		S3Bucket:               getEnv("S3_BUCKET", ""),
		S3AccessKey:            getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:            getEnv("S3_SECRET_KEY", ""),
		BackupQueue:            getEnv("BACKUP_QUEUE", "search-backup"),
		RestoreQueue:           getEnv("RESTORE_QUEUE", "search-restore"),
		BackupSweepCron:        getEnv("BACKUP_SWEEP_CRON", "0 1 * * *"),
		OperatorAPIKeys:        getList("OPERATOR_API_KEYS"),
	}

	var err error
	if cfg.QueuePollInterval, err = getDuration("QUEUE_POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.QueueVisibilityTimeout, err = getDuration("QUEUE_VISIBILITY_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.QueueMaxDequeueCount, err = getInt("QUEUE_MAX_DEQUEUE_COUNT", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every variable the given component needs is set.
// All missing variables are reported at once.
func (c *Config) Validate(component string) error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch component {
	case "worker":
		require("DATABASE_URL", c.DatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("SEARCH_ENDPOINTS_FILE", c.SearchEndpointsFile)
		require("S3_BUCKET", c.S3Bucket)
		require("S3_ACCESS_KEY", c.S3AccessKey)
		require("S3_SECRET_KEY", c.S3SecretKey)
	case "api":
		require("DATABASE_URL", c.DatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
		require("SEARCH_ENDPOINTS_FILE", c.SearchEndpointsFile)
		require("OPERATOR_API_KEYS", strings.Join(c.OperatorAPIKeys, ","))
	case "ctl":
		require("DATABASE_URL", c.DatabaseURL)
		require("SEARCH_ENDPOINTS_FILE", c.SearchEndpointsFile)
	default:
		return fmt.Errorf("unknown component %q", component)
	}
	require("BACKUP_QUEUE", c.BackupQueue)
	require("RESTORE_QUEUE", c.RestoreQueue)

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}
	if c.QueueMaxDequeueCount < 1 {
		return fmt.Errorf("QUEUE_MAX_DEQUEUE_COUNT must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getList splits a comma-separated variable, dropping empty entries.
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
