package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Run modes accepted by Load.
const (
	RunModeAPI    = "api"
	RunModeWorker = "worker"
	RunModeAll    = "all"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server
	ApiPort        string
	ServiceApiPort string

	// Logging
	LogLevel  string
	LogFormat string

	// Dedup & merge
	DedupRadiusMeters float64
	MergeMaxRetries   int
	IngestLockTTL     time.Duration

	// Workers
	WorkerConcurrency int
	AlertCron         string
	AlertConcurrency  int
	AlertOverlap      time.Duration

	// AWS S3 raw candidate archive
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	RawArchiveBucket   string

	// Rate Limiting
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	switch runMode {
	case RunModeAPI, RunModeWorker, RunModeAll:
	default:
		return nil, fmt.Errorf("invalid run mode %q: want %s, %s or %s", runMode, RunModeAPI, RunModeWorker, RunModeAll)
	}

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "leaseiq")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "8081")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.AlertCron = getEnv("ALERT_CRON", "@every 15m")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.RawArchiveBucket = getEnv("RAW_ARCHIVE_BUCKET", "")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.DedupRadiusMeters, err = strconv.ParseFloat(getEnv("DEDUP_RADIUS_METERS", "50"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEDUP_RADIUS_METERS: %w", err)
	}
	if cfg.DedupRadiusMeters <= 0 {
		return nil, fmt.Errorf("invalid DEDUP_RADIUS_METERS: must be positive, got %v", cfg.DedupRadiusMeters)
	}

	cfg.MergeMaxRetries, err = strconv.Atoi(getEnv("MERGE_MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid MERGE_MAX_RETRIES: %w", err)
	}
	if cfg.MergeMaxRetries < 0 {
		return nil, fmt.Errorf("invalid MERGE_MAX_RETRIES: must not be negative, got %d", cfg.MergeMaxRetries)
	}

	lockTTLSeconds, err := strconv.ParseInt(getEnv("INGEST_LOCK_TTL_SECONDS", "10"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_LOCK_TTL_SECONDS: %w", err)
	}
	cfg.IngestLockTTL = time.Duration(lockTTLSeconds) * time.Second

	cfg.WorkerConcurrency, err = strconv.Atoi(getEnv("WORKER_CONCURRENCY", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	cfg.AlertConcurrency, err = strconv.Atoi(getEnv("ALERT_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_CONCURRENCY: %w", err)
	}

	overlapSeconds, err := strconv.ParseInt(getEnv("ALERT_OVERLAP_SECONDS", "120"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_OVERLAP_SECONDS: %w", err)
	}
	cfg.AlertOverlap = time.Duration(overlapSeconds) * time.Second
	if cfg.AlertOverlap < cfg.IngestLockTTL {
		return nil, fmt.Errorf("invalid ALERT_OVERLAP_SECONDS: must be at least INGEST_LOCK_TTL_SECONDS, got %v < %v", cfg.AlertOverlap, cfg.IngestLockTTL)
	}

	// Rate Limiting
	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
