package config

import (
	"fmt"
	"time"

	"github.com/RishiKendai/labscan/internal/configs/env"
	"github.com/RishiKendai/labscan/internal/models"
)

const (
	StoreMongo  = "mongo"
	StoreMinio  = "minio"
	StoreMemory = "memory"

	SourceMongo = "mongo"
	SourceFS    = "fs"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisDB                 int
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration
	IngestEnabled           bool

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentCompute int
	MaxWorkers           int

	// Computation
	ComputationTimeout   time.Duration
	DefaultMinTokenMatch int
	TokenNormalization   models.Normalization
	OmitZeroSimilarity   bool

	// Report storage
	ReportStore     string
	ReportCacheSize int
	MinioEndpoint   string
	MinioRegion     string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	// Submissions
	SubmissionSource  string
	WorkspaceDir      string
	MaxIngestFileSize int

	// NATS, disabled when empty
	NatsURL string

	// Logging
	LogLevel string

	// Server
	ServerPort  string
	MetricsPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "labscan")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = env.GetEnvInt("REDIS_DB", 0)
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "labscan:submissions")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "labscan:ingest")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "labscan:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_DURATION", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour
	cfg.IngestEnabled = env.GetEnvBool("INGEST_ENABLED", true)

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "labscan")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentCompute = env.GetEnvInt("MAX_CONCURRENT_COMPUTE", 5)
	cfg.MaxWorkers = env.GetEnvInt("MAX_WORKERS", 0)

	// Computation
	timeoutMinutes := env.GetEnvInt("COMPUTATION_TIMEOUT_MINUTES", 30)
	cfg.ComputationTimeout = time.Duration(timeoutMinutes) * time.Minute
	cfg.DefaultMinTokenMatch = env.GetEnvInt("DEFAULT_MIN_TOKEN_MATCH", 9)
	cfg.TokenNormalization = models.Normalization(env.GetEnv("TOKEN_NORMALIZATION", string(models.NormalizeIdentifiers)))
	cfg.OmitZeroSimilarity = env.GetEnvBool("OMIT_ZERO_SIMILARITY", false)

	// Report storage
	cfg.ReportStore = env.GetEnv("REPORT_STORE", StoreMongo)
	cfg.ReportCacheSize = env.GetEnvInt("REPORT_CACHE_SIZE", 1024)
	cfg.MinioEndpoint = env.GetEnv("MINIO_ENDPOINT", "")
	cfg.MinioRegion = env.GetEnv("MINIO_REGION", "")
	cfg.MinioAccessKey = env.GetEnv("MINIO_ACCESS_KEY", "")
	cfg.MinioSecretKey = env.GetEnv("MINIO_SECRET_KEY", "")
	cfg.MinioBucket = env.GetEnv("MINIO_BUCKET", "labscan-reports")
	cfg.MinioUseSSL = env.GetEnvBool("MINIO_USE_SSL", false)

	// Submissions
	cfg.SubmissionSource = env.GetEnv("SUBMISSION_SOURCE", SourceMongo)
	cfg.WorkspaceDir = env.GetEnv("WORKSPACE_DIR", "/code_platform/workspace/codespaces")
	cfg.MaxIngestFileSize = env.GetEnvInt("MAX_INGEST_FILE_SIZE", 1<<20)

	// NATS
	cfg.NatsURL = env.GetEnv("NATS_URL", "")

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")
	cfg.MetricsPort = env.GetEnv("METRICS_PORT", "2112")

	return cfg, nil
}

// NeedsMongo reports whether any configured component is backed by MongoDB
func (c *Config) NeedsMongo() bool {
	return c.ReportStore == StoreMongo || c.SubmissionSource == SourceMongo || c.IngestEnabled
}

func (c *Config) Validate() error {
	if c.NeedsMongo() {
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
		if c.MongoDBName == "" {
			return fmt.Errorf("MONGO_DB_NAME is required")
		}
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentCompute <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_COMPUTE must be greater than 0")
	}
	if c.ComputationTimeout <= 0 {
		return fmt.Errorf("COMPUTATION_TIMEOUT_MINUTES must be greater than 0")
	}
	if c.DefaultMinTokenMatch < 1 {
		return fmt.Errorf("DEFAULT_MIN_TOKEN_MATCH must be at least 1")
	}
	if !c.TokenNormalization.Valid() {
		return fmt.Errorf("TOKEN_NORMALIZATION must be one of identifiers, all, none")
	}
	if c.IngestEnabled && c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	if c.MaxIngestFileSize <= 0 {
		return fmt.Errorf("MAX_INGEST_FILE_SIZE must be greater than 0")
	}

	switch c.ReportStore {
	case StoreMongo, StoreMemory:
	case StoreMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio report store")
		}
		if c.MinioBucket == "" {
			return fmt.Errorf("MINIO_BUCKET is required")
		}
	default:
		return fmt.Errorf("REPORT_STORE must be one of mongo, minio, memory, got %q", c.ReportStore)
	}

	switch c.SubmissionSource {
	case SourceMongo:
	case SourceFS:
		if c.WorkspaceDir == "" {
			return fmt.Errorf("WORKSPACE_DIR is required for the fs submission source")
		}
	default:
		return fmt.Errorf("SUBMISSION_SOURCE must be one of mongo, fs, got %q", c.SubmissionSource)
	}
	return nil
}
