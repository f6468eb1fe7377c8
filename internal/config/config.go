// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// the ingest pipeline, database connections, blob storage, and the AI extraction client.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during
// application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Kafka       KafkaConfig
	Blob        BlobConfig
	AI          AIConfig
	Pipeline    PipelineConfig
	Scanner     ScannerConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the audit event store
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka configuration for audit event broadcasting.
// AuditTopic may be empty, in which case events are persisted but not published.
type KafkaConfig struct {
	Brokers           string
	AuditTopic        string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// BlobConfig contains blob store configuration. When Bucket is empty the
// filesystem store rooted at LocalDir is used instead of GCS.
type BlobConfig struct {
	Bucket          string // GCS bucket name
	Prefix          string // Key prefix inside the bucket
	CredentialsJSON string // Optional explicit service-account JSON
	LocalDir        string // Root directory for the filesystem store
}

// AIConfig contains the extraction model client configuration.
// An empty APIKey disables the client and activates the heuristic fallback.
type AIConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// PipelineConfig contains reconciliation pipeline tuning parameters
type PipelineConfig struct {
	ProcessBatchSize    int     // Default batch size for process-pending runs
	ConfidenceThreshold float64 // Minimum acceptable extraction confidence
	AmountTolerancePct  float64 // Allowed fractional PO/invoice total deviation
}

// ScannerConfig contains raw file scanner configuration
type ScannerConfig struct {
	RawDataDir string // Directory scanned for candidate documents
	HasherPool int    // Worker pool size for content hashing
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config only when audit broadcasting is enabled
	if c.Kafka.AuditTopic != "" {
		if len(c.Kafka.Brokers) == 0 {
			validationErrors = append(validationErrors, "KAFKA_BROKERS is required when KAFKA_AUDIT_TOPIC is set")
		}
		if c.Kafka.WriteTimeout <= 0 {
			validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
		}
	}

	// Validate blob store config
	if c.Blob.Bucket == "" && c.Blob.LocalDir == "" {
		validationErrors = append(validationErrors, "either BLOB_BUCKET or BLOB_LOCAL_DIR is required")
	}

	// Validate AI config only when a key is configured
	if c.AI.APIKey != "" {
		if c.AI.Endpoint == "" {
			validationErrors = append(validationErrors, "AI_ENDPOINT is required when AI_API_KEY is set")
		}
		if c.AI.Model == "" {
			validationErrors = append(validationErrors, "AI_MODEL is required when AI_API_KEY is set")
		}
		if c.AI.Timeout <= 0 {
			validationErrors = append(validationErrors, "AI_TIMEOUT must be greater than 0")
		}
	}

	// Validate pipeline config
	if c.Pipeline.ProcessBatchSize <= 0 {
		validationErrors = append(validationErrors, "PROCESS_BATCH_SIZE must be greater than 0")
	}
	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 1 {
		validationErrors = append(validationErrors, "CONFIDENCE_THRESHOLD must be between 0 and 1")
	}
	if c.Pipeline.AmountTolerancePct < 0 || c.Pipeline.AmountTolerancePct > 1 {
		validationErrors = append(validationErrors, "AMOUNT_TOLERANCE_PCT must be between 0 and 1")
	}

	// Validate scanner config
	if c.Scanner.RawDataDir == "" {
		validationErrors = append(validationErrors, "RAW_DATA_DIR is required")
	}
	if c.Scanner.HasherPool <= 0 {
		validationErrors = append(validationErrors, "SCANNER_HASHER_POOL must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
