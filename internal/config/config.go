package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CryptoConfig holds key material settings for the encryption engine.
type CryptoConfig struct {
	// MasterKeyHex seeds the keyring (32 bytes, hex encoded). Empty means a
	// random key is generated at startup — fine for dev, useless for
	// decrypting anything after a restart.
	MasterKeyHex string
}

// BreakerConfig holds circuit breaker settings for the storage client.
type BreakerConfig struct {
	Window       int
	MinSamples   int
	FailureRate  float64
	ResetTimeout time.Duration
	CallTimeout  time.Duration
}

// RetryConfig holds the verification retry/backoff policy settings.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
}

// VerifierConfig holds settings for the external verification service client.
type VerifierConfig struct {
	// URL of the verification service. Empty selects the built-in stub
	// client (dev/testing only).
	URL     string
	Timeout time.Duration
}

// WorkerConfig holds the verification poller settings.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// PipelineConfig holds orchestrator-level settings.
type PipelineConfig struct {
	MaxSizeBytes        int64
	ConfidenceThreshold float64
	ValidityWindow      time.Duration
	OverallTimeout      time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Crypto   CryptoConfig
	Breaker  BreakerConfig
	Retry    RetryConfig
	Verifier VerifierConfig
	Worker   WorkerConfig
	Pipeline PipelineConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Crypto: CryptoConfig{
			MasterKeyHex: getEnv("CRYPTO_MASTER_KEY", ""),
		},
		Breaker: BreakerConfig{
			Window:       getEnvInt("STORAGE_BREAKER_WINDOW", 10),
			MinSamples:   getEnvInt("STORAGE_BREAKER_MIN_SAMPLES", 4),
			FailureRate:  getEnvFloat("STORAGE_BREAKER_FAILURE_RATE", 0.5),
			ResetTimeout: getEnvSeconds("STORAGE_BREAKER_RESET_SEC", 30),
			CallTimeout:  getEnvSeconds("STORAGE_CALL_TIMEOUT_SEC", 30),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvInt("VERIFY_MAX_ATTEMPTS", 3),
			BaseDelay:   time.Duration(getEnvInt("VERIFY_BACKOFF_BASE_MS", 1000)) * time.Millisecond,
			Factor:      getEnvFloat("VERIFY_BACKOFF_FACTOR", 2),
			MaxDelay:    time.Duration(getEnvInt("VERIFY_BACKOFF_MAX_MS", 5000)) * time.Millisecond,
		},
		Verifier: VerifierConfig{
			URL:     getEnv("VERIFIER_URL", ""),
			Timeout: getEnvSeconds("VERIFIER_TIMEOUT_SEC", 30),
		},
		Worker: WorkerConfig{
			PollInterval: getEnvSeconds("VERIFY_POLL_INTERVAL_SEC", 10),
			BatchSize:    getEnvInt("VERIFY_BATCH_SIZE", 10),
		},
		Pipeline: PipelineConfig{
			MaxSizeBytes:        int64(getEnvInt("DOC_MAX_SIZE_BYTES", 10<<20)),
			ConfidenceThreshold: getEnvFloat("VERIFY_CONFIDENCE_THRESHOLD", 0.8),
			ValidityWindow:      getEnvSeconds("DOC_VALIDITY_WINDOW_SEC", 30*24*3600),
			OverallTimeout:      getEnvSeconds("VERIFY_OVERALL_TIMEOUT_SEC", 120),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getEnvSeconds(key string, def int) time.Duration {
	return time.Duration(getEnvInt(key, def)) * time.Second
}
