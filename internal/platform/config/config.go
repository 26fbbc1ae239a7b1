package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BlobBackendMemory = "memory"
	BlobBackendGCS    = "gcs"

	DefaultBucket          = "business-assets"
	DefaultAuditTopic      = "listing.audit"
	DefaultReceiptMaxBytes = 1 << 20
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	AdminAPIToken   string
	ShutdownTimeout time.Duration
}

// Database configures the Record Store. An empty URL selects the in-memory store.
type Database struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	URL          string
	Channel      string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type BlobConfig struct {
	Backend         string
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
}

type LogConfig struct {
	Level  slog.Level
	Format string
}

// Config is the full process configuration.
type Config struct {
	Server          Server
	Database        Database
	Redis           RedisConfig
	Kafka           KafkaConfig
	Blob            BlobConfig
	Log             LogConfig
	ReceiptMaxBytes int
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	maxBytes, err := getInt("RECEIPT_MAX_BYTES", DefaultReceiptMaxBytes)
	if err != nil {
		return Config{}, err
	}
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: Server{
			Addr:            getEnv("BIZDIR_ADDR", ":8080"),
			AdminAPIToken:   os.Getenv("ADMIN_API_TOKEN"),
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			Channel:      getEnv("REDIS_NOTIFY_CHANNEL", "listing.notifications"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getEnv("AUDIT_TOPIC", DefaultAuditTopic),
		},
		Blob: BlobConfig{
			Backend:         getEnv("BLOB_BACKEND", BlobBackendMemory),
			Bucket:          getEnv("GCS_BUCKET", DefaultBucket),
			CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			PublicBaseURL:   os.Getenv("BLOB_PUBLIC_BASE_URL"),
		},
		Log: LogConfig{
			Level:  level,
			Format: getEnv("LOG_FORMAT", "json"),
		},
		ReceiptMaxBytes: maxBytes,
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.AdminAPIToken == "" {
		errs = append(errs, errors.New("ADMIN_API_TOKEN is required"))
	}
	switch c.Blob.Backend {
	case BlobBackendMemory:
	case BlobBackendGCS:
		if c.Blob.Bucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs blob backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.Blob.Backend))
	}
	if c.ReceiptMaxBytes <= 0 {
		errs = append(errs, errors.New("RECEIPT_MAX_BYTES must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.AuditTopic == "" {
		errs = append(errs, errors.New("AUDIT_TOPIC is required when KAFKA_BROKERS is set"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(v string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
