package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test in an empty directory so a developer's .env is not picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestFromEnv_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ADMIN_API_TOKEN", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BlobBackendMemory, cfg.Blob.Backend)
	assert.Equal(t, DefaultBucket, cfg.Blob.Bucket)
	assert.Equal(t, DefaultReceiptMaxBytes, cfg.ReceiptMaxBytes)
	assert.Equal(t, DefaultAuditTopic, cfg.Kafka.AuditTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFromEnv_Overrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ADMIN_API_TOKEN", "secret")
	t.Setenv("BIZDIR_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("RECEIPT_MAX_BYTES", "2048")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2048, cfg.ReceiptMaxBytes)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestFromEnv_LoadsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("ADMIN_API_TOKEN", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ADMIN_API_TOKEN=from-file\nGCS_BUCKET=receipts-dev\n"), 0o600))
	// godotenv does not override variables that are already set, so clear them.
	require.NoError(t, os.Unsetenv("ADMIN_API_TOKEN"))
	t.Cleanup(func() {
		_ = os.Unsetenv("ADMIN_API_TOKEN")
		_ = os.Unsetenv("GCS_BUCKET")
	})

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Server.AdminAPIToken)
	assert.Equal(t, "receipts-dev", cfg.Blob.Bucket)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ADMIN_API_TOKEN", "secret")

	t.Run("receipt size not a number", func(t *testing.T) {
		t.Setenv("RECEIPT_MAX_BYTES", "lots")
		_, err := FromEnv()
		require.ErrorContains(t, err, "RECEIPT_MAX_BYTES")
	})

	t.Run("unknown log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "chatty")
		_, err := FromEnv()
		require.ErrorContains(t, err, "LOG_LEVEL")
	})
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server:          Server{AdminAPIToken: "secret"},
		Blob:            BlobConfig{Backend: BlobBackendMemory},
		Log:             LogConfig{Format: "json"},
		ReceiptMaxBytes: DefaultReceiptMaxBytes,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing admin token", func(c *Config) { c.Server.AdminAPIToken = "" }, "ADMIN_API_TOKEN"},
		{"gcs without bucket", func(c *Config) { c.Blob.Backend = BlobBackendGCS; c.Blob.Bucket = "" }, "GCS_BUCKET"},
		{"unknown blob backend", func(c *Config) { c.Blob.Backend = "s3" }, "BLOB_BACKEND"},
		{"non-positive receipt size", func(c *Config) { c.ReceiptMaxBytes = 0 }, "RECEIPT_MAX_BYTES"},
		{"brokers without topic", func(c *Config) { c.Kafka.Brokers = []string{"a:9092"} }, "AUDIT_TOPIC"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
