package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Outbox.SweepInterval)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, 3, cfg.Consumer.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Consumer.RetryBackoff)
	assert.Equal(t, 2*time.Second, cfg.Consumer.ProjectionRetryBackoff)
	assert.Equal(t, time.Second, cfg.Consumer.RedeliveryDelay)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("OUTBOX_SWEEP_INTERVAL", "250ms")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CONSUMER_PROJECTION_RETRY_BACKOFF", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Consumer.ProjectionRetryBackoff)

	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.SweepInterval)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "0.0.0.0:8081", cfg.HTTP.Addr())
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidSweepInterval(t *testing.T) {
	t.Setenv("OUTBOX_SWEEP_INTERVAL", "0s")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MYSQL_DATABASE=customer_db\nMYSQL_PORT=3307\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("MYSQL_DATABASE")
		_ = os.Unsetenv("MYSQL_PORT")
	})

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "customer_db", cfg.MySQL.Database)
	assert.Contains(t, cfg.MySQL.DSN(), "@tcp(localhost:3307)/customer_db?")
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
