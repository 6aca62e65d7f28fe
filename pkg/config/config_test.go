package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("storage:\n  driver: memory\n"))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 120*time.Minute, c.Recompute.Window)
	assert.Equal(t, 4, c.Recompute.Workers)
	assert.Equal(t, 6, c.RateLimit.Max)
	assert.Equal(t, 10*time.Minute, c.RateLimit.Window)
	assert.Equal(t, time.Minute, c.RateLimit.EvictInterval)
	assert.Equal(t, 30*time.Second, c.Cache.TrendingTTL)
	assert.Equal(t, "demand.signals", c.Kafka.SignalsTopic)
	assert.False(t, c.Dev.RecomputeEnabled)
}

func TestParse_Validation(t *testing.T) {
	tests := map[string]string{
		"postgres without dsn": "storage:\n  driver: postgres\n",
		"unknown driver":       "storage:\n  driver: sqlite\n",
		"redis limiter off":    "storage:\n  driver: memory\nrate_limit:\n  backend: redis\n",
		"kafka without broker": "storage:\n  driver: memory\nkafka:\n  enabled: true\n",
		"clickhouse no host":   "storage:\n  driver: memory\nclickhouse:\n  enabled: true\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte("storage:\n  driver: memory\n"))
	require.NoError(t, err)

	env := map[string]string{
		"DATABASE_URL":          "postgres://u:p@db:5432/demand",
		"KAFKA_BROKERS":         "k1:9092, k2:9092",
		"REDIS_ADDR":            "cache:6379",
		"PORT":                  "9090",
		"DEV_RECOMPUTE_ENABLED": "true",
	}
	c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "postgres://u:p@db:5432/demand", c.Postgres.DSN)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
	assert.Equal(t, 9090, c.Server.Port)
	assert.True(t, c.Dev.RecomputeEnabled)
	require.NoError(t, c.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\nstorage:\n  driver: memory\nrecompute:\n  workers: 2\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 2, c.Recompute.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
