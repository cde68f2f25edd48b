package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhotoPriorities(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]int
		wantErr bool
	}{
		{"empty", "", map[string]int{}, false},
		{"pairs", "google:10, exchange:5", map[string]int{"google": 10, "exchange": 5}, false},
		{"negative", "local:-1", map[string]int{"local": -1}, false},
		{"missing priority", "google", nil, true},
		{"not a number", "google:high", nil, true},
		{"missing type", ":3", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePhotoPriorities(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("READ_ONLY_ACCOUNT_TYPES", "exchange")
	t.Setenv("PHOTO_PRIORITIES", "google:2")
	t.Setenv("REDIS_LOCK_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "fern-api", cfg.AppName)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"exchange"}, cfg.ReadOnlyAccountTypes)
	assert.Equal(t, map[string]int{"google": 2}, cfg.PhotoPriorities)
	assert.Equal(t, time.Minute, cfg.RedisLockTTL)
	assert.Equal(t, 10*time.Second, cfg.DatabaseConnMaxLifetime)
	assert.True(t, cfg.AggregationEnabled)
	assert.Contains(t, cfg.DatabaseDSN(), "dbname=fern")
}

func TestLoad_InvalidPhotoPriorities(t *testing.T) {
	t.Setenv("PHOTO_PRIORITIES", "google")
	_, err := Load()
	assert.Error(t, err)
}
