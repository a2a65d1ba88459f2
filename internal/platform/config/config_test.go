package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 64, cfg.Tracking.QueueDepth)
	assert.Equal(t, 50*time.Millisecond, cfg.Tracking.EnqueueTimeout)
	assert.Equal(t, 30*time.Second, cfg.Tracking.LaneIdle)
	assert.Equal(t, 1024, cfg.Notify.Buffer)
	assert.Equal(t, 32, cfg.Notify.SubscriberBuffer)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SAMPLETRACK_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,kafka-1:9092")
	t.Setenv("TRACKING_QUEUE_DEPTH", "8")
	t.Setenv("TRACKING_ENQUEUE_TIMEOUT", "250ms")
	t.Setenv("WS_ALLOWED_ORIGINS", "Dashboard.Example.com, dashboard.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Tracking.QueueDepth)
	assert.Equal(t, 250*time.Millisecond, cfg.Tracking.EnqueueTimeout)
	assert.Equal(t, []string{"dashboard.example.com"}, cfg.AllowedOrigins)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	tests := map[string]string{
		"TRACKING_QUEUE_DEPTH":     "lots",
		"TRACKING_ENQUEUE_TIMEOUT": "soon",
		"NOTIFY_BUFFER":            "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
