package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "sampletrack/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	LogLevel  string
	LogFormat string

	// DatabaseURL selects Postgres stores; empty keeps everything in memory.
	DatabaseURL string

	Redis    RedisConfig
	Kafka    KafkaConfig
	Custody  CustodyConfig
	Tracking TrackingConfig
	Notify   NotifyConfig
}

// RedisConfig configures the cross-instance event bus. An empty URL keeps
// fan-out local to the process.
type RedisConfig struct {
	URL          string
	Channel      string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures timeline export. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

type CustodyConfig struct {
	// JWTSigningKey switches transfer authorization from trusting the
	// asserted authorizer to verifying HS256 tokens.
	JWTSigningKey string
	JWTIssuer     string
}

type TrackingConfig struct {
	QueueDepth     int
	EnqueueTimeout time.Duration
	LaneIdle       time.Duration
}

type NotifyConfig struct {
	Buffer           int
	SubscriberBuffer int
	SinkBuffer       int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	p := &parser{}
	cfg := Server{
		Addr:            p.str("SAMPLETRACK_ADDR", ":8080"),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AllowedOrigins:  p.hosts("WS_ALLOWED_ORIGINS"),
		LogLevel:        p.str("LOG_LEVEL", "info"),
		LogFormat:       p.str("LOG_FORMAT", "json"),
		DatabaseURL:     p.str("DATABASE_URL", ""),
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			Channel:      p.str("REDIS_EVENTS_CHANNEL", "sampletrack.events"),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           p.list("KAFKA_BROKERS"),
			Topic:             p.str("KAFKA_EVENTS_TOPIC", "sampletrack.timeline"),
			Partitions:        int32(p.integer("KAFKA_EVENTS_PARTITIONS", 6)),
			ReplicationFactor: int16(p.integer("KAFKA_EVENTS_REPLICATION", 1)),
		},
		Custody: CustodyConfig{
			JWTSigningKey: p.str("CUSTODY_JWT_SIGNING_KEY", ""),
			JWTIssuer:     p.str("CUSTODY_JWT_ISSUER", ""),
		},
		Tracking: TrackingConfig{
			QueueDepth:     p.integer("TRACKING_QUEUE_DEPTH", 64),
			EnqueueTimeout: p.duration("TRACKING_ENQUEUE_TIMEOUT", 50*time.Millisecond),
			LaneIdle:       p.duration("TRACKING_LANE_IDLE", 30*time.Second),
		},
		Notify: NotifyConfig{
			Buffer:           p.integer("NOTIFY_BUFFER", 1024),
			SubscriberBuffer: p.integer("NOTIFY_SUBSCRIBER_BUFFER", 32),
			SinkBuffer:       p.integer("NOTIFY_SINK_BUFFER", 256),
		},
	}
	if p.err != nil {
		return Server{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) validate() error {
	switch {
	case s.Tracking.QueueDepth < 1:
		return fmt.Errorf("TRACKING_QUEUE_DEPTH must be positive")
	case s.Tracking.EnqueueTimeout <= 0:
		return fmt.Errorf("TRACKING_ENQUEUE_TIMEOUT must be positive")
	case s.Notify.Buffer < 1 || s.Notify.SubscriberBuffer < 1 || s.Notify.SinkBuffer < 1:
		return fmt.Errorf("notify buffers must be positive")
	case len(s.Kafka.Brokers) > 0 && s.Kafka.Topic == "":
		return fmt.Errorf("KAFKA_EVENTS_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// parser keeps the first malformed variable it sees.
type parser struct {
	err error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("%s: invalid integer %q", key, raw)
		}
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("%s: invalid duration %q", key, raw)
		}
		return def
	}
	return v
}

func (p *parser) list(key string) []string {
	out := platformstrings.DedupeAndTrim(strings.Split(os.Getenv(key), ","))
	if len(out) == 0 {
		return nil
	}
	return out
}

func (p *parser) hosts(key string) []string {
	out := platformstrings.DedupeAndTrimLower(strings.Split(os.Getenv(key), ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
