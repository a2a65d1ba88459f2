package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"sampletrack/internal/alerting"
	"sampletrack/internal/custody"
	"sampletrack/internal/notify"
	"sampletrack/internal/platform/config"
	"sampletrack/internal/platform/httpserver"
	"sampletrack/internal/platform/logger"
	"sampletrack/internal/platform/metrics"
	"sampletrack/internal/platform/postgres"
	"sampletrack/internal/platform/redis"
	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
	"sampletrack/internal/timeline"
	"sampletrack/internal/tracking"
	trackingHandler "sampletrack/internal/tracking/handler"
	trackingMetrics "sampletrack/internal/tracking/metrics"
	"sampletrack/pkg/platform/httputil"
	"sampletrack/pkg/platform/middleware/device"
	"sampletrack/pkg/platform/middleware/metadata"
	"sampletrack/pkg/platform/middleware/requesttime"
	"sampletrack/pkg/platform/tx"
)

// stores groups the persistence backends selected at startup.
type stores struct {
	samples  tracking.SampleStore
	readings tracking.ReadingStore
	events   timeline.Store
	custody  custody.Store
	alerts   alerting.Store
	tx       tx.Runner
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("sampletrack exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("sampletrack stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var db *sql.DB
	st := memoryStores()
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL, postgres.Options{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute})
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		st = postgresStores(db)
		log.Info("using postgres stores")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	notifyOpts := []notify.Option{
		notify.WithBuffer(cfg.Notify.Buffer),
		notify.WithSubscriberBuffer(cfg.Notify.SubscriberBuffer),
		notify.WithSinkBuffer(cfg.Notify.SinkBuffer),
		notify.WithLogger(log),
		notify.WithMetrics(notify.NewMetrics()),
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		bus := notify.NewRedisBus(rdb.Client, cfg.Redis.Channel, log)
		defer bus.Close()
		notifyOpts = append(notifyOpts, notify.WithBus(bus))
		log.Info("redis event bus enabled", "channel", cfg.Redis.Channel)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return err
		}
		notifyOpts = append(notifyOpts, notify.WithSink(sink))
		log.Info("kafka timeline export enabled", "topic", cfg.Kafka.Topic)
	}

	notifier := notify.New(notifyOpts...)
	events := timeline.New(st.events, timeline.WithPublisher(notifier), timeline.WithLogger(log))
	alerts := alerting.NewEngine(st.alerts, events, alerting.WithLogger(log))

	var authorizer custody.Authorizer = custody.StaticAuthorizer{}
	if cfg.Custody.JWTSigningKey != "" {
		authorizer = custody.NewJWTAuthorizer(cfg.Custody.JWTSigningKey, cfg.Custody.JWTIssuer)
		log.Info("custody transfers require signed authorization tokens")
	}
	ledger := custody.NewLedger(st.custody, events,
		custody.WithAuthorizer(authorizer),
		custody.WithLogger(log),
	)

	controller := tracking.NewController(st.samples, st.readings, ledger, alerts, events,
		tracking.WithLogger(log),
		tracking.WithMetrics(trackingMetrics.New()),
		tracking.WithSerializer(tracking.NewSerializer(cfg.Tracking.QueueDepth, cfg.Tracking.EnqueueTimeout, cfg.Tracking.LaneIdle)),
		tracking.WithSubscriber(notifier),
		tracking.WithTxRunner(st.tx),
	)

	httpMetrics := metrics.New()
	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(metadata.Actor)
	r.Use(device.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", health(db, rdb))
	trackingHandler.New(controller, log, trackingHandler.WithOriginPatterns(cfg.AllowedOrigins...)).Register(r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifier.Run(gctx)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, httpserver.New(cfg.Addr, r), cfg.ShutdownTimeout, log)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func memoryStores() stores {
	return stores{
		samples:  sample.NewInMemoryStore(),
		readings: telemetry.NewInMemoryStore(),
		events:   timeline.NewInMemoryStore(),
		custody:  custody.NewInMemoryStore(),
		alerts:   alerting.NewInMemoryStore(),
		tx:       tx.NoopRunner{},
	}
}

func postgresStores(db *sql.DB) stores {
	return stores{
		samples:  sample.NewPostgres(db),
		readings: telemetry.NewPostgres(db),
		events:   timeline.NewPostgres(db),
		custody:  custody.NewPostgres(db),
		alerts:   alerting.NewPostgres(db),
		tx:       tx.NewPostgresRunner(db, 5*time.Second),
	}
}

func health(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := postgres.Health(ctx, db); err != nil {
				status["postgres"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				status["redis"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		httputil.WriteJSON(w, code, status)
	}
}
