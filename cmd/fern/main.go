package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/recordstore"
	"github.com/Ramsey-B/fern/pkg/aggregation"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/routes/aggregate"
	"github.com/Ramsey-B/fern/pkg/routes/exception"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/rawrecord"
	"github.com/Ramsey-B/fern/pkg/routes/settings"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("fern stopped with an error")
		flush()
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (ectologger.Logger, func(), error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapConfig = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), func() { _ = zapLogger.Sync() }, nil
}

func run(cfg config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	defer func() { _ = boot.Stop(context.Background()) }()

	if cfg.TracingEnabled {
		boot.AddDependency(tracingDependency(cfg))
	}

	var sqlDB *sqlx.DB
	boot.AddDependency(&startup.Dependency{
		Name: "database",
		StartFn: func(ctx context.Context) error {
			db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseDSN())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(max(cfg.DatabaseMigrationVersion, 0)),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.MigratePostgres(db, cfg.DatabaseName); err != nil {
				_ = db.Close()
				return err
			}
			sqlDB = db
			return nil
		},
		StopFn: func(context.Context) error { return sqlDB.Close() },
	})

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		boot.AddDependency(&startup.Dependency{
			Name: "redis",
			StartFn: func(context.Context) error {
				client, err := redis.NewClient(redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				redisClient = client
				return nil
			},
			StopFn: func(context.Context) error { return redisClient.Close() },
		})
	}

	if err := boot.Start(ctx); err != nil {
		return err
	}

	db := database.NewDatabaseInstance(sqlDB, logger)
	store := recordstore.New(db, logger)

	var opts []aggregation.Option
	if redisClient != nil {
		locker := redis.NewLocker(redisClient, redis.DefaultKeyPrefix)
		opts = append(opts, aggregation.WithLocker(redis.NewWriterLock(locker, cfg.RedisLockKey, cfg.RedisLockTTL, cfg.RedisLockTimeout)))
	}

	policy := merging.NewStaticAccountPolicy(cfg.ReadOnlyAccountTypes, cfg.PhotoPriorities)
	engine := aggregation.NewEngine(logger, store, policy, aggregation.Config{
		Enabled:                  cfg.AggregationEnabled,
		PrimaryHitLimit:          cfg.PrimaryHitLimit,
		SecondaryHitLimit:        cfg.SecondaryHitLimit,
		SuggestionPrefixHitLimit: cfg.SuggestionPrefixHitLimit,
	}, opts...)

	checker := health.NewChecker(health.PingFunc(db.PingContext), engine, version)
	if redisClient != nil {
		checker.AddCheck("redis", redisClient)
	}

	var emitter *events.Emitter
	if cfg.KafkaProducerEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, store, logger)
	}

	if cfg.KafkaConsumerEnabled {
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, events.NewChangeHandler(engine, emitter, logger))
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Error("Failed to stop kafka consumer")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	rawrecord.NewHandler(engine, store, emitter, logger).Register(api.Group("/raw-records"))
	aggregate.NewHandler(engine, store, emitter, logger).Register(api.Group("/aggregates"))
	exception.NewHandler(engine, emitter, logger).Register(api.Group("/aggregation-exceptions"))
	settings.NewHandler(engine, emitter, logger).Register(api.Group("/aggregation"))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(map[string]any{"port": cfg.Port, "version": version}).Info("fern listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	checker.SetReady(true)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	checker.SetReady(false)
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func tracingDependency(cfg config.Config) *startup.Dependency {
	var shutdown func(context.Context) error
	return &startup.Dependency{
		Name: "tracing",
		StartFn: func(ctx context.Context) error {
			otlp := exporters.DefaultOTLPConfig()
			otlp.Endpoint = cfg.TracingEndpoint
			otlp.Protocol = cfg.TracingProtocol
			var err error
			shutdown, err = tracing.Setup(ctx, cfg.AppName, otlp)
			return err
		},
		StopFn: func(ctx context.Context) error { return shutdown(ctx) },
	}
}
