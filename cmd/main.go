package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/core-analytics/retention-etl/internal/config"
	"github.com/core-analytics/retention-etl/internal/server"
	"github.com/core-analytics/retention-etl/internal/service"
	"github.com/core-analytics/retention-etl/internal/source"
	"github.com/core-analytics/retention-etl/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	once := flag.Bool("once", false, "run a single batch and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Retention ETL starting up...")

	sinkPool, err := setupSinkPool(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to reporting database", zap.Error(err))
	}
	defer sinkPool.Close()

	sink := store.NewPostgresStore(sinkPool, logger)
	if err := sink.Initialize(context.Background()); err != nil {
		logger.Fatal("Failed to initialize reporting schema", zap.Error(err))
	}

	src, err := setupSource(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize acquisition source", zap.Error(err))
	}
	defer src.Close()

	runner := service.NewRunner(src, sink, cfg.Job, logger)

	if *once {
		summary, err := runner.Run(context.Background())
		if err != nil {
			logger.Fatal("Batch run failed", zap.Error(err))
		}
		if summary.FailedUnits > 0 {
			logger.Warn("Batch run finished with failed units", zap.Int("failed_units", summary.FailedUnits))
			os.Exit(1)
		}
		return
	}

	runDaemon(cfg, runner, sink, logger)
}

// runDaemon serves the admin endpoints and reruns the batch on the
// configured interval until a shutdown signal arrives.
func runDaemon(cfg *config.Config, runner *service.Runner, sink *store.PostgresStore, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(&cfg.Server, runner, sink, logger)
	go func() {
		logger.Info("Starting admin HTTP server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start admin HTTP server", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(cfg.Job.Interval)
	defer ticker.Stop()

	runOnce := func() {
		if _, err := runner.Run(ctx); err != nil && err != service.ErrRunInProgress && ctx.Err() == nil {
			logger.Error("Scheduled batch run failed", zap.Error(err))
		}
	}
	go runOnce()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			go runOnce()
		case s := <-sig:
			logger.Info("Received shutdown signal, shutting down gracefully...", zap.String("signal", s.String()))
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shutdown admin server gracefully", zap.Error(err))
			}
			return
		}
	}
}

// loadConfig loads configuration from file
func loadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setupLogger initializes the logger
func setupLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config := zap.NewProductionConfig()
	config.Level = zapLevel
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// setupSinkPool initializes the reporting database connection
func setupSinkPool(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := cfg.GetSinkPoolConfig()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Reporting database connection established")
	return pool, nil
}

// setupSource initializes the configured acquisition strategy
func setupSource(cfg *config.Config, logger *zap.Logger) (source.Source, error) {
	switch cfg.Job.Source {
	case config.SourceOperational:
		poolCfg, err := cfg.GetOperationalPoolConfig()
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create operational pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping operational store: %w", err)
		}

		logger.Info("Operational store connection established")
		return source.NewOperational(pool, logger), nil
	default:
		return source.NewWarehouse(cfg.Warehouse.DSN, logger)
	}
}
