package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrwa-ai/mrwa/internal/application/orchestrator"
	"github.com/mrwa-ai/mrwa/internal/application/service"
	"github.com/mrwa-ai/mrwa/internal/application/workers"
	"github.com/mrwa-ai/mrwa/internal/config"
	eventsredis "github.com/mrwa-ai/mrwa/pkg/adapters/events/redis"
	leaseredis "github.com/mrwa-ai/mrwa/pkg/adapters/lease/redis"
	"github.com/mrwa-ai/mrwa/pkg/adapters/metrics/prometheus"
	"github.com/mrwa-ai/mrwa/pkg/adapters/planner"
	storageredis "github.com/mrwa-ai/mrwa/pkg/adapters/storage/redis"
	httpapi "github.com/mrwa-ai/mrwa/pkg/api/http"
	"github.com/mrwa-ai/mrwa/pkg/api/websocket"
	"github.com/mrwa-ai/mrwa/pkg/handlers"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting MRWA execution core",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize Redis client
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// Initialize adapters
	store := storageredis.NewStore(redisClient, cfg.Redis.StateTTL, logger)
	sink := eventsredis.NewSink(redisClient, cfg.Redis.StateTTL, logger)
	leases := leaseredis.NewManager(redisClient)
	metricsCollector := prometheus.NewCollector()

	planGenerator, err := planner.New(&planner.Config{
		Provider:  cfg.Planner.Provider,
		APIKey:    cfg.Planner.APIKey,
		Model:     cfg.Planner.Model,
		MaxTokens: cfg.Planner.MaxTokens,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to create plan generator", zap.Error(err))
	}

	registry := handlers.NewDemoRegistry()

	// Initialize application components
	hostname, _ := os.Hostname()
	engine := orchestrator.NewEngine(
		store,
		sink,
		leases,
		registry,
		metricsCollector,
		orchestrator.NewValidator(),
		orchestrator.NewCorrector(),
		logger,
		orchestrator.Options{
			WorkerID:        fmt.Sprintf("%s-%d", hostname, os.Getpid()),
			BackoffBase:     cfg.Orchestrator.BackoffBase,
			BackoffCap:      cfg.Orchestrator.BackoffCap,
			LeaseTTL:        cfg.Orchestrator.LeaseTTL,
			StepTimeout:     cfg.Timeouts.StepTimeout,
			PersistAttempts: cfg.Orchestrator.PersistAttempts,
			PersistBackoff:  cfg.Orchestrator.PersistBackoff,
		},
	)

	svc := service.New(service.Config{
		Store:             store,
		Sink:              sink,
		Planner:           planGenerator,
		Engine:            engine,
		Metrics:           metricsCollector,
		Logger:            logger,
		ExecutionTimeout:  cfg.Timeouts.ExecutionTimeout,
		DefaultMaxRetries: cfg.Orchestrator.DefaultMaxRetries,
		QueueSize:         cfg.Workers.QueueSize,
	})

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		svc.Queue(),
		svc,
		logger,
		cfg.Workers.HealthCheckInterval,
	)

	// Start worker pool
	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	// Initialize API server
	httpServer := httpapi.NewServer(&httpapi.Config{
		Port:    cfg.HTTPPort,
		Service: svc,
		Logger:  logger,
	})
	httpServer.SetupLogStream(websocket.NewHandler(svc, logger))

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("MRWA execution core started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("planner", cfg.Planner.Provider),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := sink.Close(); err != nil {
		logger.Error("event sink close error", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("MRWA execution core shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
