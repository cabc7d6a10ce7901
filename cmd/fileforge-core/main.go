package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fileforge/fileforge-core/internal/adapters/driven/memory"
	"github.com/fileforge/fileforge-core/internal/adapters/driven/postgres"
	"github.com/fileforge/fileforge-core/internal/adapters/driven/ratelimit"
	redisadapter "github.com/fileforge/fileforge-core/internal/adapters/driven/redis"
	httpserver "github.com/fileforge/fileforge-core/internal/adapters/driving/http"
	"github.com/fileforge/fileforge-core/internal/config"
	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
	"github.com/fileforge/fileforge-core/internal/core/services"
	"github.com/fileforge/fileforge-core/internal/extractors"
	"github.com/fileforge/fileforge-core/internal/runtime"
	"github.com/fileforge/fileforge-core/internal/worker"
)

var version = "dev"

func main() {
	// Run mode from environment (RUN_MODE) or command line arg:
	// api, worker, or all.
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("fileforge-core starting", "version", version, "mode", mode)

	cfg, err := config.Load(getEnv("CONFIG_FILE", ""))
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Shutdown on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ===== PostgreSQL (optional) =====
	var db *postgres.DB
	if cfg.Database.URL != "" {
		logger.Info("connecting to postgres")
		db, err = postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleSec) * time.Second,
		})
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			logger.Error("failed to initialize schema", "error", err)
			os.Exit(1)
		}
		logger.Info("postgres connected, schema initialized")
	}

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		logger.Info("connecting to redis")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("redis connected")
	}

	// ===== Stores (PostgreSQL if available, otherwise in-memory) =====
	var jobStore driven.JobStore
	var keyStore driven.KeyStore
	if db != nil {
		jobStore = postgres.NewJobStore(db)
		keyStore = postgres.NewKeyStore(db)
		logger.Info("using postgres stores")
	} else {
		jobStore = memory.NewJobStore()
		memKeys := memory.NewKeyStore()
		for _, k := range cfg.APIKeys {
			key := &domain.APIKey{
				ID:        k.ID,
				Name:      k.Name,
				KeyPrefix: keyPrefix(k.Key),
				KeyHash:   domain.HashKey(k.Key),
				RPM:       k.RPM,
				RPD:       k.RPD,
				Active:    true,
				CreatedAt: time.Now(),
			}
			memKeys.Put(key)
		}
		keyStore = memKeys
		logger.Info("using in-memory stores", "configured_keys", len(cfg.APIKeys))
	}

	// ===== Rate limiter and task queue (Redis if available) =====
	var limiter driven.RateLimiter
	var taskQueue driven.TaskQueue
	var redisPinger httpserver.Pinger
	if redisClient != nil {
		limiter = redisadapter.NewRateLimiter(redisClient)
		q, err := redisadapter.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			logger.Error("failed to create task queue", "error", err)
			os.Exit(1)
		}
		taskQueue = q
		redisPinger = q
		logger.Info("using redis rate limiter and task queue")
	} else {
		limiter = ratelimit.NewMemoryLimiter()
		taskQueue = memory.NewQueue(0)
		logger.Info("using in-memory rate limiter and task queue")
	}

	// ===== Extraction engines and registry =====
	// Optional engines (OCR, transcription, legacy-office rendering) start
	// detached; deployments attach them here when backends are available.
	engines := runtime.NewServices()
	defer engines.Close()

	registry := extractors.NewRegistry(engines.Engines())

	// ===== Conversion orchestrator =====
	convertService := services.NewConversionService(
		jobStore,
		taskQueue,
		limiter,
		registry,
		logger,
		services.WithMaxFileSize(cfg.MaxUploadBytes()),
		services.WithJobTimeout(time.Duration(cfg.Limits.JobTimeoutSec)*time.Second),
	)

	// ===== HTTP server =====
	var dbPinger httpserver.Pinger
	if db != nil {
		dbPinger = db
	}
	server := httpserver.NewServer(
		httpserver.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			Version:        version,
			MaxUploadBytes: cfg.MaxUploadBytes(),
			AllowedOrigins: cfg.Server.AllowedOrigins,
		},
		convertService,
		services.NewClassifier(),
		engines,
		keyStore,
		dbPinger,
		redisPinger,
		logger,
	)

	// ===== Worker pool =====
	w := worker.New(worker.Config{
		TaskQueue:      taskQueue,
		Convert:        convertService,
		Logger:         logger,
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
	})

	switch mode {
	case "api":
		runServer(ctx, server, logger)

	case "worker":
		runWorker(ctx, w, logger)

	case "all":
		if err := w.Start(ctx); err != nil {
			logger.Error("failed to start worker", "error", err)
			os.Exit(1)
		}
		runServer(ctx, server, logger)
		w.Stop()

	default:
		logger.Error("unknown mode", "mode", mode)
		os.Exit(1)
	}

	logger.Info("fileforge-core stopped")
}

// runServer blocks until the context is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, server *httpserver.Server, logger *slog.Logger) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}
}

// runWorker blocks until the context is cancelled.
func runWorker(ctx context.Context, w *worker.Worker, logger *slog.Logger) {
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	logger.Info("worker running")

	<-ctx.Done()
	logger.Info("shutdown signal received")
	w.Stop()
}

// keyPrefix returns the display prefix of a raw key.
func keyPrefix(raw string) string {
	if len(raw) <= 8 {
		return raw
	}
	return raw[:8]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
