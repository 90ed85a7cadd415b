// Package main is the entry point of the lesson content hub server.
//
// The service follows Clean Architecture and DDD layering:
// - Domain: pure resolver, progress state machine, summary calculator
// - Application: ResolveLessonView query, RecordProgress and
//   NotifyContentChanged commands, the cache invalidation event handler
// - Infrastructure: pgx repositories, redis structure cache, in-memory bus
// - Interface: REST endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lessonhub/lesson-content-hub/config"
	"github.com/lessonhub/lesson-content-hub/internal/application/command"
	"github.com/lessonhub/lesson-content-hub/internal/application/eventhandler"
	"github.com/lessonhub/lesson-content-hub/internal/application/query"
	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
	"github.com/lessonhub/lesson-content-hub/internal/infrastructure/messaging"
	"github.com/lessonhub/lesson-content-hub/internal/infrastructure/persistence/postgres"
	"github.com/lessonhub/lesson-content-hub/internal/infrastructure/persistence/redis"
	"github.com/lessonhub/lesson-content-hub/internal/infrastructure/service"
	httpserver "github.com/lessonhub/lesson-content-hub/internal/interface/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting lesson content hub",
		slog.String("env", string(cfg.App.Environment)),
		slog.String("version", cfg.App.Version),
		slog.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	pgCfg := postgres.DefaultConfig()
	pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgCfg.MinConns = int32(cfg.Database.MinIdleConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.Migrate {
		log.Info("running database migrations...")
		if err := postgres.Migrate(ctx, dbConn); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional; reads degrade to the store without it)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var structureCache content.StructureCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}
		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisCache.Close()
		structureCache = redis.NewStructureCache(redisCache)
		log.Info("Redis connection established")
	} else {
		log.Warn("Redis disabled, structure caching off")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES AND SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	contentRepo := postgres.NewContentRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	structures := service.NewStructureService(contentRepo, structureCache, cfg.Cache.StructureTTL, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS AND CACHE INVALIDATOR
	// ─────────────────────────────────────────────────────────────────────────
	eventBus := messaging.NewInMemoryEventBus(log)
	defer eventBus.Close()

	if structureCache != nil {
		invalidator := eventhandler.NewOnContentChangedHandler(contentRepo, structureCache, log, eventhandler.Config{
			EvictionAttempts:   cfg.Cache.EvictionAttempts,
			EvictionRetryDelay: cfg.Cache.EvictionRetryDelay,
			EvictionTimeout:    cfg.Cache.EvictionTimeout,
		})
		if err := invalidator.Register(eventBus); err != nil {
			return fmt.Errorf("failed to register cache invalidator: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	lessonViewQuery := query.NewResolveLessonViewHandler(contentRepo, structures, progressRepo, log)
	recordProgressCmd := command.NewRecordProgressHandler(contentRepo, structures, progressRepo, eventBus, log)
	notifyChangedCmd := command.NewNotifyContentChangedHandler(eventBus, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.Server.Host
	httpConfig.Port = cfg.Server.Port
	httpConfig.ReadTimeout = cfg.Server.ReadTimeout
	httpConfig.WriteTimeout = cfg.Server.WriteTimeout
	httpConfig.IdleTimeout = cfg.Server.IdleTimeout
	httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled
	httpConfig.InternalAPIKeyHash = cfg.Server.InternalAPIKeyHash

	server := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		ResolveLessonViewHandler:    lessonViewQuery,
		RecordProgressHandler:       recordProgressCmd,
		NotifyContentChangedHandler: notifyChangedCmd,
		HealthChecker:               &healthChecker{db: dbConn, cache: redisCache},
		Logger:                      log,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
		close(errCh)
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("lesson content hub is running", slog.String("address", httpConfig.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("service error", slog.Any("error", err))
			return err
		}
	}

	log.Info("starting graceful shutdown...", slog.String("timeout", cfg.App.ShutdownTimeout.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", slog.Any("error", err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging per the observability config.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Observability.LogLevel)}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// healthChecker probes the backing services for the health endpoint.
type healthChecker struct {
	db    *postgres.Connection
	cache *redis.Cache
}

func (h *healthChecker) Check(ctx context.Context) httpserver.HealthStatus {
	status := httpserver.HealthStatus{Healthy: true, Checks: map[string]string{}}

	if err := h.db.Ping(ctx); err != nil {
		status.Healthy = false
		status.Checks["postgres"] = err.Error()
	} else {
		status.Checks["postgres"] = "ok"
	}

	if h.cache != nil {
		// A dead cache degrades reads but does not fail them.
		if err := h.cache.Ping(ctx); err != nil {
			status.Checks["redis"] = err.Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	return status
}
