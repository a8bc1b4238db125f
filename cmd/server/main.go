package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/cache"
	engineconfig "github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/handler"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/metrics"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/ports"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/service"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/store/memory"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/store/postgres"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/platform/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/platform/httpserver"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/platform/logger"
	platformredis "github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/platform/redis"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg, err := engineconfig.Load(cfg.EngineConfigPath)
	if err != nil {
		log.Error("failed to load engine config", "path", cfg.EngineConfigPath, "error", err)
		os.Exit(1)
	}

	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build record store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
	}
	if snapCache := buildCache(cfg, log); snapCache != nil {
		opts = append(opts, service.WithCache(snapCache))
	}

	svc, err := service.New(store, engineCfg, opts...)
	if err != nil {
		log.Error("failed to build dashboard service", "error", err)
		os.Exit(1)
	}

	// A failed initial refresh is survivable; the service reports upstream
	// unavailability until a later refresh succeeds.
	refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if source, err := svc.Refresh(refreshCtx); err != nil {
		log.Warn("initial snapshot refresh failed", "error", err)
	} else if source == models.RefreshSourceCache {
		log.Warn("initial snapshot served from cache, record store unreachable")
	}
	cancel()

	if cfg.RefreshInterval > 0 {
		go refreshLoop(ctx, svc, cfg.RefreshInterval, log)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.New(svc, log, engineCfg).Register(router)

	timeouts := httpserver.DefaultTimeouts()
	timeouts.Read = cfg.ReadTimeout
	timeouts.Write = cfg.WriteTimeout
	srv := httpserver.New(cfg.Addr, router, timeouts)

	log.Info("starting dashboard server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// buildStore prefers postgres and falls back to the in-memory store when no
// database is configured, which keeps local development zero-dependency.
func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger) (ports.RecordStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory record store")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	store, err := postgres.New(pool, log)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func buildCache(cfg config.Server, log *slog.Logger) ports.SnapshotCache {
	client, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, snapshot cache disabled", "error", err)
		return nil
	}
	if client == nil {
		return nil
	}
	return cache.NewRedis(client.Client, cfg.SnapshotTTL)
}

func refreshLoop(ctx context.Context, svc *service.Service, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if source, err := svc.Refresh(refreshCtx); err != nil {
				log.Warn("scheduled snapshot refresh failed", "error", err)
			} else if source == models.RefreshSourceCache {
				log.Warn("scheduled refresh served from cache, record store unreachable")
			}
			cancel()
		}
	}
}
