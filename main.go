package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/barkbox/walkmarket/config"
	"github.com/barkbox/walkmarket/core"
	"github.com/barkbox/walkmarket/logger"
	"github.com/barkbox/walkmarket/observability"
	"github.com/barkbox/walkmarket/redisclient"
	"github.com/barkbox/walkmarket/router"
	"github.com/barkbox/walkmarket/storage/sqlite"
	"github.com/barkbox/walkmarket/store"
	"github.com/barkbox/walkmarket/tenant"
	"github.com/barkbox/walkmarket/travelcache"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("walkmarket availability service starting")

	rc, err := redisclient.New(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis init failed — continuing without a travel-time cache mirror")
		rc = nil
	} else if err := redisclient.Ping(rc); err != nil {
		log.Warn().Err(err).Msg("redis ping failed — continuing without a travel-time cache mirror")
		rc = nil
	} else {
		log.Info().Msg("redis connected")
	}

	sqliteDir := filepath.Dir(cfg.SQLitePath)
	if sqliteDir == "." {
		sqliteDir = "data"
	}
	if err := os.MkdirAll(sqliteDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create storage directory")
	}

	pool := tenant.NewPoolCache(func(orgID uuid.UUID) (store.Store, error) {
		path := filepath.Join(sqliteDir, orgID.String()+".db")
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	})

	travelCache := travelcache.New(travelcache.DefaultConfig(), rc)
	metrics := observability.NewMetrics(log)
	traceExporter := observability.NewLogExporter(log)
	tracer := observability.NewTracer(log, traceExporter, 1.0)

	registryCfg := core.DefaultConfig()
	registryCfg.AvailabilityCfg.SlotIntervalMinutes = cfg.SlotIntervalMinutes
	registryCfg.AvailabilityCfg.MinBufferMinutes = cfg.MinBufferMinutes
	registryCfg.AvailabilityCfg.DefaultTravelMinutes = cfg.DefaultTravelMinutes
	registryCfg.MinNoticeHours = cfg.MinNoticeHours
	registryCfg.MaxAdvanceDays = cfg.MaxAdvanceDays
	registryCfg.DefaultTimeZone = cfg.DefaultPlannerTZ

	registry := core.NewRegistry(pool, travelCache, metrics, log, registryCfg)

	r := router.NewRouter(cfg, log, registry, metrics, tracer)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("walkmarket availability service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	tracer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("walkmarket availability service stopped gracefully")
	}
}
