package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/mural/internal/auth"
	"github.com/geocoder89/mural/internal/cache"
	"github.com/geocoder89/mural/internal/config"
	"github.com/geocoder89/mural/internal/db"
	httpx "github.com/geocoder89/mural/internal/http"
	"github.com/geocoder89/mural/internal/http/handlers"
	"github.com/geocoder89/mural/internal/observability"
	"github.com/geocoder89/mural/internal/redisclient"
	"github.com/geocoder89/mural/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	startCtx, cancelStart := config.WithTimeout(30 * time.Second)
	defer cancelStart()

	// tracing is opt-in
	shutdownTracer := func(context.Context) error { return nil }
	if cfg.OTelEndpoint != "" {
		shutdown, err := observability.InitTracer(startCtx, observability.TracerConfig{
			ServiceName: cfg.ServiceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
			SampleRatio: cfg.OTelSampleRatio,
			Insecure:    cfg.OTelInsecure,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		shutdownTracer = shutdown
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	st, err := openStores(startCtx, cfg, prom)
	if err != nil {
		log.Error("store init failed", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer st.close()

	if err := db.EnsureDepartments(startCtx, st.departments, cfg.SeedDepartments); err != nil {
		log.Error("department seeding failed", "err", err)
		os.Exit(1)
	}

	checks := map[string]handlers.PingFunc{"db": st.ping}

	var listCache cache.ListCache
	if cfg.RedisAddr != "" {
		rc, err := redisclient.Connect(startCtx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = rc.Close() }()

		listCache = cache.NewRedisListCache(rc.Raw(), cfg.CacheTTL())
		checks["cache"] = rc.Ping
	} else if cfg.CacheTTLSeconds > 0 {
		listCache = cache.NewMemoryListCache(cfg.CacheTTL())
	}

	var shuttingDown atomic.Bool

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Cfg:           cfg,
		Log:           log,
		Prom:          prom,
		Users:         st.users,
		Departments:   st.departments,
		Announcements: st.announcements,
		Hasher:        security.NewHasher(bcrypt.DefaultCost),
		Tokens:        auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
		ListCache:     listCache,
		Checks:        checks,
		ShuttingDown:  shuttingDown.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "driver", cfg.DBDriver, "redis", cfg.RedisAddr != "")
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	shuttingDown.Store(true)

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
