// Command server runs the roll-call auditor: it reconciles the position
// registry and role bindings against the membership directory and serves the
// results over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"rollcall/internal/audit"
	audithandler "rollcall/internal/audit/handler"
	auditmetrics "rollcall/internal/audit/metrics"
	"rollcall/internal/binding"
	bindinghandler "rollcall/internal/binding/handler"
	"rollcall/internal/directory"
	"rollcall/internal/guildcache"
	httpapi "rollcall/internal/http"
	"rollcall/internal/info"
	infohandler "rollcall/internal/info/handler"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/httpserver"
	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/metrics"
	platformredis "rollcall/internal/platform/redis"
	"rollcall/internal/registry"
	"rollcall/internal/token"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	registryClient := registry.NewHTTPClient(cfg.RegistryBaseURL, cfg.RegistryToken)
	directoryClient := directory.NewHTTPClient(cfg.DirectoryBaseURL, cfg.DirectoryToken, cfg.HQSpaceID)

	healthChecks := map[string]func(ctx context.Context) error{}

	// Bindings live in Postgres when configured, in memory otherwise.
	var bindingStore binding.Store
	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if _, err := db.Exec(binding.Schema); err != nil {
			log.Error("apply binding schema", "error", err)
			os.Exit(1)
		}
		bindingStore = binding.NewPostgres(db)
		healthChecks["postgres"] = db.PingContext
		log.Info("binding store ready", "backend", "postgres")
	} else {
		bindingStore = binding.NewInMemory()
		log.Warn("binding store ready", "backend", "memory")
	}

	// Guild search snapshot: Redis-shared when configured, in-process
	// otherwise.
	var guildCache guildcache.Cache
	redisClient, err := platformredis.New(config.RedisFromEnv())
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		guildCache = guildcache.NewRedis(redisClient.Client, registryClient, cfg.GuildCacheTTL)
		healthChecks["redis"] = redisClient.Health
		log.Info("guild cache ready", "backend", "redis", "ttl", cfg.GuildCacheTTL)
	} else {
		guildCache = guildcache.NewMemory(registryClient, cfg.GuildCacheTTL)
		log.Info("guild cache ready", "backend", "memory", "ttl", cfg.GuildCacheTTL)
	}

	sharedMetrics := metrics.New(prometheus.DefaultRegisterer)
	engine := audit.NewEngine(registryClient, directoryClient, bindingStore,
		audit.WithLogger(log),
		audit.WithMetrics(auditmetrics.New(prometheus.DefaultRegisterer)),
		audit.WithFanout(cfg.AuditFanout),
	)
	bindingService := binding.NewService(bindingStore, registryClient,
		binding.WithLogger(log),
		binding.WithMetrics(sharedMetrics),
	)
	infoService := info.NewService(registryClient, directoryClient, guildCache, log)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Logger:         log,
		Metrics:        sharedMetrics,
		TokenValidator: token.NewJWTService(cfg.JWTSigningKey, "rollcall"),
		Audit:          audithandler.New(engine, log),
		Info:           infohandler.New(infoService, log),
		Bindings:       bindinghandler.New(bindingService, log),
		HealthChecks:   healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
