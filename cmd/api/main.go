package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/taskdeck/internal/auth"
	"github.com/geocoder89/taskdeck/internal/cache"
	"github.com/geocoder89/taskdeck/internal/config"
	"github.com/geocoder89/taskdeck/internal/db"
	"github.com/geocoder89/taskdeck/internal/github"
	httpx "github.com/geocoder89/taskdeck/internal/http"
	"github.com/geocoder89/taskdeck/internal/http/handlers"
	"github.com/geocoder89/taskdeck/internal/observability"
	"github.com/geocoder89/taskdeck/internal/repo/mongo"
	"github.com/geocoder89/taskdeck/internal/repo/postgres"
	"github.com/geocoder89/taskdeck/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "taskdeck-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.OTELSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DBURL,
		MaxConns:        cfg.DBMaxConns,
		MaxConnIdleTime: cfg.DBMaxIdleTime,
	})
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	checks := []handlers.Pinger{{Name: "postgres", Ping: pool.Ping}}

	var users httpx.UserRepo
	switch cfg.CredentialStore {
	case config.CredentialStoreMongo:
		mc, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Error("mongo connect failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			dctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = mc.Disconnect(dctx)
		}()

		mongoUsers := mongo.NewUsersRepo(mc.Database(cfg.MongoDB), prom)
		if err := mongoUsers.EnsureIndexes(ctx); err != nil {
			log.Error("mongo index setup failed", "err", err)
			os.Exit(1)
		}
		users = mongoUsers
		checks = append(checks, handlers.Pinger{Name: "mongo", Ping: func(ctx context.Context) error {
			return mc.Ping(ctx, nil)
		}})
	default:
		users = postgres.NewUsersRepo(pool, prom)
	}

	if err := db.EnsureSeedUser(ctx, users, cfg); err != nil {
		log.Error("seed user failed", "err", err)
		os.Exit(1)
	}

	var listCache cache.Store
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		defer rc.Close()

		listCache = rc
		checks = append(checks, handlers.Pinger{Name: "redis", Ping: rc.Ping})
	} else {
		listCache = cache.New(cfg.CacheTTL)
	}

	var blob storage.Blob
	if cfg.Minio.Endpoint != "" {
		ms, err := storage.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			log.Error("minio setup failed", "err", err)
			os.Exit(1)
		}
		blob = ms
		checks = append(checks, handlers.Pinger{Name: "minio", Ping: ms.Ping})
	} else {
		log.Warn("MINIO_ENDPOINT not set, uploads are kept in memory")
		blob = storage.NewMemoryStore()
	}

	gh := github.NewClient(cfg.GitHub,
		github.WithHTTPClient(&http.Client{Timeout: cfg.GitHub.Timeout}),
		github.WithMetrics(prom),
	)
	if !cfg.GitHubConfigured() {
		log.Warn("github oauth is not configured")
	}

	router := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Users:    users,
		Tasks:    postgres.NewTasksRepo(pool, prom),
		Cache:    listCache,
		Blob:     blob,
		GitHub:   gh,
		JWT:      auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Prom:     prom,
		Gatherer: reg,
		Checks:   checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "credential_store", cfg.CredentialStore)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(sctx); err != nil {
			log.Warn("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
