package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rentdash/apps/api/internal/auth"
	"rentdash/apps/api/internal/cache"
	"rentdash/apps/api/internal/config"
	"rentdash/apps/api/internal/credstore"
	"rentdash/apps/api/internal/database"
	"rentdash/apps/api/internal/handlers"
	"rentdash/apps/api/internal/jobs"
	"rentdash/apps/api/internal/log"
	"rentdash/apps/api/internal/middleware"
	"rentdash/apps/api/internal/repository"
	"rentdash/apps/api/internal/security"
	"rentdash/apps/api/internal/server"
	"rentdash/apps/api/internal/service"
	"rentdash/apps/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.Open(ctx, cfg.Postgres, "rentdash-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, 5*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	adminRepo := repository.NewAdminRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	guestbookRepo := repository.NewGuestbookRepository(dbPool)

	store, purger := newCredentialStore(cfg, logger, userRepo, sessionRepo)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	adminCache := auth.NewAdminCache(adminRepo, cfg.Auth.AdminCacheTTL, auth.WithObserver(metrics.ObserveAdminCache))
	cookies := auth.CookiePolicy{
		Names: auth.CookieNames{
			AccessToken:   cfg.Cookies.AccessToken,
			RefreshToken:  cfg.Cookies.RefreshToken,
			AdminSession:  cfg.Cookies.AdminSession,
			SessionExpiry: cfg.Cookies.SessionExpiry,
		},
		Secure: cfg.Cookies.Secure,
	}
	resolver := auth.NewResolver(store, cookies, cfg.Auth.ExchangeTimeout)
	publisher := jobs.NewPublisher(redisClient, cfg.Queue.Stream)
	adminService := service.NewAdminService(adminRepo, adminCache, publisher, logger)

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Log:          logger,
		Config:       cfg,
		Store:        store,
		Cookies:      cookies,
		Admins:       adminRepo,
		AdminCache:   adminCache,
		AdminService: adminService,
		Guestbook:    guestbookRepo,
		Uploads:      objectStore,
		Health: []handlers.HealthCheck{
			{Name: "database", Ping: dbPool.Ping},
			{Name: "cache", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			{Name: "storage", Ping: objectStore.Ping},
		},
	})

	httpServer, err := server.NewHTTPServer(server.Options{
		Config:   cfg,
		Log:      logger,
		Handlers: handlerSet,
		Resolver: resolver,
		Admins:   adminCache,
		Metrics:  metrics,
		Gatherer: reg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build http server")
	}

	scheduler := jobs.NewScheduler(adminCache, purger, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

// newCredentialStore returns the configured store and, for the local one, the
// session table to purge.
func newCredentialStore(cfg *config.AppConfig, logger zerolog.Logger, users *repository.UserRepository, sessions *repository.SessionRepository) (credstore.Store, jobs.SessionPurger) {
	switch cfg.Auth.Provider {
	case "gotrue":
		logger.Info().Str("base_url", cfg.Auth.BaseURL).Msg("using gotrue credential store")
		client := &http.Client{Timeout: cfg.Auth.ExchangeTimeout}
		return credstore.NewGoTrue(cfg.Auth.BaseURL, cfg.Auth.AnonKey, credstore.WithHTTPClient(client)), nil
	default:
		logger.Info().Msg("using local credential store")
		hasher := security.NewPasswordHasher(security.DefaultArgon2Params)
		return credstore.NewLocal(users, sessions, hasher, credstore.LocalConfig{
			JWTSecret:   cfg.Auth.JWTSecret,
			AccessTTL:   cfg.Auth.AccessTTL,
			RefreshTTL:  cfg.Auth.RefreshTTL,
			MaxSessions: cfg.Auth.MaxSessions,
		}, logger), sessions
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
