package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"rentdash/apps/api/internal/auth"
	"rentdash/apps/api/internal/config"
	"rentdash/apps/api/internal/handlers"
	"rentdash/apps/api/internal/middleware"
)

type Options struct {
	Config   *config.AppConfig
	Log      zerolog.Logger
	Handlers handlers.HandlerSet
	Resolver *auth.Resolver
	Admins   *auth.AdminCache
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer
}

type HTTPServer struct {
	engine  *gin.Engine
	server  *http.Server
	metrics *http.Server
	log     zerolog.Logger
	cfg     *config.AppConfig
}

func NewHTTPServer(opts Options) (*HTTPServer, error) {
	cfg := opts.Config
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	pages, err := auth.NewClassifier(routeSets(cfg.Routes.Pages))
	if err != nil {
		return nil, fmt.Errorf("page routes: %w", err)
	}
	api, err := auth.NewClassifier(routeSets(cfg.Routes.API))
	if err != nil {
		return nil, fmt.Errorf("api routes: %w", err)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = true
	engine.RedirectFixedPath = true

	engine.Use(
		middleware.RequestID(opts.Log),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(cfg.AllowCORSOrigins),
	)
	if opts.Metrics != nil {
		engine.Use(opts.Metrics.HTTP())
	}

	// Pages redirect, the API answers 401. A path in neither family passes
	// both untouched.
	engine.Use(
		middleware.Authorize(middleware.AuthorizeConfig{
			Name:     "pages",
			Routes:   pages,
			Mode:     middleware.RedirectOnFailure,
			Resolver: opts.Resolver,
			Admins:   opts.Admins,
			Log:      opts.Log,
			Metrics:  opts.Metrics,
		}),
		middleware.Authorize(middleware.AuthorizeConfig{
			Name:     "api",
			Routes:   api,
			Mode:     middleware.JSONOnFailure,
			Resolver: opts.Resolver,
			Admins:   opts.Admins,
			Log:      opts.Log,
			Metrics:  opts.Metrics,
		}),
	)

	opts.Handlers.Register(engine)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	s := &HTTPServer{
		engine: engine,
		server: srv,
		log:    opts.Log,
		cfg:    cfg,
	}
	// Metrics are only served on the internal listener.
	if opts.Gatherer != nil && cfg.HTTP.MetricsAddr != "" {
		s.metrics = &http.Server{
			Addr:              cfg.HTTP.MetricsAddr,
			Handler:           metricsHandler(opts.Gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s, nil
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

func routeSets(rc config.RouteSetConfig) auth.RouteSets {
	return auth.RouteSets{
		AuthPassthrough:         rc.AuthPassthrough,
		Protected:               rc.Protected,
		RedirectIfAuthenticated: rc.RedirectIfAuthenticated,
		Admin:                   rc.Admin,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) Start() error {
	s.log.Info().
		Str("addr", s.server.Addr).
		Msg("http server starting")

	if s.metrics != nil {
		go func() {
			s.log.Info().Str("addr", s.metrics.Addr).Msg("metrics listener starting")
			if err := s.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			s.log.Warn().Err(err).Msg("metrics listener shutdown failed")
		}
	}
	return s.server.Shutdown(ctx)
}
