// Package server is the composition root: it opens storage, builds the
// services and handlers, and mounts them on one chi router.
//
//	config.Config → sqlstore.Store → IdentityService / CollectionService
//	                               → AuthHandler / UserHandler → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/momo-server/internal/auth"
	"github.com/sakif/momo-server/internal/config"
	"github.com/sakif/momo-server/internal/handler"
	"github.com/sakif/momo-server/internal/metrics"
	"github.com/sakif/momo-server/internal/middleware"
	"github.com/sakif/momo-server/internal/repository/sqlstore"
	"github.com/sakif/momo-server/internal/service"
)

// Server owns the router and every long-lived resource behind it.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    *sqlstore.Store
	limiter  *middleware.RateLimiter
	registry *prometheus.Registry
}

// New opens the database named by cfg and wires all routes.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := newWithStore(cfg, logger, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

func newWithStore(cfg *config.Config, logger *slog.Logger, store *sqlstore.Store) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: registry,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
// POST /auth/email/signup            → sign up, {jwtToken}
// POST /auth/email/signin            → sign in, {jwtToken}
// POST /auth/oauth/google            → exchange a client-obtained code
// GET  /auth/oauth/google/login      → browser redirect to Google
// GET  /auth/oauth/google/callback   → browser callback
// GET  /auth/jwt/validate            → profile of the bearer
// PUT  /user/self                    → merge meta (auth)
// GET  /user/{userId}                → public profile
// GET  /user/{userId}/collections    → list collection
// PUT  /user/{userId}/collections    → upsert collection (auth, owner)
// GET  /healthz, GET /metrics
//
// The Google routes are only mounted when a client id is configured.
func (s *Server) setupRoutes() error {
	rec := metrics.NewCollector(s.registry)

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.JWTTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(s.config.BcryptCost)

	identity := service.NewIdentityService(s.store, s.store, tokens, passwords, rec, s.logger)
	collections := service.NewCollectionService(s.store, s.store, rec, s.logger)

	var google handler.OAuthExchanger
	if s.config.GoogleEnabled() {
		google = auth.NewGoogleProvider(s.config.GoogleClientID, s.config.GoogleClientSecret)
	}
	authHandler := handler.NewAuthHandler(identity, google, s.config.GoogleRedirectURL, s.logger)
	userHandler := handler.NewUserHandler(identity, collections, s.logger)

	// Order matters: RealIP must run before anything keyed on RemoteAddr.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Observe(rec, s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	s.limiter = middleware.NewRateLimiter(middleware.PerMinute(s.config.AuthRatePerMin), "auth", rec, s.logger)
	requireAuth := auth.RequireAuth(identity)

	s.router.Route("/auth", func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Post("/email/signup", authHandler.HandleSignUp)
		r.Post("/email/signin", authHandler.HandleSignIn)
		r.Get("/jwt/validate", authHandler.HandleValidate)

		if google != nil {
			r.Post("/oauth/google", authHandler.HandleGoogleToken)
			r.Get("/oauth/google/login", authHandler.HandleGoogleLogin)
			r.Get("/oauth/google/callback", authHandler.HandleGoogleCallback)
		} else {
			s.logger.Warn("GOOGLE_CLIENT_ID not set, Google sign-in disabled")
		}
	})

	s.router.Route("/user", func(r chi.Router) {
		// Static segment first so "self" never reaches {userId}.
		r.With(requireAuth).Put("/self", userHandler.HandleUpdateSelf)

		r.Get("/{userId}", userHandler.HandleProfile)
		r.Get("/{userId}/collections", userHandler.HandleListCollections)
		r.With(requireAuth).Put("/{userId}/collections", userHandler.HandleUpsertCollections)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Close releases the database and stops background goroutines.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to ShutdownTimeout and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("dbDriver", s.config.DBDriver),
			slog.Bool("googleEnabled", s.config.GoogleEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
