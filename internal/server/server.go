// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "composition root": New opens the database, builds
// every service and handler, and mounts them on one chi router. main.go
// stays minimal: load config, build a logger, call New and Start.
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
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/locali/internal/auth"
	"github.com/sakif/locali/internal/config"
	"github.com/sakif/locali/internal/handler"
	"github.com/sakif/locali/internal/middleware"
	"github.com/sakif/locali/internal/places"
	sqliteRepo "github.com/sakif/locali/internal/repository/sqlite"
	"github.com/sakif/locali/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns (or by Close, for servers that never start).
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New wires the whole dependency graph:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Services receive repository interfaces (implemented by *sqlite.DB);
// handlers receive services. Nothing below the handler knows about HTTP.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET    /metrics                          Prometheus scrape endpoint
//	GET    /api/health
//	POST   /api/auth/register | /api/auth/login
//	GET    /api/countries, /api/countries/{id}/cities
//	GET    /api/cities/search?q=, /api/cities/lookup/{placeId}, /api/cities/{id}
//	GET    /api/places/{placeId}
//	GET    /api/lists, /api/lists/{id}
//	-- bearer token required below --
//	GET    /api/users, /api/users/me, /api/users/me/liked-lists
//	GET|POST|PUT /api/users/me/locations, DELETE /api/users/me/locations/{cityId}
//	POST   /api/lists, POST|DELETE /api/lists/{id}/like
//
// MIDDLEWARE ORDER MATTERS: RequestID runs first so the logger can print it;
// Recoverer sits inside the logger so a panic is still logged as a 500.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	placesClient := places.NewClient(s.config.PlacesAPIKey, s.config.PlacesBaseURL, nil, s.logger)

	geoService := service.NewGeoService(s.db, s.db, s.logger)
	authService := service.NewAuthService(s.db, s.db, tokens, passwords, s.config.AvatarBaseURL, s.logger)
	locationService := service.NewLocationService(s.db, s.db, s.db, geoService, s.logger)
	listService := service.NewListService(s.db, s.db, s.db, geoService, s.logger)
	placeService := service.NewPlaceService(s.db, s.db, placesClient, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	locationHandler := handler.NewLocationHandler(locationService, s.logger)
	listHandler := handler.NewListHandler(listService, s.logger)
	geoHandler := handler.NewGeoHandler(geoService, placeService, s.logger)
	placeHandler := handler.NewPlaceHandler(placeService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, placesClient.Enabled(), s.logger)

	registry := prometheus.NewRegistry()
	metrics := middleware.NewMetrics()
	for _, c := range []prometheus.Collector{
		metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
	}

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.RequestIDHeader)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Instrument)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)

		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Get("/countries", geoHandler.HandleCountries)
		r.Get("/countries/{id}/cities", geoHandler.HandleCountryCities)
		r.Get("/cities/search", geoHandler.HandleSearch)
		r.Get("/cities/lookup/{placeId}", geoHandler.HandleLookup)
		r.Get("/cities/{id}", geoHandler.HandleCity)

		r.Get("/places/{placeId}", placeHandler.HandleDetails)

		r.Get("/lists", listHandler.HandleBrowse)
		r.With(auth.OptionalAuth(tokens)).Get("/lists/{id}", listHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/users", authHandler.HandleListUsers)
			r.Get("/users/me", authHandler.HandleMe)
			r.Get("/users/me/liked-lists", listHandler.HandleLikedLists)

			r.Get("/users/me/locations", locationHandler.HandleList)
			r.Post("/users/me/locations", locationHandler.HandleAdd)
			r.Put("/users/me/locations", locationHandler.HandleReplace)
			r.Delete("/users/me/locations/{cityId}", locationHandler.HandleRemove)

			r.Post("/lists", listHandler.HandleCreate)
			r.Post("/lists/{id}/like", listHandler.HandleLike)
			r.Delete("/lists/{id}/like", listHandler.HandleUnlike)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // place details may wait on the provider
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
