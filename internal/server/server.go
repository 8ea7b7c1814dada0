package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/garuda-portal/apiserver/config"
	"github.com/garuda-portal/apiserver/internal/audit"
	"github.com/garuda-portal/apiserver/internal/db"
	"github.com/garuda-portal/apiserver/internal/handlers"
	"github.com/garuda-portal/apiserver/internal/mq"
	"github.com/garuda-portal/apiserver/internal/services"
	"github.com/garuda-portal/apiserver/internal/storage"
	"github.com/garuda-portal/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	userStore  services.UserStore
	bus        *mq.MQ
}

// New constructs a Server. It fails fast when the signing secret is
// absent or the credential store is unreachable.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	userStore, err := OpenUserStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}

	bus, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = userStore.Close(ctx)
		return nil, fmt.Errorf("connect mq: %w", err)
	}
	recorder := audit.NewRecorder(bus, cfg.MQ.AuditChannel)

	exportStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = userStore.Close(ctx)
		_ = bus.Close()
		return nil, fmt.Errorf("connect storage: %w", err)
	}
	if exportStorage != nil {
		if err := exportStorage.EnsureBucket(ctx); err != nil {
			_ = userStore.Close(ctx)
			_ = bus.Close()
			return nil, fmt.Errorf("ensure export bucket: %w", err)
		}
	}

	authService := services.NewAuthService(userStore, cfg.Auth, recorder)
	directoryService := services.NewDirectoryService(userStore, recorder)
	exportService := services.NewExportService(userStore, exportStorage, recorder)

	authHandler := handlers.NewAuthHandler(authService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, directoryService, exportService, authHandler.RequireAuth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		userStore:  userStore,
		bus:        bus,
	}, nil
}

// OpenUserStore builds the credential store backend named by config.
func OpenUserStore(ctx context.Context, cfg config.Config) (services.UserStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Backend)) {
	case "mongo":
		return store.NewMongoUserStore(ctx, cfg.Mongo)
	case "postgres":
		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresUserStore(dbConn), nil
	case "memory":
		return store.NewMemoryUserStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.userStore != nil {
		_ = s.userStore.Close(ctx)
	}
	if s.bus != nil {
		_ = s.bus.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
