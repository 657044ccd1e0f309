// Package server is the composition root: it opens the store and the upload
// backend, builds services and handlers, and mounts them on a chi router.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go reads env → Config
//	New(cfg) creates:  store (sqlite|postgres) → PostService / AuthService → handlers
//	                   storage (disk|minio)    ↗
//
// Keeping this out of main.go lets tests build a full server against an
// in-memory SQLite database and a temp directory.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blog-api/internal/auth"
	"github.com/sakif/blog-api/internal/handler"
	"github.com/sakif/blog-api/internal/middleware"
	"github.com/sakif/blog-api/internal/repository"
	"github.com/sakif/blog-api/internal/repository/postgres"
	sqliteRepo "github.com/sakif/blog-api/internal/repository/sqlite"
	"github.com/sakif/blog-api/internal/service"
	"github.com/sakif/blog-api/internal/storage"
)

// Store and upload backends selectable through Config.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	UploadDisk  = "disk"
	UploadMinio = "minio"
)

// Config holds server configuration. main.go fills it from the environment.
type Config struct {
	Port int

	DBDriver    string // "sqlite" (default) or "postgres"
	DBPath      string // SQLite file, or ":memory:"
	DatabaseDSN string // Postgres connection string

	// JWTSecret signs every session token. It is read once here and never
	// changes while the process runs.
	JWTSecret    string
	CookieSecure bool

	UploadBackend string // "disk" (default) or "minio"
	UploadDir     string
	Minio         storage.MinioConfig

	AllowedOrigins []string

	// BcryptCost overrides the password hashing cost. Zero means the
	// production default; tests set bcrypt.MinCost.
	BcryptCost int
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). Start closes it after the
// HTTP server has drained, so no request runs against a closed pool.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     io.Closer
}

// stores is what openStore hands back: the two repository views plus the
// handle that closes them.
type stores struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	closer io.Closer
}

// New creates a Server: it connects to the store and the upload backend and
// wires every route. Any failure closes what was already opened.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("configuring tokens: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	files, err := openStorage(cfg, logger)
	if err != nil {
		st.closer.Close()
		return nil, fmt.Errorf("opening upload storage: %w", err)
	}

	passwords := auth.NewPasswordService()
	if cfg.BcryptCost > 0 {
		passwords = auth.NewPasswordServiceForTest(cfg.BcryptCost)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     st.closer,
	}

	s.setupRoutes(
		auth.NewGuard(tokens),
		service.NewAuthService(st.users, tokens, passwords, logger),
		service.NewPostService(st.posts, files, logger),
		files,
	)

	return s, nil
}

func openStore(cfg Config) (*stores, error) {
	switch cfg.DBDriver {
	case "", DriverSQLite:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return &stores{users: db.Users(), posts: db.Posts(), closer: db}, nil

	case DriverPostgres:
		if cfg.DatabaseDSN == "" {
			return nil, errors.New("DATABASE_DSN is required for the postgres driver")
		}
		db, err := postgres.New(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return &stores{users: db.Users(), posts: db.Posts(), closer: db}, nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func openStorage(cfg Config, logger *slog.Logger) (storage.FileStorage, error) {
	switch cfg.UploadBackend {
	case "", UploadDisk:
		return storage.NewDisk(cfg.UploadDir, logger)

	case UploadMinio:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewMinio(ctx, cfg.Minio, logger)

	default:
		return nil, fmt.Errorf("unknown UPLOAD_BACKEND %q", cfg.UploadBackend)
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /health          → liveness probe
//	POST   /register        → create account
//	POST   /login           → set session cookie
//	GET    /profile         → identity from the cookie        [RequireAuth]
//	POST   /logout          → clear session cookie
//	GET    /post            → recent posts
//	GET    /post/{id}       → one post
//	POST   /post            → create post (multipart)          [RequireAuth]
//	PUT    /post/{id}       → update post (multipart)          [OptionalAuth]
//	DELETE /post/{id}       → delete post                      [OptionalAuth]
//	GET    /uploads/{name}  → stored cover
//
// PUT and DELETE use OptionalAuth so that an unknown post answers 404
// before the missing session answers 401; the service makes the call.
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first so every later log line can carry it, Recoverer before the
// handlers so a panic becomes a 500, CORS before routing so preflight
// requests never reach a handler.
func (s *Server) setupRoutes(guard *auth.Guard, accounts *service.AuthService, posts *service.PostService, files storage.FileStorage) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.AllowedOrigins))

	authHandler := handler.NewAuthHandler(accounts, s.config.CookieSecure, s.logger)
	postHandler := handler.NewPostHandler(posts, s.logger)
	uploadHandler := handler.NewUploadHandler(files, s.logger)

	s.router.Get("/health", handler.HandleHealth)

	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Post("/logout", authHandler.HandleLogout)
	s.router.With(auth.RequireAuth(guard)).Get("/profile", authHandler.HandleProfile)

	s.router.Route("/post", func(r chi.Router) {
		r.Get("/", postHandler.HandleList)
		r.Get("/{id}", postHandler.HandleGet)
		r.With(auth.RequireAuth(guard)).Post("/", postHandler.HandleCreate)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(guard))
			r.Put("/{id}", postHandler.HandleUpdate)
			r.Delete("/{id}", postHandler.HandleDelete)
		})
	})

	s.router.Get("/uploads/{name}", uploadHandler.HandleServe)
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Close the database
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads of up to 10 MiB need more than the default read budget on
		// slow links.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("db", s.config.DBDriver),
			slog.String("uploads", s.config.UploadBackend),
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
