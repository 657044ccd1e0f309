// Package main is the entry point for the blog API server.
//
// The main package stays minimal:
//  1. Read configuration from environment variables
//  2. Create the logger
//  3. Build the server and start it
//
// All actual logic lives in internal/.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sakif/blog-api/internal/server"
	"github.com/sakif/blog-api/internal/storage"
)

func main() {
	// === 1. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL=info is the sensible production setting.
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "debug"))); err != nil {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// === 2. READ CONFIGURATION ===
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The SQLite driver creates the file but not its directory.
	if cfg.DBDriver == server.DriverSQLite && cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads every setting from the environment.
//
// JWT_SECRET has no default: a server that signs sessions with a guessable
// key is worse than one that refuses to start. Generate one with
//
//	JWT_SECRET=$(openssl rand -hex 32)
func loadConfig() (server.Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return server.Config{}, fmt.Errorf("invalid PORT: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return server.Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	cookieSecure, err := getEnvBool("COOKIE_SECURE", false)
	if err != nil {
		return server.Config{}, err
	}
	minioSSL, err := getEnvBool("MINIO_USE_SSL", false)
	if err != nil {
		return server.Config{}, err
	}

	return server.Config{
		Port:          port,
		DBDriver:      getEnv("DB_DRIVER", server.DriverSQLite),
		DBPath:        getEnv("DB_PATH", "data/blog.db"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		JWTSecret:     jwtSecret,
		CookieSecure:  cookieSecure,
		UploadBackend: getEnv("UPLOAD_BACKEND", server.UploadDisk),
		UploadDir:     getEnv("UPLOAD_DIR", strings.TrimSuffix(storage.PublicPrefix, "/")),
		Minio: storage.MinioConfig{
			Endpoint:        getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     os.Getenv("MINIO_USER"),
			SecretAccessKey: os.Getenv("MINIO_PASSWORD"),
			UseSSL:          minioSSL,
			BucketName:      getEnv("MINIO_BUCKET", "covers"),
		},
		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}, nil
}

// getEnv returns the value of key, or fallback when it is unset or empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
