package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-api/internal/server"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "main-test-secret-0123456789")
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_PATH", "UPLOAD_BACKEND", "UPLOAD_DIR", "COOKIE_SECURE", "MINIO_USE_SSL", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, server.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "data/blog.db", cfg.DBPath)
	assert.Equal(t, server.UploadDisk, cfg.UploadBackend)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.False(t, cfg.CookieSecure)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "main-test-secret-0123456789")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "postgres://blog@localhost/blog?sslmode=disable")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, server.DriverPostgres, cfg.DBDriver)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad port", map[string]string{"JWT_SECRET": "main-test-secret-0123456789", "PORT": "eighty"}},
		{"bad bool", map[string]string{"JWT_SECRET": "main-test-secret-0123456789", "COOKIE_SECURE": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", "")
			t.Setenv("COOKIE_SECURE", "")
			t.Setenv("MINIO_USE_SSL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig()
			assert.Error(t, err)
		})
	}
}
