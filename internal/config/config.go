// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the full server configuration. Every field has an environment
// binding; unset optional collaborators disable the matching feature.
type Config struct {
	Server struct {
		Addr            string        `env:"SERVER_ADDR,default=:8080"`
		ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=10s"`
		WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=120s"`
		ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=15s"`
	}

	Supabase struct {
		URL    string `env:"SUPABASE_URL"`
		APIKey string `env:"SUPABASE_ANON_KEY"`
	}

	Vision struct {
		BaseURL string `env:"OPENROUTER_BASE_URL,default=https://openrouter.ai/api/v1"`
		APIKey  string `env:"OPENROUTER_API_KEY"`
		Model   string `env:"OPENROUTER_MODEL"`
	}

	Session struct {
		Dir string `env:"SESSION_DIR,default=./data"`
	}

	Catalog struct {
		Path string `env:"CATALOG_PATH"`
	}

	CORS struct {
		AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	}

	RateLimit struct {
		RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=20"`
		Burst             int `env:"RATE_LIMIT_BURST,default=40"`
	}
}

// Load reads .env when present, then decodes the environment. A missing .env
// file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// SupabaseConfigured reports whether a remote row store is set up.
func (c Config) SupabaseConfigured() bool {
	return c.Supabase.URL != "" && c.Supabase.APIKey != ""
}

// VisionConfigured reports whether the model collaborator is set up.
func (c Config) VisionConfigured() bool {
	return c.Vision.APIKey != ""
}

// AllowedOrigins splits the CORS origin list.
func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORS.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
