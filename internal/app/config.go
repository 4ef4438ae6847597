package app

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/hkdf"
)

// Config holds runtime configuration for the portal.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://localhost:8000/api/v1"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"20s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	StoreIdleTTL  time.Duration `envconfig:"STORE_IDLE_TTL" default:"30m"`

	CSRFSecret string `envconfig:"CSRF_SECRET"`

	RateLimitPerMinute int   `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	ResumeMaxBytes     int64 `envconfig:"RESUME_MAX_BYTES" default:"10485760"`
}

// LoadConfig reads configuration from environment variables, after loading
// a .env file from the working directory when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.ResumeMaxBytes <= 0 {
		return nil, errors.New("resume max bytes must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// CSRFKey returns CSRF_SECRET when set, otherwise a key derived from the
// session secret with HKDF-SHA256.
func (c *Config) CSRFKey() ([]byte, error) {
	if c.CSRFSecret != "" {
		return []byte(c.CSRFSecret), nil
	}
	key := make([]byte, 32)
	reader := hkdf.New(sha256.New, []byte(c.SessionSecret), nil, []byte("careers-portal csrf"))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}
	return key, nil
}

// MaxRequestBytes bounds POST bodies: the largest résumé plus form overhead.
func (c *Config) MaxRequestBytes() int64 {
	return c.ResumeMaxBytes + 1<<20
}
