package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"go-newsletter-sse/internal/infrastructure/logger"
)

// DefaultFrontendOrigins are allowed when FRONTEND_URL is unset.
var DefaultFrontendOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:5175",
}

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"console"`
	LogOutput   string `env:"LOG_OUTPUT" default:"stdout"`
	LogFilePath string `env:"LOG_FILE_PATH"`

	// Comma-separated list of origins allowed to open the stream.
	FrontendURLs []string `env:"FRONTEND_URL"`

	HeartbeatInterval time.Duration `env:"SSE_HEARTBEAT_INTERVAL" default:"30s"`
	StaleThreshold    time.Duration `env:"SSE_STALE_THRESHOLD" default:"90s"`
	ReapInterval      time.Duration `env:"SSE_REAP_INTERVAL" default:"60s"`
	WriteTimeout      time.Duration `env:"SSE_WRITE_TIMEOUT" default:"10s"`
	FanoutConcurrency int           `env:"SSE_FANOUT_CONCURRENCY" default:"32"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.FrontendURLs = normalizeOrigins(cfg.FrontendURLs)
	if len(cfg.FrontendURLs) == 0 {
		cfg.FrontendURLs = append([]string(nil), DefaultFrontendOrigins...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the timing relationships the hub depends on.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	durations := map[string]time.Duration{
		"SSE_HEARTBEAT_INTERVAL": c.HeartbeatInterval,
		"SSE_STALE_THRESHOLD":    c.StaleThreshold,
		"SSE_REAP_INTERVAL":      c.ReapInterval,
		"SHUTDOWN_TIMEOUT":       c.ShutdownTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("SSE_WRITE_TIMEOUT must not be negative, got %s", c.WriteTimeout))
	}
	if c.FanoutConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("SSE_FANOUT_CONCURRENCY must be positive, got %d", c.FanoutConcurrency))
	}

	// A connection waiting for its next ping must never look stale.
	if c.HeartbeatInterval > 0 && c.StaleThreshold < 2*c.HeartbeatInterval {
		errs = append(errs, fmt.Errorf(
			"SSE_STALE_THRESHOLD (%s) must be at least twice SSE_HEARTBEAT_INTERVAL (%s)",
			c.StaleThreshold, c.HeartbeatInterval,
		))
	}
	if c.ReapInterval > 0 && c.ReapInterval <= c.HeartbeatInterval {
		errs = append(errs, fmt.Errorf(
			"SSE_REAP_INTERVAL (%s) must be longer than SSE_HEARTBEAT_INTERVAL (%s)",
			c.ReapInterval, c.HeartbeatInterval,
		))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether APP_ENV is "development".
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Logger builds the logger configuration from the LOG_* variables.
func (c *Config) Logger() *logger.Config {
	lc := logger.NewDefaultConfig()
	if level, err := logger.ParseLevel(c.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = c.LogFormat
	lc.Output = c.LogOutput
	lc.FilePath = c.LogFilePath
	return lc
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
