package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	BackendURL     string        `envconfig:"BACKEND_URL"        default:"http://localhost:8000"`
	PagePath       string        `envconfig:"PAGE_PATH"          default:"/orders/add-order/"`
	SessionID      string        `envconfig:"BACKEND_SESSION_ID"`
	CSRFCookieName string        `envconfig:"CSRF_COOKIE_NAME"   default:"csrftoken"`
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT"       default:"10s"`
	HTTPPort       string        `envconfig:"HTTP_PORT"          default:":8090"`
	GrpcPort       string        `envconfig:"GRPC_PORT"          default:":50061"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	LogLevel       string        `envconfig:"LOG_LEVEL"          default:"info"`
	CORSOrigins    []string      `envconfig:"CORS_ORIGINS"`
	SessionIdleTTL time.Duration `envconfig:"SESSION_IDLE_TTL"   default:"30m"`
	MaxSessions    int           `envconfig:"MAX_SESSIONS"       default:"1000"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig(logger *logrus.Logger) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		logger.Warnf("Error loading .env file (but continuing): %v", err)
	} else if err == nil {
		logger.Info("Loaded configuration from .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration from environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Infof("Configuration loaded: Backend=%s, Page=%s, HTTP Port=%s, GRPC Port=%s, LogLevel=%s",
		cfg.BackendURL, cfg.PagePath, cfg.HTTPPort, cfg.GrpcPort, cfg.LogLevel)
	if cfg.DatabaseURL != "" {
		logger.Info("Configuration loaded: DatabaseURL is set, submission journal enabled")
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("configuration error: BACKEND_URL cannot be empty")
	}
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("configuration error: HTTP_TIMEOUT must be positive")
	}
	if c.CSRFCookieName == "" {
		return fmt.Errorf("configuration error: CSRF_COOKIE_NAME cannot be empty")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("configuration error: SESSION_IDLE_TTL must be positive")
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("configuration error: MAX_SESSIONS must be at least 1")
	}
	return nil
}
