/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings come from environment variables (optionally seeded from a .env file), covering the
running environment, port, CORS allowed origins, the room store backend, the optional Redis
relay, command limits and the operator secret of the monitoring endpoints.
*/
package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"planpoker/internal/app/storage"
)

// DevelopmentEnvironment is the default ENVIRONMENT value.
const DevelopmentEnvironment = "development"

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL"`

	// Security Settings
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	MonitorSecret  string   `env:"MONITOR_SECRET"`

	// Room Store Settings
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseDSN   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"planpoker.db"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"planpoker"`

	// Relay Settings; an empty address disables the relay.
	RedisAddr string `env:"REDIS_ADDR"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Command Settings
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" envDefault:"5s"`
	CommandRate    float64       `env:"COMMAND_RATE" envDefault:"10"`
	CommandBurst   int           `env:"COMMAND_BURST" envDefault:"20"`
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == DevelopmentEnvironment
}

// StoreConfig returns the room store settings.
func (c *AppConfig) StoreConfig() storage.ServiceConfig {
	return storage.ServiceConfig{
		Driver:        c.StoreDriver,
		DatabaseDSN:   c.DatabaseDSN,
		SQLitePath:    c.SQLitePath,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	}
}

// LoadConfig reads and parses the application configuration from environment variables.
// A .env file in the working directory is loaded first when present; real environment
// variables take precedence over it.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.AllowedOrigins = trimList(cfg.AllowedOrigins)
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	switch c.StoreDriver {
	case storage.DriverMemory:
	case storage.DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_URL environment variable is required for the postgres store")
		}
	case storage.DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH environment variable is required for the sqlite store")
		}
	case storage.DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE environment variables are required for the mongo store")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want memory, postgres, sqlite or mongo)", c.StoreDriver)
	}

	if c.RedisAddr != "" && c.StoreDriver == storage.DriverMemory {
		return errors.New("REDIS_ADDR requires a shared STORE_DRIVER; the memory store is local to one instance")
	}

	if c.CommandTimeout <= 0 {
		return fmt.Errorf("COMMAND_TIMEOUT must be positive, got %s", c.CommandTimeout)
	}
	if c.CommandRate <= 0 || c.CommandBurst <= 0 {
		return errors.New("COMMAND_RATE and COMMAND_BURST must be positive")
	}

	if !c.IsDevelopment() && c.MonitorSecret == "" {
		return fmt.Errorf("MONITOR_SECRET environment variable is required in %s environment for security", c.Environment)
	}
	return nil
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
