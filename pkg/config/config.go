package config

import (
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/flightledger/core/infrastructure/errors"
)

// BusBackend selects the event bus transport.
type BusBackend string

const (
	BusBackendMemory BusBackend = "memory"
	BusBackendRemote BusBackend = "remote"
)

// StorageBackend selects the repository transport.
type StorageBackend string

const (
	StorageBackendMemory StorageBackend = "memory"
	StorageBackendRemote StorageBackend = "remote"
)

// BusConfig controls event bus wiring.
type BusConfig struct {
	Backend   string `env:"FLIGHTLEDGER_BUS_BACKEND"`
	Bootstrap string `env:"FLIGHTLEDGER_BUS_BOOTSTRAP"`
	ClientID  string `env:"FLIGHTLEDGER_BUS_CLIENT_ID"`
}

// StorageConfig controls repository wiring.
type StorageConfig struct {
	Backend string `env:"FLIGHTLEDGER_STORAGE_BACKEND"`
	DSN     string `env:"FLIGHTLEDGER_STORAGE_DSN"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"`
	Format string `env:"LOG_FORMAT"`
}

// Config is the top-level configuration for the core engine.
type Config struct {
	Bus     BusConfig
	Storage StorageConfig
	Logging LoggingConfig
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Bus: BusConfig{
			Backend: string(BusBackendMemory),
		},
		Storage: StorageConfig{
			Backend: string(StorageBackendMemory),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a .env file if present, then environment variables, validating
// the bus and storage backend selections per the configuration contract.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()
	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the fatal-at-startup rules for backend selection.
func (c *Config) Validate() error {
	switch BusBackend(c.Bus.Backend) {
	case BusBackendMemory:
	case BusBackendRemote:
		if strings.TrimSpace(c.Bus.Bootstrap) == "" || strings.TrimSpace(c.Bus.ClientID) == "" {
			return errors.Config("remote bus backend requires FLIGHTLEDGER_BUS_BOOTSTRAP and FLIGHTLEDGER_BUS_CLIENT_ID")
		}
	default:
		return errors.Config(fmt.Sprintf("invalid FLIGHTLEDGER_BUS_BACKEND %q", c.Bus.Backend))
	}

	switch StorageBackend(c.Storage.Backend) {
	case StorageBackendMemory:
	case StorageBackendRemote:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.Config("remote storage backend requires FLIGHTLEDGER_STORAGE_DSN")
		}
	default:
		return errors.Config(fmt.Sprintf("invalid FLIGHTLEDGER_STORAGE_BACKEND %q", c.Storage.Backend))
	}
	return nil
}
