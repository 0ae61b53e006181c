// Package config loads the server configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/pkg/logging"
)

var (
	ErrInvalidPort     = errors.New("invalid port number")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidStorage  = errors.New("invalid storage driver")
	ErrMissingSecret   = errors.New("jwt secret required")
	ErrMissingOwner    = errors.New("registry owner required")
	ErrInvalidRuntime  = errors.New("invalid runtime limits")
	ErrInvalidGenesis  = errors.New("invalid genesis allocation")
)

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config is the whole server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Registry RegistryConfig `yaml:"registry"`
	Auth     AuthConfig     `yaml:"auth"`

	// Genesis funds wallets when the registry is first deployed. Later
	// starts against the same store skip it.
	Genesis []Allocation `yaml:"genesis"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`

	// WaitTimeout bounds a waiting Submit.
	WaitTimeout     time.Duration `yaml:"wait_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type RuntimeConfig struct {
	GasLimit      uint64       `yaml:"gas_limit"`
	GasPrice      models.Coins `yaml:"gas_price"`
	MaxLiveActors int          `yaml:"max_live_actors"`
}

// RegistryConfig describes the registry deployed at startup. Zero fee and
// cap keep the registry's current values.
type RegistryConfig struct {
	Owner             models.Address `yaml:"owner"`
	RegistrationFee   models.Coins   `yaml:"registration_fee"`
	MaxGroupsPerAdmin uint32         `yaml:"max_groups_per_admin"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`

	// DevTokens mounts the AuthService, which signs a token for any address.
	DevTokens bool `yaml:"dev_tokens"`
}

type Allocation struct {
	Address models.Address `yaml:"address"`
	Amount  models.Coins   `yaml:"amount"`
}

// Default returns the configuration used for fields a file leaves out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "",
			Port:            8080,
			WaitTimeout:     10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
			Path:   "./data/groupledger.db",
		},
		Runtime: RuntimeConfig{
			GasLimit:      1_000_000,
			GasPrice:      10,
			MaxLiveActors: 1024,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
	}
}

// ListenAddr returns the host:port the server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogLevel, err)
	}
	if c.Log.Format != logging.FormatText && c.Log.Format != logging.FormatJSON {
		return fmt.Errorf("%w: format %q", ErrInvalidLogLevel, c.Log.Format)
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: sqlite needs a path", ErrInvalidStorage)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStorage, c.Storage.Driver)
	}
	if c.Runtime.GasLimit == 0 || c.Runtime.MaxLiveActors <= 0 {
		return fmt.Errorf("%w: gas_limit and max_live_actors must be positive", ErrInvalidRuntime)
	}
	if c.Registry.Owner.IsZero() {
		return ErrMissingOwner
	}
	if c.Auth.Secret == "" {
		return ErrMissingSecret
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: token_ttl must be positive", ErrMissingSecret)
	}
	for i, a := range c.Genesis {
		if a.Address.IsZero() || a.Amount == 0 {
			return fmt.Errorf("%w: entry %d", ErrInvalidGenesis, i)
		}
	}
	return nil
}
