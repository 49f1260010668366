// Package config provides configuration management for sso-session.
//
// Configuration is loaded with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (SSO_*)
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Network.RPCURL)
package config

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/logger"
)

// Config represents the complete application configuration.
type Config struct {
	Network   NetworkConfig   `yaml:"network"`
	Contracts ContractsConfig `yaml:"contracts"`
	Client    ClientConfig    `yaml:"client"`
	Storage   StorageConfig   `yaml:"storage"`
	Watch     WatchConfig     `yaml:"watch"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Display   DisplayConfig   `yaml:"display"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   logger.Config   `yaml:"logging"`
}

// NetworkConfig selects the node.
type NetworkConfig struct {
	RPCURL string `yaml:"rpc_url"`

	// ChainID is checked against the node when non-zero.
	ChainID uint64 `yaml:"chain_id"`

	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ContractsConfig holds deployed module addresses as hex strings. Empty
// means not deployed on this network.
type ContractsConfig struct {
	SessionValidator  string `yaml:"session_validator"`
	WebAuthnValidator string `yaml:"webauthn_validator"`
	AccountFactory    string `yaml:"account_factory"`
}

// ClientConfig tunes transaction submission.
type ClientConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	ReceiptTimeout time.Duration `yaml:"receipt_timeout"`
}

// StorageConfig selects the session registry backend.
type StorageConfig struct {
	// Backend is bolt or redis.
	Backend string `yaml:"backend"`

	// DBPath is the BoltDB file.
	DBPath string `yaml:"db_path"`

	// Timeout is the BoltDB file lock timeout.
	Timeout time.Duration `yaml:"timeout"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// WatchConfig configures the session config directory watcher.
type WatchConfig struct {
	Dir                     string        `yaml:"dir"`
	Debounce                time.Duration `yaml:"debounce"`
	CircuitBreakerThreshold int           `yaml:"circuit_breaker_threshold"`
}

// MonitorConfig configures on-chain session state polling.
type MonitorConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Format is auto, table, json or simple. auto picks table on a
	// terminal and json otherwise.
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Listen
// disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// SessionValidatorAddress returns the configured session validator.
func (c *Config) SessionValidatorAddress() common.Address {
	return common.HexToAddress(c.Contracts.SessionValidator)
}

// WebAuthnValidatorAddress returns the configured passkey validator.
func (c *Config) WebAuthnValidatorAddress() common.Address {
	return common.HexToAddress(c.Contracts.WebAuthnValidator)
}

// AccountFactoryAddress returns the configured account factory.
func (c *Config) AccountFactoryAddress() common.Address {
	return common.HexToAddress(c.Contracts.AccountFactory)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Network.RPCURL) == "" {
		return ErrMissingRPCURL
	}
	if c.Network.DialTimeout <= 0 {
		return ErrInvalidDialTimeout
	}

	for _, addr := range []string{
		c.Contracts.SessionValidator,
		c.Contracts.WebAuthnValidator,
		c.Contracts.AccountFactory,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return ErrInvalidAddress
		}
	}

	if c.Client.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.Client.ReceiptTimeout < 0 {
		return ErrInvalidReceiptTimeout
	}

	switch c.Storage.Backend {
	case "bolt":
		if c.Storage.DBPath == "" {
			return ErrMissingDBPath
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrInvalidBackend
	}

	if c.Watch.Debounce <= 0 {
		return ErrInvalidDebounce
	}
	if c.Watch.CircuitBreakerThreshold <= 0 {
		return ErrInvalidCircuitBreaker
	}
	if c.Monitor.RefreshInterval <= 0 {
		return ErrInvalidRefreshInterval
	}

	switch c.Display.Format {
	case "auto", "table", "json", "simple":
	default:
		return ErrInvalidDisplayFormat
	}

	if !logger.ValidLevel(c.Logging.Level) {
		return ErrInvalidLogLevel
	}
	if !logger.ValidFormat(c.Logging.Format) {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration for a local era test node.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			RPCURL:      "http://localhost:8011",
			DialTimeout: 10 * time.Second,
		},
		Client: ClientConfig{
			PollInterval:   time.Second,
			ReceiptTimeout: 2 * time.Minute,
		},
		Storage: StorageConfig{
			Backend: "bolt",
			DBPath:  defaultDBPath(),
			Timeout: time.Second,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "sso:",
			},
		},
		Watch: WatchConfig{
			Dir:                     defaultWatchDir(),
			Debounce:                100 * time.Millisecond,
			CircuitBreakerThreshold: 5,
		},
		Monitor: MonitorConfig{
			RefreshInterval: 5 * time.Second,
		},
		Display: DisplayConfig{
			Format: "auto",
		},
		Logging: logger.Config{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
