package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load merges defaults, the config file and SSO_* environment
	// variables, then validates the result.
	Load() (*Config, error)

	// LoadFromFile reads a single file without defaults or validation.
	LoadFromFile(path string) (*Config, error)
}

type loader struct {
	configPath string
}

// NewLoader creates a configuration loader. If configPath is empty, Load
// looks for ./sso-session.yaml and then DefaultPath(); a missing file is
// not an error in that case.
func NewLoader(configPath string) Loader {
	return &loader{configPath: configPath}
}

func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.configPath
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = mergeConfigs(cfg, fileCfg)
		}
	}

	cfg, err := applyEnvVars(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

func (l *loader) findConfigFile() string {
	for _, path := range []string{"./sso-session.yaml", DefaultPath()} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// mergeConfigs overlays the non-zero fields of override onto base.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	setString(&result.Network.RPCURL, override.Network.RPCURL)
	if override.Network.ChainID != 0 {
		result.Network.ChainID = override.Network.ChainID
	}
	setDuration(&result.Network.DialTimeout, override.Network.DialTimeout)

	setString(&result.Contracts.SessionValidator, override.Contracts.SessionValidator)
	setString(&result.Contracts.WebAuthnValidator, override.Contracts.WebAuthnValidator)
	setString(&result.Contracts.AccountFactory, override.Contracts.AccountFactory)

	setDuration(&result.Client.PollInterval, override.Client.PollInterval)
	setDuration(&result.Client.ReceiptTimeout, override.Client.ReceiptTimeout)

	setString(&result.Storage.Backend, override.Storage.Backend)
	setString(&result.Storage.DBPath, override.Storage.DBPath)
	setDuration(&result.Storage.Timeout, override.Storage.Timeout)
	setString(&result.Storage.Redis.Addr, override.Storage.Redis.Addr)
	setString(&result.Storage.Redis.Password, override.Storage.Redis.Password)
	setString(&result.Storage.Redis.Prefix, override.Storage.Redis.Prefix)
	if override.Storage.Redis.DB != 0 {
		result.Storage.Redis.DB = override.Storage.Redis.DB
	}

	setString(&result.Watch.Dir, override.Watch.Dir)
	setDuration(&result.Watch.Debounce, override.Watch.Debounce)
	if override.Watch.CircuitBreakerThreshold != 0 {
		result.Watch.CircuitBreakerThreshold = override.Watch.CircuitBreakerThreshold
	}

	setDuration(&result.Monitor.RefreshInterval, override.Monitor.RefreshInterval)
	setString(&result.Display.Format, override.Display.Format)
	setString(&result.Metrics.Listen, override.Metrics.Listen)

	setString(&result.Logging.Level, override.Logging.Level)
	setString(&result.Logging.Output, override.Logging.Output)
	setString(&result.Logging.Format, override.Logging.Format)

	return &result
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvVars applies environment variable overrides:
//   - SSO_RPC_URL: node URL
//   - SSO_CHAIN_ID: expected chain ID
//   - SSO_DB: BoltDB path
//   - SSO_REDIS_ADDR: redis address (selects the redis backend)
//   - SSO_LOG_LEVEL: log level
//   - SSO_SESSION_VALIDATOR: session validator address
func applyEnvVars(cfg *Config) (*Config, error) {
	result := *cfg

	if v := os.Getenv("SSO_RPC_URL"); v != "" {
		result.Network.RPCURL = v
	}

	if v := os.Getenv("SSO_CHAIN_ID"); v != "" {
		id, err := strconv.ParseUint(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: SSO_CHAIN_ID=%q", ErrInvalidEnv, v)
		}
		result.Network.ChainID = id
	}

	if v := os.Getenv("SSO_DB"); v != "" {
		result.Storage.DBPath = v
	}

	if v := os.Getenv("SSO_REDIS_ADDR"); v != "" {
		result.Storage.Backend = "redis"
		result.Storage.Redis.Addr = v
	}

	if v := os.Getenv("SSO_LOG_LEVEL"); v != "" {
		result.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv("SSO_SESSION_VALIDATOR"); v != "" {
		result.Contracts.SessionValidator = v
	}

	return &result, nil
}

// Load creates a loader with the default search path and loads.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile loads defaults, path and the environment.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save validates cfg and writes it as YAML with 0600 permissions,
// creating parent directories.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
