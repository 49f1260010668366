package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// isolate keeps Load from reading a real user config.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("SSO_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	for _, k := range []string{"SSO_RPC_URL", "SSO_CHAIN_ID", "SSO_DB", "SSO_REDIS_ADDR", "SSO_LOG_LEVEL", "SSO_SESSION_VALIDATOR"} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Network.RPCURL != "http://localhost:8011" {
		t.Errorf("RPCURL = %s", cfg.Network.RPCURL)
	}
	if cfg.Storage.Backend != "bolt" {
		t.Errorf("Backend = %s, want bolt", cfg.Storage.Backend)
	}
	if filepath.Base(cfg.Storage.DBPath) != "sessions.db" {
		t.Errorf("DBPath = %s", cfg.Storage.DBPath)
	}
	if cfg.Display.Format != "auto" {
		t.Errorf("Display.Format = %s, want auto", cfg.Display.Format)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid default", func(*Config) {}, nil},
		{"missing rpc url", func(c *Config) { c.Network.RPCURL = " " }, ErrMissingRPCURL},
		{"zero dial timeout", func(c *Config) { c.Network.DialTimeout = 0 }, ErrInvalidDialTimeout},
		{"bad validator address", func(c *Config) { c.Contracts.SessionValidator = "0x1234" }, ErrInvalidAddress},
		{"bad factory address", func(c *Config) { c.Contracts.AccountFactory = "factory" }, ErrInvalidAddress},
		{"zero poll interval", func(c *Config) { c.Client.PollInterval = 0 }, ErrInvalidPollInterval},
		{"negative receipt timeout", func(c *Config) { c.Client.ReceiptTimeout = -time.Second }, ErrInvalidReceiptTimeout},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, ErrInvalidBackend},
		{"bolt without path", func(c *Config) { c.Storage.DBPath = "" }, ErrMissingDBPath},
		{"redis without addr", func(c *Config) {
			c.Storage.Backend = "redis"
			c.Storage.Redis.Addr = ""
		}, ErrMissingRedisAddr},
		{"zero debounce", func(c *Config) { c.Watch.Debounce = 0 }, ErrInvalidDebounce},
		{"zero breaker", func(c *Config) { c.Watch.CircuitBreakerThreshold = 0 }, ErrInvalidCircuitBreaker},
		{"zero refresh", func(c *Config) { c.Monitor.RefreshInterval = 0 }, ErrInvalidRefreshInterval},
		{"bad display format", func(c *Config) { c.Display.Format = "live" }, ErrInvalidDisplayFormat},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAddresses(t *testing.T) {
	cfg := Default()
	cfg.Contracts.SessionValidator = "0x00000000000000000000000000000000000000aa"

	if got := cfg.SessionValidatorAddress(); got != common.HexToAddress("0xaa") {
		t.Errorf("SessionValidatorAddress() = %s", got.Hex())
	}
	if got := cfg.AccountFactoryAddress(); got != (common.Address{}) {
		t.Errorf("AccountFactoryAddress() = %s, want zero", got.Hex())
	}
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		missing bool
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid config file",
			content: `
network:
  rpc_url: https://sepolia.era.zksync.dev
  chain_id: 300
contracts:
  session_validator: "0x00000000000000000000000000000000000000aa"
  account_factory: "0x00000000000000000000000000000000000000bb"
client:
  poll_interval: 250ms
storage:
  backend: redis
  redis:
    addr: redis:6379
    prefix: "test:"
watch:
  debounce: 50ms
display:
  format: json
metrics:
  listen: ":9102"
logging:
  level: debug
  format: json
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Network.RPCURL != "https://sepolia.era.zksync.dev" {
					t.Errorf("RPCURL = %s", cfg.Network.RPCURL)
				}
				if cfg.Network.ChainID != 300 {
					t.Errorf("ChainID = %d, want 300", cfg.Network.ChainID)
				}
				if cfg.Client.PollInterval != 250*time.Millisecond {
					t.Errorf("PollInterval = %v", cfg.Client.PollInterval)
				}
				if cfg.Client.ReceiptTimeout != 2*time.Minute {
					t.Errorf("ReceiptTimeout = %v, want default", cfg.Client.ReceiptTimeout)
				}
				if cfg.Storage.Backend != "redis" || cfg.Storage.Redis.Addr != "redis:6379" || cfg.Storage.Redis.Prefix != "test:" {
					t.Errorf("Storage = %+v", cfg.Storage)
				}
				if cfg.Watch.Debounce != 50*time.Millisecond || cfg.Watch.CircuitBreakerThreshold != 5 {
					t.Errorf("Watch = %+v", cfg.Watch)
				}
				if cfg.Metrics.Listen != ":9102" {
					t.Errorf("Metrics.Listen = %s", cfg.Metrics.Listen)
				}
				if cfg.Logging.Level != "debug" || cfg.Logging.Output != "stderr" {
					t.Errorf("Logging = %+v", cfg.Logging)
				}
			},
		},
		{
			name:    "invalid yaml",
			content: `invalid: yaml: content: [`,
			wantErr: true,
		},
		{
			name:    "invalid values",
			content: "storage:\n  backend: sqlite\n",
			wantErr: true,
		},
		{
			name:    "non-existent file",
			missing: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.name+".yaml")
			if !tt.missing {
				if err := os.WriteFile(filePath, []byte(tt.content), 0600); err != nil {
					t.Fatalf("Failed to create test file: %v", err)
				}
			}

			cfg, err := NewLoader(filePath).Load()
			if tt.wantErr {
				if err == nil {
					t.Error("Load() error = nil, wantErr = true")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Network.RPCURL != Default().Network.RPCURL {
		t.Errorf("RPCURL = %s, want default", cfg.Network.RPCURL)
	}
}

func TestSave(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.Contracts.SessionValidator = "0x00000000000000000000000000000000000000aa"

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug", loaded.Logging.Level)
	}
	if loaded.Contracts.SessionValidator != cfg.Contracts.SessionValidator {
		t.Errorf("SessionValidator = %s", loaded.Contracts.SessionValidator)
	}

	bad := Default()
	bad.Storage.Backend = ""
	if err := Save(bad, configPath); !errors.Is(err, ErrInvalidBackend) {
		t.Errorf("Save(invalid) = %v", err)
	}
}

func TestEnvVarOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SSO_RPC_URL", "http://node:3050")
	t.Setenv("SSO_CHAIN_ID", "0x104")
	t.Setenv("SSO_DB", "/env/sessions.db")
	t.Setenv("SSO_LOG_LEVEL", "DEBUG")
	t.Setenv("SSO_SESSION_VALIDATOR", "0x00000000000000000000000000000000000000cc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network.RPCURL != "http://node:3050" {
		t.Errorf("RPCURL = %s", cfg.Network.RPCURL)
	}
	if cfg.Network.ChainID != 260 {
		t.Errorf("ChainID = %d, want 260", cfg.Network.ChainID)
	}
	if cfg.Storage.DBPath != "/env/sessions.db" {
		t.Errorf("DBPath = %s", cfg.Storage.DBPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Contracts.SessionValidator != "0x00000000000000000000000000000000000000cc" {
		t.Errorf("SessionValidator = %s", cfg.Contracts.SessionValidator)
	}
}

func TestEnvRedisAddr(t *testing.T) {
	isolate(t)
	t.Setenv("SSO_REDIS_ADDR", "cache:6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.Redis.Addr != "cache:6380" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
}

func TestInvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SSO_CHAIN_ID", "zksync")

	if _, err := Load(); !errors.Is(err, ErrInvalidEnv) {
		t.Errorf("Load() = %v, want ErrInvalidEnv", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("SSO_CONFIG", "/etc/sso.yaml")
	if got := DefaultPath(); got != "/etc/sso.yaml" {
		t.Errorf("DefaultPath() = %s", got)
	}

	t.Setenv("SSO_CONFIG", "")
	if got := DefaultPath(); filepath.Base(got) != "config.yaml" {
		t.Errorf("DefaultPath() = %s", got)
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
