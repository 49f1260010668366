package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/0xmhha/sso-session/pkg/client"
	"github.com/0xmhha/sso-session/pkg/config"
	"github.com/0xmhha/sso-session/pkg/display"
	"github.com/0xmhha/sso-session/pkg/logger"
	"github.com/0xmhha/sso-session/pkg/metrics"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/provider"
	"github.com/0xmhha/sso-session/pkg/signer"
	"github.com/0xmhha/sso-session/pkg/store"
)

// privateKeyEnv supplies -key when the flag is omitted.
const privateKeyEnv = "SSO_PRIVATE_KEY"

// environment holds the components shared by commands that talk to the
// node or the registry.
type environment struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Metrics
}

// loadEnvironment loads configuration and sets up logging and metrics.
func loadEnvironment(configPath string) (*environment, error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Logging)
	logger.Route(log)

	return &environment{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(nil),
	}, nil
}

// openStore opens the session registry.
func (e *environment) openStore() (store.Store, error) {
	st, err := store.Open(store.Config{
		Backend:       e.cfg.Storage.Backend,
		DBPath:        e.cfg.Storage.DBPath,
		Timeout:       e.cfg.Storage.Timeout,
		RedisAddr:     e.cfg.Storage.Redis.Addr,
		RedisPassword: e.cfg.Storage.Redis.Password,
		RedisDB:       e.cfg.Storage.Redis.DB,
		RedisPrefix:   e.cfg.Storage.Redis.Prefix,
	}, e.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open session registry: %w", err)
	}
	return st, nil
}

// dial connects to the node and checks its chain ID against the
// configured one, if any.
func (e *environment) dial(ctx context.Context) (provider.Provider, error) {
	p, err := provider.New(ctx, provider.Config{
		URL:         e.cfg.Network.RPCURL,
		DialTimeout: e.cfg.Network.DialTimeout,
	}, e.log)
	if err != nil {
		return nil, err
	}

	if e.cfg.Network.ChainID != 0 {
		chainID, err := p.ChainID(ctx)
		if err != nil {
			p.Close()
			return nil, err
		}
		if !chainID.IsUint64() || chainID.Uint64() != e.cfg.Network.ChainID {
			p.Close()
			return nil, fmt.Errorf("chain id mismatch: node reports %s, configured %d",
				chainID, e.cfg.Network.ChainID)
		}
	}

	return p, nil
}

// clientConfig returns the transaction client configuration.
func (e *environment) clientConfig() client.Config {
	return client.Config{
		SessionValidator: e.cfg.SessionValidatorAddress(),
		PollInterval:     e.cfg.Client.PollInterval,
		ReceiptTimeout:   e.cfg.Client.ReceiptTimeout,
		Observer: func(state client.State, hash common.Hash) {
			e.log.Debug("transaction state", "state", state.String(), "hash", hash.Hex())
		},
	}
}

// formatter builds the output formatter. override takes precedence over the
// configured format when set.
func (e *environment) formatter(override string, compact bool) (display.Formatter, error) {
	format := e.cfg.Display.Format
	if override != "" {
		format = override
	}
	return newFormatter(format, compact)
}

// serveMetrics exposes the Prometheus registry until ctx ends. It is a
// no-op when no listen address is configured.
func (e *environment) serveMetrics(ctx context.Context) {
	if e.cfg.Metrics.Listen == "" {
		return
	}

	srv := &http.Server{
		Addr:              e.cfg.Metrics.Listen,
		Handler:           e.metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx) //nolint:errcheck // best effort shutdown
	}()

	go func() {
		e.log.Info("serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics server failed", "error", err)
		}
	}()
}

// newFormatter parses format and resolves auto against stdout.
func newFormatter(format string, compact bool) (display.Formatter, error) {
	f, err := display.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return display.New(display.Config{
		Format:  display.Resolve(f, os.Stdout),
		Compact: compact,
	}), nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resolveSession finds a session by hash, registry name or config file path.
// The record is nil when ref is a file that is not in the registry.
func resolveSession(st store.Store, ref string) (*store.Record, *policy.SessionSpec, error) {
	if ref == "" {
		return nil, nil, fmt.Errorf("session reference is required")
	}

	if rec, err := lookupRecord(st, ref); err == nil {
		spec, err := policy.ParseSessionConfig(rec.Spec)
		if err != nil {
			return nil, nil, fmt.Errorf("session %s has an invalid config: %w", rec.Hash, err)
		}
		return rec, spec, nil
	} else if !errors.Is(err, store.ErrSessionNotFound) {
		return nil, nil, err
	}

	if _, err := os.Stat(ref); err == nil {
		spec, err := policy.LoadSessionConfigFile(ref)
		if err != nil {
			return nil, nil, err
		}
		return nil, spec, nil
	}

	return nil, nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, ref)
}

// lookupRecord finds a registry record by hash or name.
func lookupRecord(st store.Store, ref string) (*store.Record, error) {
	if strings.HasPrefix(ref, "0x") && len(ref) == 66 {
		rec, err := st.Get(ref)
		if err == nil || !errors.Is(err, store.ErrSessionNotFound) {
			return rec, err
		}
	}
	return st.GetByName(ref)
}

// readSessionConfig loads a session config from path, or stdin for "-".
func readSessionConfig(path string, stdin io.Reader) (*policy.SessionSpec, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // nolint:gosec
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session config: %w", err)
	}
	return policy.ParseSessionConfig(data)
}

// loadSigner parses a hex private key from the flag or SSO_PRIVATE_KEY.
func loadSigner(key string) (*signer.PrivateKeySigner, error) {
	if key == "" {
		key = os.Getenv(privateKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("private key is required (-key or %s)", privateKeyEnv)
	}
	return signer.NewPrivateKeySigner(key)
}

// parseAddress parses a required hex address flag.
func parseAddress(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("-%s: invalid address %q", name, value)
	}
	return common.HexToAddress(value), nil
}

// parseAddressList parses a comma-separated address list.
func parseAddressList(name, value string) ([]common.Address, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var out []common.Address
	for _, part := range strings.Split(value, ",") {
		addr, err := parseAddress(name, strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// parseHexData decodes 0x-prefixed bytes. Empty input is nil.
func parseHexData(name, value string) ([]byte, error) {
	if value == "" || value == "0x" {
		return nil, nil
	}
	data, err := hexutil.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return data, nil
}

// parseAmount parses a decimal or 0x-prefixed non-negative integer.
func parseAmount(name, value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(value, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("-%s: invalid amount %q", name, value)
	}
	return v, nil
}

// parseTimestamp parses an optional unix timestamp. Empty means wall clock.
func parseTimestamp(value string) (*uint64, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("-timestamp: %w", err)
	}
	return &ts, nil
}
