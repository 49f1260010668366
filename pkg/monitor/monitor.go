package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/logger"
	"github.com/0xmhha/sso-session/pkg/metrics"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/store"
)

type monitor struct {
	config  Config
	caller  Caller
	store   store.Store
	metrics *metrics.Metrics
	logger  logger.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	stopChan chan struct{}
	updates  chan Update

	// last successful state per session hash
	last map[string]*policy.SessionState
}

// New creates a session monitor reading records from st. m may be nil.
func New(cfg Config, caller Caller, st store.Store, m *metrics.Metrics, log logger.Logger) (Monitor, error) {
	if cfg.Validator == (common.Address{}) {
		return nil, fmt.Errorf("%w: session validator is required", ErrInvalidConfig)
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = 5 * time.Second
	}

	hashes := make([]string, len(cfg.Hashes))
	for i, h := range cfg.Hashes {
		normalized, err := store.NormalizeHash(h)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		hashes[i] = normalized
	}
	cfg.Hashes = hashes

	return &monitor{
		config:   cfg,
		caller:   caller,
		store:    st,
		metrics:  m,
		logger:   log,
		stopChan: make(chan struct{}),
		updates:  make(chan Update, 64),
		last:     make(map[string]*policy.SessionState),
	}, nil
}

func (m *monitor) Poll(ctx context.Context) ([]Update, error) {
	records, err := m.tracked()
	if err != nil {
		return nil, err
	}

	updates := make([]Update, 0, len(records))
	active := 0
	for _, rec := range records {
		u := m.pollOne(ctx, rec)
		if u.Err == nil && u.State.Status.IsActive() {
			active++
		}
		updates = append(updates, u)
	}

	m.metrics.SetActiveSessions(active)
	return updates, nil
}

func (m *monitor) tracked() ([]*store.Record, error) {
	records, err := m.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var wanted map[string]bool
	if len(m.config.Hashes) > 0 {
		wanted = make(map[string]bool, len(m.config.Hashes))
		for _, h := range m.config.Hashes {
			wanted[h] = true
		}
	}

	out := make([]*store.Record, 0, len(records))
	for _, rec := range records {
		if wanted != nil && !wanted[rec.Hash] {
			continue
		}
		if rec.Revoked() && !m.config.IncludeRevoked {
			continue
		}
		out = append(out, rec)
	}

	if len(out) == 0 {
		return nil, ErrNoSessions
	}
	return out, nil
}

func (m *monitor) pollOne(ctx context.Context, rec *store.Record) Update {
	u := Update{Timestamp: time.Now(), Hash: rec.Hash, Name: rec.Name}

	state, err := m.query(ctx, rec, &u)
	m.metrics.RecordPoll(err == nil)
	if err != nil {
		m.logger.Warn("session state query failed", "hash", rec.Hash, "error", err)
		u.Err = err
		return u
	}
	u.State = state

	m.mu.Lock()
	prev := m.last[rec.Hash]
	m.last[rec.Hash] = state
	m.mu.Unlock()

	if prev != nil {
		u.Delta = delta(prev, state)
		if u.Delta.StatusChanged {
			m.logger.Info("session status changed",
				"hash", rec.Hash,
				"from", prev.Status.String(),
				"to", state.Status.String())
		}
	}

	return u
}

func (m *monitor) query(ctx context.Context, rec *store.Record, u *Update) (*policy.SessionState, error) {
	if !common.IsHexAddress(rec.Account) {
		return nil, ErrMissingAccount
	}
	u.Account = common.HexToAddress(rec.Account)

	spec, err := policy.ParseSessionConfig(rec.Spec)
	if err != nil {
		return nil, err
	}

	call, err := abicodec.SessionStateCall(m.config.Validator, u.Account, spec)
	if err != nil {
		return nil, err
	}

	out, err := m.caller.Call(ctx, call.To, call.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to query session state: %w", err)
	}

	return abicodec.DecodeSessionState(out)
}

func delta(prev, cur *policy.SessionState) Delta {
	d := Delta{
		StatusChanged:  prev.Status != cur.Status,
		PreviousStatus: prev.Status,
	}
	if prev.FeesRemaining != nil && cur.FeesRemaining != nil {
		d.FeesSpent = new(big.Int).Sub(prev.FeesRemaining, cur.FeesRemaining)
	}
	return d
}

func (m *monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if m.running {
		return ErrMonitorRunning
	}
	m.running = true
	m.stopChan = make(chan struct{})

	go m.loop(ctx, m.stopChan)

	m.logger.Info("session monitor started",
		"refresh_interval", m.config.RefreshInterval,
		"validator", m.config.Validator.Hex())
	return nil
}

func (m *monitor) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		m.pollAndPublish(ctx)

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (m *monitor) pollAndPublish(ctx context.Context) {
	updates, err := m.Poll(ctx)
	if err != nil {
		m.logger.Warn("session poll failed", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, u := range updates {
		select {
		case m.updates <- u:
		default:
			m.logger.Warn("updates channel full, dropping update", "hash", u.Hash)
		}
	}
}

func (m *monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}
	if !m.running {
		return ErrMonitorNotRunning
	}

	close(m.stopChan)
	m.running = false

	m.logger.Info("session monitor stopped")
	return nil
}

func (m *monitor) Updates() <-chan Update { return m.updates }

func (m *monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.running {
		close(m.stopChan)
		m.running = false
	}
	close(m.updates)

	return nil
}
