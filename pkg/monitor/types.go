// Package monitor polls the session validator for the on-chain state of the
// sessions in the local registry and reports what changed between polls.
package monitor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/policy"
)

// Caller performs a read-only contract call. provider.Provider satisfies it.
type Caller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Config holds the configuration for the session monitor.
type Config struct {
	// Validator is the session key validator module.
	Validator common.Address

	// Hashes restricts polling to these sessions (empty means all).
	Hashes []string

	// RefreshInterval is the time between polls (default: 5s).
	RefreshInterval time.Duration

	// IncludeRevoked also polls sessions marked revoked in the registry.
	IncludeRevoked bool
}

// Monitor polls session state.
type Monitor interface {
	// Poll queries every tracked session once.
	Poll(ctx context.Context) ([]Update, error)

	// Start polls every refresh interval in the background until ctx
	// ends or Stop is called. The first poll runs immediately.
	Start(ctx context.Context) error

	// Stop ends background polling.
	Stop() error

	// Updates delivers the results of background polls.
	Updates() <-chan Update

	// Close stops polling and closes the updates channel.
	Close() error
}

// Update is the result of polling one session.
type Update struct {
	Timestamp time.Time

	Hash    string
	Name    string
	Account common.Address

	// State is nil when Err is set.
	State *policy.SessionState

	Delta Delta

	// Err is the query or decode failure, if any.
	Err error
}

// Delta is the change since the previous successful poll of a session.
// The first poll of a session has a zero Delta.
type Delta struct {
	// FeesSpent is the drop in remaining fee allowance.
	FeesSpent *big.Int

	// StatusChanged is set when Status differs from PreviousStatus.
	StatusChanged  bool
	PreviousStatus policy.Status
}
