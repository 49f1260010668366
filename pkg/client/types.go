// Package client sends transactions from an SSO smart account.
//
// SendTransaction walks each transaction through
//
//	Building -> EstimatingGas -> Signing -> Broadcasting -> AwaitingReceipt -> Confirmed | Failed
//
// Any failing step aborts the send and returns the underlying error. Nothing
// is retried and no lock is held across sends, so concurrent sends from the
// same account race on the nonce at the node.
package client

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State is a step in a transaction's lifecycle.
type State int

// Transaction states.
const (
	StateBuilding State = iota
	StateEstimatingGas
	StateSigning
	StateBroadcasting
	StateAwaitingReceipt
	StateConfirmed
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateBuilding:
		return "Building"
	case StateEstimatingGas:
		return "EstimatingGas"
	case StateSigning:
		return "Signing"
	case StateBroadcasting:
		return "Broadcasting"
	case StateAwaitingReceipt:
		return "AwaitingReceipt"
	case StateConfirmed:
		return "Confirmed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Observer is notified on every state transition. hash is zero until the
// transaction has been broadcast.
type Observer func(state State, hash common.Hash)

// Config contains client configuration.
type Config struct {
	// SessionValidator is the session key validator module address.
	SessionValidator common.Address

	// PollInterval is the receipt polling interval (default: 1 second).
	PollInterval time.Duration

	// ReceiptTimeout bounds the receipt wait. Zero waits until ctx ends.
	ReceiptTimeout time.Duration

	// Observer receives state transitions. Optional.
	Observer Observer
}
