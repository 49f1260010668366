// Package policy defines the session-key policy model enforced by the
// session validator contract.
//
// Every struct mirrors the field order of the contract's SessionLib
// declarations, and every enum is backed by the exact Solidity ordinal.
// Conversions from raw integers are total and fallible: an unknown tag is an
// error, never a default.
//
// Example usage:
//
//	spec := &policy.SessionSpec{
//	    Signer:    signer,
//	    ExpiresAt: big.NewInt(1749040108),
//	    FeeLimit:  policy.Lifetime(big.NewInt(1e17)),
//	    TransferPolicies: []policy.TransferSpec{{
//	        Target:         target,
//	        MaxValuePerUse: big.NewInt(1e16),
//	        ValueLimit:     policy.Unlimited(),
//	    }},
//	}
//	if err := spec.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package policy

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LimitType selects how a UsageLimit meters consumption.
type LimitType uint8

// Limit types, in contract ordinal order.
const (
	LimitUnlimited LimitType = iota // No metering
	LimitLifetime                   // Cumulative cap over the session lifetime
	LimitAllowance                  // Cap per period bucket
)

// LimitTypeFromUint8 converts a contract ordinal into a LimitType.
func LimitTypeFromUint8(v uint8) (LimitType, error) {
	if v > uint8(LimitAllowance) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLimitType, v)
	}
	return LimitType(v), nil
}

// String returns a human-readable limit type name.
func (t LimitType) String() string {
	switch t {
	case LimitUnlimited:
		return "Unlimited"
	case LimitLifetime:
		return "Lifetime"
	case LimitAllowance:
		return "Allowance"
	default:
		return fmt.Sprintf("LimitType(%d)", uint8(t))
	}
}

// Condition is the comparator a Constraint applies to a call-data word.
type Condition uint8

// Conditions, in contract ordinal order.
const (
	ConditionUnconstrained Condition = iota
	ConditionEqual
	ConditionGreater
	ConditionLess
	ConditionGreaterEqual
	ConditionLessEqual
	ConditionNotEqual
)

// ConditionFromUint8 converts a contract ordinal into a Condition.
func ConditionFromUint8(v uint8) (Condition, error) {
	if v > uint8(ConditionNotEqual) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCondition, v)
	}
	return Condition(v), nil
}

// String returns a human-readable condition name.
func (c Condition) String() string {
	switch c {
	case ConditionUnconstrained:
		return "Unconstrained"
	case ConditionEqual:
		return "Equal"
	case ConditionGreater:
		return "Greater"
	case ConditionLess:
		return "Less"
	case ConditionGreaterEqual:
		return "GreaterEqual"
	case ConditionLessEqual:
		return "LessEqual"
	case ConditionNotEqual:
		return "NotEqual"
	default:
		return fmt.Sprintf("Condition(%d)", uint8(c))
	}
}

// Status is the on-chain lifecycle state of a session.
type Status uint8

// Session statuses, in contract ordinal order.
const (
	StatusNotInitialized Status = iota // Never created for this account
	StatusActive                       // Created and not revoked
	StatusClosed                       // Revoked
)

// StatusFromUint8 converts a contract ordinal into a Status.
func StatusFromUint8(v uint8) (Status, error) {
	if v > uint8(StatusClosed) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, v)
	}
	return Status(v), nil
}

// IsInitialized reports whether the session was ever created.
func (s Status) IsInitialized() bool { return s != StatusNotInitialized }

// IsActive reports whether the session is currently usable.
func (s Status) IsActive() bool { return s == StatusActive }

// IsClosed reports whether the session was revoked.
func (s Status) IsClosed() bool { return s == StatusClosed }

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusNotInitialized:
		return "NotInitialized"
	case StatusActive:
		return "Active"
	case StatusClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// UsageLimit describes how much of a resource may be consumed.
type UsageLimit struct {
	LimitType LimitType
	Limit     *big.Int
	Period    *big.Int
}

// Constraint restricts one 32-byte word of call data (at byte offset Index
// after the selector) to satisfy Condition against RefValue.
type Constraint struct {
	Condition Condition
	Index     uint64
	RefValue  [32]byte
	Limit     UsageLimit
}

// CallSpec permits calling Target with function Selector.
type CallSpec struct {
	Target         common.Address
	Selector       [4]byte
	MaxValuePerUse *big.Int
	ValueLimit     UsageLimit
	Constraints    []Constraint
}

// TransferSpec permits plain value transfers to Target.
type TransferSpec struct {
	Target         common.Address
	MaxValuePerUse *big.Int
	ValueLimit     UsageLimit
}

// SessionSpec is the full delegation granted to a session key.
type SessionSpec struct {
	// Signer is the session key's address.
	Signer common.Address

	// ExpiresAt is the UNIX timestamp after which the session is invalid.
	ExpiresAt *big.Int

	// FeeLimit caps gas fees paid under the session.
	FeeLimit UsageLimit

	CallPolicies     []CallSpec
	TransferPolicies []TransferSpec
}

// LimitState is the remaining budget of one metered limit.
type LimitState struct {
	Remaining *big.Int
	Target    common.Address
	Selector  [4]byte
	Index     *big.Int
}

// SessionState is the on-chain view of a session for one account.
type SessionState struct {
	Status        Status
	FeesRemaining *big.Int
	TransferValue []LimitState
	CallValue     []LimitState
	CallParams    []LimitState
}
