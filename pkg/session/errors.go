package session

import "errors"

// Common errors returned by the session package.
var (
	// ErrNoMatchingPolicy is returned when no call or transfer policy covers
	// the transaction.
	ErrNoMatchingPolicy = errors.New("transaction does not fit any policy")

	// ErrZeroPeriod is returned when an allowance limit has a zero period.
	ErrZeroPeriod = errors.New("allowance period must be non-zero")

	// ErrShortCallData is returned when call data is non-empty but shorter
	// than a function selector.
	ErrShortCallData = errors.New("call data shorter than 4-byte selector")

	// ErrMissingSpec is returned when a nil spec is given.
	ErrMissingSpec = errors.New("session spec is required")
)
