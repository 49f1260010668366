package policy

import "errors"

// Common errors returned by the policy package.
var (
	// ErrInvalidLimitType is returned when a numeric tag is not a known LimitType.
	ErrInvalidLimitType = errors.New("invalid limit type")

	// ErrInvalidCondition is returned when a numeric tag is not a known Condition.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrInvalidStatus is returned when a numeric tag is not a known session Status.
	ErrInvalidStatus = errors.New("invalid session status")

	// ErrMissingValue is returned when a required integer field is nil.
	ErrMissingValue = errors.New("missing value")

	// ErrZeroSigner is returned when a session has no signer address.
	ErrZeroSigner = errors.New("session signer is the zero address")

	// ErrZeroPeriod is returned when an allowance limit has a zero period.
	ErrZeroPeriod = errors.New("allowance period must be > 0")

	// ErrInvalidNumber is returned when a string-encoded integer cannot be parsed.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrInvalidAddress is returned when an address string is malformed.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidSelector is returned when a selector is not exactly 4 bytes.
	ErrInvalidSelector = errors.New("invalid selector: must be 4 bytes")

	// ErrInvalidRefValue is returned when a constraint reference value is not exactly 32 bytes.
	ErrInvalidRefValue = errors.New("invalid ref value: must be 32 bytes")

	// ErrInvalidJSON is returned when a session config document cannot be decoded.
	ErrInvalidJSON = errors.New("invalid session config JSON")
)
