package abicodec

import "errors"

// Common errors returned by the abicodec package.
var (
	// ErrMissingValue is returned when a required integer field is nil.
	ErrMissingValue = errors.New("missing value")

	// ErrValueOutOfRange is returned when an integer does not fit its ABI type.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrInvalidCredentialID is returned when a passkey credential ID cannot be decoded.
	ErrInvalidCredentialID = errors.New("invalid credential id")

	// ErrInvalidCoordinate is returned when a public key coordinate is not 32 bytes.
	ErrInvalidCoordinate = errors.New("invalid public key coordinate: must be 32 bytes")

	// ErrDecode is returned when ABI data cannot be decoded into the expected layout.
	ErrDecode = errors.New("abi decode failed")

	// ErrUnexpectedLog is returned when a log is not the expected event.
	ErrUnexpectedLog = errors.New("unexpected log")
)
