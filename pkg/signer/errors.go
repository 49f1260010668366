package signer

import "errors"

// Common errors returned by the signer package.
var (
	// ErrMalformedSignature is returned when a signer produces a signature
	// that is not 65 bytes or has a zero r or s component.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrInvalidPrivateKey is returned when a private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrMissingSigner is returned when an authorizer has no signer configured.
	ErrMissingSigner = errors.New("signer is required")
)
