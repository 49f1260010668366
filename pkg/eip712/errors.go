package eip712

import "errors"

// Common errors returned by the eip712 package.
var (
	// ErrMissingChainID is returned when the digest is requested without a chain ID.
	ErrMissingChainID = errors.New("transaction chain id is required")

	// ErrInvalidSignature is returned when an EOA signature is not 65 bytes.
	ErrInvalidSignature = errors.New("signature must be 65 bytes")

	// ErrBytecodeLength is returned when bytecode is not a whole number of words.
	ErrBytecodeLength = errors.New("bytecode length must be a multiple of 32")

	// ErrBytecodeWords is returned when the bytecode word count is even or too large.
	ErrBytecodeWords = errors.New("bytecode word count must be odd and below 2^16")
)
