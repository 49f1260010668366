package provider

import "errors"

// Common errors returned by providers.
var (
	// ErrReceiptNotFound is returned while a transaction has no receipt yet.
	ErrReceiptNotFound = errors.New("transaction receipt not found")

	// ErrEmptyURL is returned when no RPC endpoint is configured.
	ErrEmptyURL = errors.New("rpc url is required")

	// ErrBlockNotFound is returned when the node has no latest block.
	ErrBlockNotFound = errors.New("block not found")
)
