package client

import "errors"

// Common errors returned by the client.
var (
	// ErrTransactionReverted is returned when the receipt reports failure.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrMissingValidator is returned when a session operation has no
	// session validator address configured.
	ErrMissingValidator = errors.New("session validator address is required")

	// ErrMissingAuthorizer is returned when the client has no authorizer.
	ErrMissingAuthorizer = errors.New("authorizer is required")
)
