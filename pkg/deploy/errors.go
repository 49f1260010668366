package deploy

import "errors"

// Common errors returned by the deploy package.
var (
	// ErrNoOwners is returned when an account would have no way to sign.
	ErrNoOwners = errors.New("account needs a passkey, session or k1 owner")

	// ErrMissingValidator is returned when a module is requested without its validator address.
	ErrMissingValidator = errors.New("validator address is required")

	// ErrMissingFactory is returned when no factory address is configured.
	ErrMissingFactory = errors.New("account factory address is required")

	// ErrAccountNotCreated is returned when the receipt has no AccountCreated event.
	ErrAccountNotCreated = errors.New("AccountCreated event not found in receipt")
)
