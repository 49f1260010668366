package signer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/eip712"
)

// DefaultPasskeyPlaceholderSize is the assertion size assumed during gas
// estimation when neither PasskeyAuthorizer.PlaceholderSize nor the
// authenticator gives one. It is an upper estimate, so the placeholder may
// be longer than the final assertion and the estimate slightly high.
const DefaultPasskeyPlaceholderSize = 512

// PasskeyAuthorizer signs through a WebAuthn validator.
type PasskeyAuthorizer struct {
	Authenticator PasskeyAuthenticator
	Validator     common.Address

	// PlaceholderSize is the assertion length used for gas estimation. When
	// zero, an Authenticator implementing AssertionSizer is asked instead.
	PlaceholderSize int
}

// Placeholder implements Authorizer.Placeholder.
func (a *PasskeyAuthorizer) Placeholder(context.Context, *eip712.Transaction) ([]byte, error) {
	size := a.PlaceholderSize
	if size == 0 {
		if sizer, ok := a.Authenticator.(AssertionSizer); ok {
			size = sizer.AssertionSize()
		}
	}
	if size <= 0 {
		size = DefaultPasskeyPlaceholderSize
	}
	return abicodec.EncodeSessionSignature(make([]byte, size), a.Validator, []byte{})
}

// Authorize implements Authorizer.Authorize.
func (a *PasskeyAuthorizer) Authorize(ctx context.Context, digest common.Hash, _ *eip712.Transaction) ([]byte, error) {
	if a.Authenticator == nil {
		return nil, ErrMissingSigner
	}

	assertion, err := a.Authenticator.Sign(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("passkey signing failed: %w", err)
	}
	if len(assertion) == 0 {
		return nil, fmt.Errorf("%w: empty passkey assertion", ErrMalformedSignature)
	}

	return abicodec.EncodeSessionSignature(assertion, a.Validator, []byte{})
}
