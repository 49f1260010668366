package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xmhha/sso-session/pkg/eip712"
)

// OwnerAuthorizer signs as a k1 owner of the account. The account accepts
// a bare 65-byte ECDSA signature from its owners.
type OwnerAuthorizer struct {
	Owner Signer
}

// Placeholder implements Authorizer.Placeholder.
func (a *OwnerAuthorizer) Placeholder(context.Context, *eip712.Transaction) ([]byte, error) {
	return make([]byte, crypto.SignatureLength), nil
}

// Authorize implements Authorizer.Authorize.
func (a *OwnerAuthorizer) Authorize(ctx context.Context, digest common.Hash, _ *eip712.Transaction) ([]byte, error) {
	if a.Owner == nil {
		return nil, ErrMissingSigner
	}

	sig, err := a.Owner.SignHash(ctx, digest)
	if err != nil {
		return nil, err
	}
	if err := CheckSignature(sig); err != nil {
		return nil, err
	}
	return sig, nil
}
