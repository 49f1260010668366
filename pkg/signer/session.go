package signer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/eip712"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/session"
)

// BuildSessionSignature assembles the composite signature a session-key
// transaction carries: abi.encode(sessionKeySig, validator, validatorData)
// where validatorData is abi.encode(spec, periodIds).
func BuildSessionSignature(
	ctx context.Context,
	digest common.Hash,
	to common.Address,
	callData []byte,
	sessionKey Signer,
	spec *policy.SessionSpec,
	timestamp *uint64,
	validator common.Address,
) ([]byte, error) {
	if sessionKey == nil {
		return nil, ErrMissingSigner
	}

	sig, err := sessionKey.SignHash(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with session key: %w", err)
	}
	if err := CheckSignature(sig); err != nil {
		return nil, err
	}

	validatorData, err := session.EncodeSessionTx(spec, to, callData, timestamp)
	if err != nil {
		return nil, err
	}

	return abicodec.EncodeSessionSignature(sig, validator, validatorData)
}

// SessionAuthorizer signs transactions with a session key under spec.
type SessionAuthorizer struct {
	Spec       *policy.SessionSpec
	SessionKey Signer
	Validator  common.Address

	// Timestamps supplies block time on the local devnet. Elsewhere period
	// IDs are computed from wall-clock time.
	Timestamps TimestampSource
}

// Placeholder implements Authorizer.Placeholder. The signature slot is
// zeroed; everything else has the final layout.
func (a *SessionAuthorizer) Placeholder(_ context.Context, tx *eip712.Transaction) ([]byte, error) {
	validatorData, err := session.EncodeSessionTx(a.Spec, tx.To, tx.Data, nil)
	if err != nil {
		return nil, err
	}
	return abicodec.EncodeSessionSignature(make([]byte, crypto.SignatureLength), a.Validator, validatorData)
}

// Authorize implements Authorizer.Authorize.
func (a *SessionAuthorizer) Authorize(ctx context.Context, digest common.Hash, tx *eip712.Transaction) ([]byte, error) {
	timestamp, err := a.timestamp(ctx, tx.ChainID)
	if err != nil {
		return nil, err
	}
	return BuildSessionSignature(ctx, digest, tx.To, tx.Data, a.SessionKey, a.Spec, timestamp, a.Validator)
}

func (a *SessionAuthorizer) timestamp(ctx context.Context, chainID *big.Int) (*uint64, error) {
	if a.Timestamps == nil || chainID == nil || !chainID.IsInt64() || chainID.Int64() != LocalDevnetChainID {
		return nil, nil
	}

	ts, err := a.Timestamps.LatestBlockTimestamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block timestamp: %w", err)
	}
	return &ts, nil
}
