// Package signer produces the signatures attached to zkSync transactions
// sent from an SSO smart account.
//
// A Signer is a raw ECDSA capability over 32-byte hashes. An Authorizer
// turns a transaction digest into the account-specific custom signature:
// session-key composite signatures, owner k1 signatures or passkey
// assertions.
package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/eip712"
)

// LocalDevnetChainID is the chain ID of the in-memory zkSync node. Its block
// clock drifts from wall time, so session period IDs use the node's time.
const LocalDevnetChainID = 260

// Signer signs 32-byte hashes with a secp256k1 key. Implementations must be
// reusable and safe for concurrent use.
type Signer interface {
	// Address returns the address of the signing key.
	Address() common.Address

	// SignHash returns a 65-byte r||s||v signature with v in {27, 28}.
	SignHash(ctx context.Context, hash common.Hash) ([]byte, error)
}

// Authorizer builds the custom signature of a transaction.
type Authorizer interface {
	// Placeholder returns a signature with the same encoded length as the
	// real one, used while the node estimates gas.
	Placeholder(ctx context.Context, tx *eip712.Transaction) ([]byte, error)

	// Authorize returns the custom signature over digest for tx.
	Authorize(ctx context.Context, digest common.Hash, tx *eip712.Transaction) ([]byte, error)
}

// TimestampSource reports the chain's current time.
type TimestampSource interface {
	LatestBlockTimestamp(ctx context.Context) (uint64, error)
}

// PasskeyAuthenticator produces WebAuthn assertions over a hash. The
// ceremony itself (authenticator data, client data JSON) is opaque here;
// the returned bytes are the validator-specific encoded assertion.
type PasskeyAuthenticator interface {
	Sign(ctx context.Context, hash common.Hash) ([]byte, error)
}

// AssertionSizer is implemented by authenticators that know the length of
// the assertions they produce. PasskeyAuthorizer uses it to size the gas
// estimation placeholder.
type AssertionSizer interface {
	AssertionSize() int
}
