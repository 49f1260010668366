// Package provider is the node access layer: the JSON-RPC calls the client
// needs to populate, broadcast and confirm zkSync transactions.
//
// Retries are not performed here; callers see every RPC failure.
package provider

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/0xmhha/sso-session/pkg/eip712"
)

// Provider abstracts the node RPC surface used by this module.
type Provider interface {
	// ChainID returns the chain ID reported by the node.
	ChainID(ctx context.Context) (*big.Int, error)

	// PendingNonce returns the next nonce for account, including pending transactions.
	PendingNonce(ctx context.Context, account common.Address) (*big.Int, error)

	// EstimateGas estimates the gas limit of tx, including its custom signature.
	EstimateGas(ctx context.Context, tx *eip712.Transaction) (*big.Int, error)

	// GasPrice returns the current gas price.
	GasPrice(ctx context.Context) (*big.Int, error)

	// LatestBlockTimestamp returns the timestamp of the latest block.
	LatestBlockTimestamp(ctx context.Context) (uint64, error)

	// Call executes a read-only call against the latest block.
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// SendRawTransaction broadcasts a serialized transaction.
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)

	// TransactionReceipt returns the receipt of a mined transaction, or
	// ErrReceiptNotFound while it is pending.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// Close releases the underlying connection.
	Close()
}

// Config contains provider configuration.
type Config struct {
	// URL is the node JSON-RPC endpoint (http, https, ws, wss or ipc path).
	URL string

	// DialTimeout bounds the initial connection (default: 10 seconds).
	DialTimeout time.Duration
}
