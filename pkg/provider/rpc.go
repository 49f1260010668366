package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/0xmhha/sso-session/pkg/eip712"
	"github.com/0xmhha/sso-session/pkg/logger"
)

// rpcProvider implements Provider over a go-ethereum RPC client.
type rpcProvider struct {
	client *rpc.Client
	logger logger.Logger
}

// New dials the configured endpoint.
func New(ctx context.Context, cfg Config, log logger.Logger) (Provider, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	client, err := rpc.DialContext(dialCtx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.URL, err)
	}

	log.Debug("rpc provider connected", "url", cfg.URL)

	return NewFromClient(client, log), nil
}

// NewFromClient wraps an existing RPC client.
func NewFromClient(client *rpc.Client, log logger.Logger) Provider {
	return &rpcProvider{client: client, logger: log}
}

// ChainID implements Provider.ChainID.
func (p *rpcProvider) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := p.client.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return (*big.Int)(&result), nil
}

// PendingNonce implements Provider.PendingNonce.
func (p *rpcProvider) PendingNonce(ctx context.Context, account common.Address) (*big.Int, error) {
	var result hexutil.Big
	if err := p.client.CallContext(ctx, &result, "eth_getTransactionCount", account, "pending"); err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	return (*big.Int)(&result), nil
}

// EstimateGas implements Provider.EstimateGas.
func (p *rpcProvider) EstimateGas(ctx context.Context, tx *eip712.Transaction) (*big.Int, error) {
	var result hexutil.Big
	if err := p.client.CallContext(ctx, &result, "eth_estimateGas", toCallArgs(tx)); err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return (*big.Int)(&result), nil
}

// GasPrice implements Provider.GasPrice.
func (p *rpcProvider) GasPrice(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := p.client.CallContext(ctx, &result, "eth_gasPrice"); err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return (*big.Int)(&result), nil
}

// LatestBlockTimestamp implements Provider.LatestBlockTimestamp.
func (p *rpcProvider) LatestBlockTimestamp(ctx context.Context) (uint64, error) {
	var block *struct {
		Timestamp hexutil.Uint64 `json:"timestamp"`
	}
	if err := p.client.CallContext(ctx, &block, "eth_getBlockByNumber", "latest", false); err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	if block == nil {
		return 0, ErrBlockNotFound
	}
	return uint64(block.Timestamp), nil
}

// Call implements Provider.Call.
func (p *rpcProvider) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	args := map[string]interface{}{
		"to":   to,
		"data": hexutil.Bytes(data),
	}

	var result hexutil.Bytes
	if err := p.client.CallContext(ctx, &result, "eth_call", args, "latest"); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", to.Hex(), err)
	}
	return result, nil
}

// SendRawTransaction implements Provider.SendRawTransaction.
func (p *rpcProvider) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := p.client.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	p.logger.Debug("transaction broadcast", "hash", hash.Hex())
	return hash, nil
}

// TransactionReceipt implements Provider.TransactionReceipt.
func (p *rpcProvider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := p.client.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt == nil {
		return nil, ErrReceiptNotFound
	}
	return receipt, nil
}

// Close implements Provider.Close.
func (p *rpcProvider) Close() {
	p.client.Close()
}

// toCallArgs builds zkSync eth_estimateGas arguments. Byte arrays inside
// eip712Meta are sent as JSON number arrays, as the node expects.
func toCallArgs(tx *eip712.Transaction) map[string]interface{} {
	meta := map[string]interface{}{
		"gasPerPubdata": (*hexutil.Big)(gasPerPubdata(tx)),
	}
	if len(tx.CustomSignature) > 0 {
		meta["customSignature"] = byteList(tx.CustomSignature)
	}
	if len(tx.FactoryDeps) > 0 {
		deps := make([][]int, len(tx.FactoryDeps))
		for i, dep := range tx.FactoryDeps {
			deps[i] = byteList(dep)
		}
		meta["factoryDeps"] = deps
	}
	if tx.Paymaster != (common.Address{}) {
		meta["paymasterParams"] = map[string]interface{}{
			"paymaster":      tx.Paymaster,
			"paymasterInput": byteList(tx.PaymasterInput),
		}
	}

	args := map[string]interface{}{
		"from":       tx.From,
		"to":         tx.To,
		"data":       hexutil.Bytes(tx.Data),
		"type":       hexutil.Uint64(eip712.TxType),
		"eip712Meta": meta,
	}
	if tx.Value != nil {
		args["value"] = (*hexutil.Big)(tx.Value)
	}
	return args
}

func gasPerPubdata(tx *eip712.Transaction) *big.Int {
	if tx.GasPerPubdataByteLimit == nil {
		return big.NewInt(eip712.DefaultGasPerPubdata)
	}
	return tx.GasPerPubdataByteLimit
}

func byteList(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
