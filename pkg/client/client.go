package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/0xmhha/sso-session/pkg/eip712"
	"github.com/0xmhha/sso-session/pkg/logger"
	"github.com/0xmhha/sso-session/pkg/metrics"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/provider"
	"github.com/0xmhha/sso-session/pkg/signer"
)

// Client sends transactions from one account with one authorizer.
type Client struct {
	config     Config
	provider   provider.Provider
	account    common.Address
	authorizer signer.Authorizer
	kind       string
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// New creates a client for account. m may be nil.
func New(cfg Config, p provider.Provider, account common.Address, auth signer.Authorizer, m *metrics.Metrics, log logger.Logger) *Client {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}

	return &Client{
		config:     cfg,
		provider:   p,
		account:    account,
		authorizer: auth,
		kind:       authorizerKind(auth),
		metrics:    m,
		logger:     log.With("account", account.Hex()),
	}
}

// NewSessionClient creates a client that signs with sessionKey under spec.
// On the local devnet period IDs use the node's block time.
func NewSessionClient(
	cfg Config,
	p provider.Provider,
	account common.Address,
	sessionKey signer.Signer,
	spec *policy.SessionSpec,
	m *metrics.Metrics,
	log logger.Logger,
) *Client {
	auth := &signer.SessionAuthorizer{
		Spec:       spec,
		SessionKey: sessionKey,
		Validator:  cfg.SessionValidator,
		Timestamps: p,
	}
	return New(cfg, p, account, auth, m, log)
}

// Account returns the sending account.
func (c *Client) Account() common.Address { return c.account }

// SendTransaction populates, signs, broadcasts and confirms tx. tx itself is
// not modified.
func (c *Client) SendTransaction(ctx context.Context, tx *eip712.Transaction) (*types.Receipt, error) {
	start := time.Now()

	receipt, hash, err := c.send(ctx, tx.Copy())
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, ErrTransactionReverted) {
			outcome = metrics.OutcomeReverted
		}
		c.metrics.RecordTransaction(c.kind, outcome, time.Since(start))
		c.transition(StateFailed, hash)
		c.logger.Error("transaction failed", "hash", hash.Hex(), "error", err)
		return receipt, err
	}

	c.metrics.RecordTransaction(c.kind, metrics.OutcomeConfirmed, time.Since(start))
	c.transition(StateConfirmed, hash)
	c.logger.Info("transaction confirmed",
		"hash", hash.Hex(),
		"block", receipt.BlockNumber,
		"gas_used", receipt.GasUsed)

	return receipt, nil
}

func (c *Client) send(ctx context.Context, tx *eip712.Transaction) (*types.Receipt, common.Hash, error) {
	if c.authorizer == nil {
		return nil, common.Hash{}, ErrMissingAuthorizer
	}

	c.transition(StateBuilding, common.Hash{})

	tx.From = c.account
	if tx.TxType == 0 {
		tx.TxType = eip712.TxType
	}

	if len(tx.CustomSignature) == 0 {
		placeholder, err := c.authorizer.Placeholder(ctx, tx)
		if err != nil {
			return nil, common.Hash{}, fmt.Errorf("failed to build placeholder signature: %w", err)
		}
		tx.CustomSignature = placeholder
		c.metrics.RecordSignature(c.kind, "placeholder")
	}

	if err := c.populate(ctx, tx); err != nil {
		return nil, common.Hash{}, err
	}

	c.transition(StateEstimatingGas, common.Hash{})

	if tx.GasLimit == nil {
		gas, err := c.provider.EstimateGas(ctx, tx)
		if err != nil {
			return nil, common.Hash{}, err
		}
		tx.GasLimit = gas
	}

	c.transition(StateSigning, common.Hash{})

	digest, err := eip712.Digest(tx)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to compute digest: %w", err)
	}

	sig, err := c.authorizer.Authorize(ctx, digest, tx)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to authorize transaction: %w", err)
	}
	tx.CustomSignature = sig
	c.metrics.RecordSignature(c.kind, "final")

	c.transition(StateBroadcasting, common.Hash{})

	raw, err := eip712.Serialize(tx, nil)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	hash, err := c.provider.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, common.Hash{}, err
	}

	c.logger.Debug("transaction sent",
		"hash", hash.Hex(),
		"nonce", tx.Nonce,
		"gas_limit", tx.GasLimit)

	c.transition(StateAwaitingReceipt, hash)

	receipt, err := c.waitReceipt(ctx, hash)
	if err != nil {
		return nil, hash, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, hash, fmt.Errorf("%w: %s", ErrTransactionReverted, hash.Hex())
	}

	return receipt, hash, nil
}

// populate fills chain ID, nonce and fee fields left unset by the caller.
func (c *Client) populate(ctx context.Context, tx *eip712.Transaction) error {
	if tx.ChainID == nil {
		chainID, err := c.provider.ChainID(ctx)
		if err != nil {
			return err
		}
		tx.ChainID = chainID
	}

	if tx.Nonce == nil {
		nonce, err := c.provider.PendingNonce(ctx, c.account)
		if err != nil {
			return err
		}
		tx.Nonce = nonce
	}

	if tx.MaxFeePerGas == nil {
		price, err := c.provider.GasPrice(ctx)
		if err != nil {
			return err
		}
		tx.MaxFeePerGas = price
	}
	if tx.MaxPriorityFeePerGas == nil {
		tx.MaxPriorityFeePerGas = new(big.Int)
	}
	if tx.GasPerPubdataByteLimit == nil {
		tx.GasPerPubdataByteLimit = big.NewInt(eip712.DefaultGasPerPubdata)
	}
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}

	return nil
}

func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.config.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ReceiptTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.provider.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			return receipt, nil
		case !errors.Is(err, provider.ErrReceiptNotFound):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) transition(state State, hash common.Hash) {
	c.logger.Debug("transaction state", "state", state.String())
	if c.config.Observer != nil {
		c.config.Observer(state, hash)
	}
}

func authorizerKind(auth signer.Authorizer) string {
	switch auth.(type) {
	case *signer.SessionAuthorizer:
		return "session"
	case *signer.OwnerAuthorizer:
		return "owner"
	case *signer.PasskeyAuthorizer:
		return "passkey"
	default:
		return "custom"
	}
}
