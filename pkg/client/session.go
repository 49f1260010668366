package client

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/eip712"
	"github.com/0xmhha/sso-session/pkg/policy"
)

// CreateSession installs spec on the session validator for the client's
// account. The client must be authorized as an owner.
func (c *Client) CreateSession(ctx context.Context, spec *policy.SessionSpec) (*types.Receipt, error) {
	validator, err := c.validator()
	if err != nil {
		return nil, err
	}

	call, err := abicodec.CreateSessionCall(validator, spec)
	if err != nil {
		return nil, err
	}
	return c.SendTransaction(ctx, &eip712.Transaction{To: call.To, Data: call.Data})
}

// RevokeSession closes the session identified by sessionHash.
func (c *Client) RevokeSession(ctx context.Context, sessionHash common.Hash) (*types.Receipt, error) {
	validator, err := c.validator()
	if err != nil {
		return nil, err
	}

	call, err := abicodec.RevokeKeyCall(validator, sessionHash)
	if err != nil {
		return nil, err
	}
	return c.SendTransaction(ctx, &eip712.Transaction{To: call.To, Data: call.Data})
}

// RevokeSessions closes several sessions in one transaction.
func (c *Client) RevokeSessions(ctx context.Context, sessionHashes []common.Hash) (*types.Receipt, error) {
	validator, err := c.validator()
	if err != nil {
		return nil, err
	}

	call, err := abicodec.RevokeKeysCall(validator, sessionHashes)
	if err != nil {
		return nil, err
	}
	return c.SendTransaction(ctx, &eip712.Transaction{To: call.To, Data: call.Data})
}

// SessionState queries the validator for the remaining limits of spec.
func (c *Client) SessionState(ctx context.Context, spec *policy.SessionSpec) (*policy.SessionState, error) {
	validator, err := c.validator()
	if err != nil {
		return nil, err
	}

	call, err := abicodec.SessionStateCall(validator, c.account, spec)
	if err != nil {
		return nil, err
	}

	out, err := c.provider.Call(ctx, call.To, call.Data)
	if err != nil {
		return nil, err
	}

	state, err := abicodec.DecodeSessionState(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return state, nil
}

// SessionStatus queries the validator for the status of sessionHash.
func (c *Client) SessionStatus(ctx context.Context, sessionHash common.Hash) (policy.Status, error) {
	validator, err := c.validator()
	if err != nil {
		return 0, err
	}

	call, err := abicodec.SessionStatusCall(validator, c.account, sessionHash)
	if err != nil {
		return 0, err
	}

	out, err := c.provider.Call(ctx, call.To, call.Data)
	if err != nil {
		return 0, err
	}

	status, err := abicodec.DecodeSessionStatus(out)
	if err != nil {
		return 0, fmt.Errorf("failed to decode session status: %w", err)
	}
	return status, nil
}

func (c *Client) validator() (common.Address, error) {
	if c.config.SessionValidator == (common.Address{}) {
		return common.Address{}, ErrMissingValidator
	}
	return c.config.SessionValidator, nil
}
