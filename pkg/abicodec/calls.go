package abicodec

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/0xmhha/sso-session/pkg/policy"
)

// CreateSessionCall encodes createSession(SessionSpec) on the session validator.
func CreateSessionCall(validator common.Address, spec *policy.SessionSpec) (Call, error) {
	onchain, err := ToOnchain(spec)
	if err != nil {
		return Call{}, err
	}

	data, err := SessionValidatorABI.Pack("createSession", onchain)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode createSession: %w", err)
	}
	return Call{To: validator, Data: data}, nil
}

// RevokeKeyCall encodes revokeKey(bytes32 sessionHash).
func RevokeKeyCall(validator common.Address, sessionHash common.Hash) (Call, error) {
	data, err := SessionValidatorABI.Pack("revokeKey", [32]byte(sessionHash))
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode revokeKey: %w", err)
	}
	return Call{To: validator, Data: data}, nil
}

// RevokeKeysCall encodes revokeKeys(bytes32[] sessionHashes).
func RevokeKeysCall(validator common.Address, sessionHashes []common.Hash) (Call, error) {
	hashes := make([][32]byte, len(sessionHashes))
	for i, h := range sessionHashes {
		hashes[i] = h
	}

	data, err := SessionValidatorABI.Pack("revokeKeys", hashes)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode revokeKeys: %w", err)
	}
	return Call{To: validator, Data: data}, nil
}

// SessionStateCall encodes sessionState(address account, SessionSpec spec).
func SessionStateCall(validator, account common.Address, spec *policy.SessionSpec) (Call, error) {
	onchain, err := ToOnchain(spec)
	if err != nil {
		return Call{}, err
	}

	data, err := SessionValidatorABI.Pack("sessionState", account, onchain)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode sessionState: %w", err)
	}
	return Call{To: validator, Data: data}, nil
}

// SessionStatusCall encodes sessionStatus(address account, bytes32 sessionHash).
func SessionStatusCall(validator, account common.Address, sessionHash common.Hash) (Call, error) {
	data, err := SessionValidatorABI.Pack("sessionStatus", account, [32]byte(sessionHash))
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode sessionStatus: %w", err)
	}
	return Call{To: validator, Data: data}, nil
}

// DecodeSessionState decodes the return data of sessionState.
func DecodeSessionState(data []byte) (*policy.SessionState, error) {
	values, err := SessionValidatorABI.Unpack("sessionState", data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: expected 1 value, got %d", ErrDecode, len(values))
	}

	raw, err := convert[SessionLibSessionState](values[0])
	if err != nil {
		return nil, err
	}

	status, err := policy.StatusFromUint8(raw.Status)
	if err != nil {
		return nil, err
	}

	return &policy.SessionState{
		Status:        status,
		FeesRemaining: copyInt(raw.FeesRemaining),
		TransferValue: limitStates(raw.TransferValue),
		CallValue:     limitStates(raw.CallValue),
		CallParams:    limitStates(raw.CallParams),
	}, nil
}

// DecodeSessionStatus decodes the return data of sessionStatus.
func DecodeSessionStatus(data []byte) (policy.Status, error) {
	values, err := SessionValidatorABI.Unpack("sessionStatus", data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("%w: expected 1 value, got %d", ErrDecode, len(values))
	}

	raw, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: status has type %T", ErrDecode, values[0])
	}
	return policy.StatusFromUint8(raw)
}

// DeployProxyAccountCall encodes deployProxySsoAccount on the account factory.
func DeployProxyAccountCall(
	factory common.Address,
	salt common.Hash,
	uniqueAccountID string,
	initialValidators [][]byte,
	initialK1Owners []common.Address,
) (Call, error) {
	if initialValidators == nil {
		initialValidators = [][]byte{}
	}
	if initialK1Owners == nil {
		initialK1Owners = []common.Address{}
	}

	data, err := AccountFactoryABI.Pack("deployProxySsoAccount",
		[32]byte(salt), uniqueAccountID, initialValidators, initialK1Owners)
	if err != nil {
		return Call{}, fmt.Errorf("failed to encode deployProxySsoAccount: %w", err)
	}
	return Call{To: factory, Data: data}, nil
}

// AccountCreated is the decoded factory deployment event.
type AccountCreated struct {
	Account         common.Address
	UniqueAccountID string
}

// ParseAccountCreated decodes an AccountCreated log emitted by the factory.
func ParseAccountCreated(log *types.Log) (*AccountCreated, error) {
	event := AccountFactoryABI.Events["AccountCreated"]
	if log == nil || len(log.Topics) != 2 || log.Topics[0] != event.ID {
		return nil, ErrUnexpectedLog
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: expected 1 value, got %d", ErrDecode, len(values))
	}
	uniqueID, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: unique id has type %T", ErrDecode, values[0])
	}

	return &AccountCreated{
		Account:         common.BytesToAddress(log.Topics[1].Bytes()),
		UniqueAccountID: uniqueID,
	}, nil
}

func limitStates(in []SessionLibLimitState) []policy.LimitState {
	out := make([]policy.LimitState, len(in))
	for i, s := range in {
		out[i] = policy.LimitState{
			Remaining: copyInt(s.Remaining),
			Target:    s.Target,
			Selector:  s.Selector,
			Index:     copyInt(s.Index),
		}
	}
	return out
}
