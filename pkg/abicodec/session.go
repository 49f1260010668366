package abicodec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/policy"
)

// ToOnchain converts a spec into the session validator's struct layout.
//
// Nil integers and integers outside uint256 are rejected rather than
// silently zeroed or wrapped.
func ToOnchain(spec *policy.SessionSpec) (SessionLibSessionSpec, error) {
	if spec == nil {
		return SessionLibSessionSpec{}, fmt.Errorf("%w: session spec", ErrMissingValue)
	}

	expiresAt, err := checkUint256("expiresAt", spec.ExpiresAt)
	if err != nil {
		return SessionLibSessionSpec{}, err
	}

	feeLimit, err := limitToOnchain("feeLimit", spec.FeeLimit)
	if err != nil {
		return SessionLibSessionSpec{}, err
	}

	out := SessionLibSessionSpec{
		Signer:           spec.Signer,
		ExpiresAt:        expiresAt,
		FeeLimit:         feeLimit,
		CallPolicies:     make([]SessionLibCallSpec, len(spec.CallPolicies)),
		TransferPolicies: make([]SessionLibTransferSpec, len(spec.TransferPolicies)),
	}

	for i, p := range spec.CallPolicies {
		field := fmt.Sprintf("callPolicies[%d]", i)

		maxValue, err := checkUint256(field+".maxValuePerUse", p.MaxValuePerUse)
		if err != nil {
			return SessionLibSessionSpec{}, err
		}
		valueLimit, err := limitToOnchain(field+".valueLimit", p.ValueLimit)
		if err != nil {
			return SessionLibSessionSpec{}, err
		}

		constraints := make([]SessionLibConstraint, len(p.Constraints))
		for j, c := range p.Constraints {
			limit, err := limitToOnchain(fmt.Sprintf("%s.constraints[%d].limit", field, j), c.Limit)
			if err != nil {
				return SessionLibSessionSpec{}, err
			}
			constraints[j] = SessionLibConstraint{
				Condition: uint8(c.Condition),
				Index:     c.Index,
				RefValue:  c.RefValue,
				Limit:     limit,
			}
		}

		out.CallPolicies[i] = SessionLibCallSpec{
			Target:         p.Target,
			Selector:       p.Selector,
			MaxValuePerUse: maxValue,
			ValueLimit:     valueLimit,
			Constraints:    constraints,
		}
	}

	for i, p := range spec.TransferPolicies {
		field := fmt.Sprintf("transferPolicies[%d]", i)

		maxValue, err := checkUint256(field+".maxValuePerUse", p.MaxValuePerUse)
		if err != nil {
			return SessionLibSessionSpec{}, err
		}
		valueLimit, err := limitToOnchain(field+".valueLimit", p.ValueLimit)
		if err != nil {
			return SessionLibSessionSpec{}, err
		}

		out.TransferPolicies[i] = SessionLibTransferSpec{
			Target:         p.Target,
			MaxValuePerUse: maxValue,
			ValueLimit:     valueLimit,
		}
	}

	return out, nil
}

// FromOnchain converts the session validator's struct layout back into a spec.
// Enum tags outside the contract's range are rejected.
func FromOnchain(in SessionLibSessionSpec) (*policy.SessionSpec, error) {
	feeLimit, err := limitFromOnchain(in.FeeLimit)
	if err != nil {
		return nil, fmt.Errorf("feeLimit: %w", err)
	}

	spec := &policy.SessionSpec{
		Signer:           in.Signer,
		ExpiresAt:        copyInt(in.ExpiresAt),
		FeeLimit:         feeLimit,
		CallPolicies:     make([]policy.CallSpec, len(in.CallPolicies)),
		TransferPolicies: make([]policy.TransferSpec, len(in.TransferPolicies)),
	}

	for i, p := range in.CallPolicies {
		valueLimit, err := limitFromOnchain(p.ValueLimit)
		if err != nil {
			return nil, fmt.Errorf("callPolicies[%d].valueLimit: %w", i, err)
		}

		constraints := make([]policy.Constraint, len(p.Constraints))
		for j, c := range p.Constraints {
			condition, err := policy.ConditionFromUint8(c.Condition)
			if err != nil {
				return nil, fmt.Errorf("callPolicies[%d].constraints[%d]: %w", i, j, err)
			}
			limit, err := limitFromOnchain(c.Limit)
			if err != nil {
				return nil, fmt.Errorf("callPolicies[%d].constraints[%d].limit: %w", i, j, err)
			}
			constraints[j] = policy.Constraint{
				Condition: condition,
				Index:     c.Index,
				RefValue:  c.RefValue,
				Limit:     limit,
			}
		}

		spec.CallPolicies[i] = policy.CallSpec{
			Target:         p.Target,
			Selector:       p.Selector,
			MaxValuePerUse: copyInt(p.MaxValuePerUse),
			ValueLimit:     valueLimit,
			Constraints:    constraints,
		}
	}

	for i, p := range in.TransferPolicies {
		valueLimit, err := limitFromOnchain(p.ValueLimit)
		if err != nil {
			return nil, fmt.Errorf("transferPolicies[%d].valueLimit: %w", i, err)
		}
		spec.TransferPolicies[i] = policy.TransferSpec{
			Target:         p.Target,
			MaxValuePerUse: copyInt(p.MaxValuePerUse),
			ValueLimit:     valueLimit,
		}
	}

	return spec, nil
}

// EncodeSessionKeyModuleParameters ABI-encodes the single-element tuple
// (SessionSpec). The same bytes are the session validator install payload
// and the preimage of the session hash.
func EncodeSessionKeyModuleParameters(spec *policy.SessionSpec) ([]byte, error) {
	onchain, err := ToOnchain(spec)
	if err != nil {
		return nil, err
	}

	data, err := sessionSpecIn.Pack(onchain)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session spec: %w", err)
	}
	return data, nil
}

// DecodeSessionKeyModuleParameters is the inverse of EncodeSessionKeyModuleParameters.
func DecodeSessionKeyModuleParameters(data []byte) (*policy.SessionSpec, error) {
	values, err := sessionSpecIn.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: expected 1 value, got %d", ErrDecode, len(values))
	}

	onchain, err := convert[SessionLibSessionSpec](values[0])
	if err != nil {
		return nil, err
	}
	return FromOnchain(onchain)
}

// EncodeSessionTxPayload ABI-encodes (SessionSpec, uint64[] periodIds), the
// validator data the session validator decodes for every session transaction.
func EncodeSessionTxPayload(spec *policy.SessionSpec, periodIDs []uint64) ([]byte, error) {
	onchain, err := ToOnchain(spec)
	if err != nil {
		return nil, err
	}
	if periodIDs == nil {
		periodIDs = []uint64{}
	}

	data, err := sessionTxArgs.Pack(onchain, periodIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session transaction: %w", err)
	}
	return data, nil
}

// DecodeSessionTxPayload splits validator data back into spec and period IDs.
func DecodeSessionTxPayload(data []byte) (*policy.SessionSpec, []uint64, error) {
	values, err := sessionTxArgs.Unpack(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("%w: expected 2 values, got %d", ErrDecode, len(values))
	}

	onchain, err := convert[SessionLibSessionSpec](values[0])
	if err != nil {
		return nil, nil, err
	}
	periodIDs, ok := values[1].([]uint64)
	if !ok {
		return nil, nil, fmt.Errorf("%w: period ids have type %T", ErrDecode, values[1])
	}

	spec, err := FromOnchain(onchain)
	if err != nil {
		return nil, nil, err
	}
	return spec, periodIDs, nil
}

// EncodeSessionSignature ABI-encodes (bytes signature, address validator,
// bytes validatorData). The validator decodes this positionally.
func EncodeSessionSignature(signature []byte, validator common.Address, validatorData []byte) ([]byte, error) {
	if signature == nil {
		signature = []byte{}
	}
	if validatorData == nil {
		validatorData = []byte{}
	}

	data, err := signatureArgs.Pack(signature, validator, validatorData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature: %w", err)
	}
	return data, nil
}

// DecodeSessionSignature is the inverse of EncodeSessionSignature.
func DecodeSessionSignature(data []byte) (*SessionSignature, error) {
	values, err := signatureArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("%w: expected 3 values, got %d", ErrDecode, len(values))
	}

	sig, ok1 := values[0].([]byte)
	validator, ok2 := values[1].(common.Address)
	validatorData, ok3 := values[2].([]byte)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: unexpected signature layout", ErrDecode)
	}

	return &SessionSignature{Signature: sig, Validator: validator, ValidatorData: validatorData}, nil
}

func limitToOnchain(field string, l policy.UsageLimit) (SessionLibUsageLimit, error) {
	limit, err := checkUint256(field+".limit", l.Limit)
	if err != nil {
		return SessionLibUsageLimit{}, err
	}
	period, err := checkUint256(field+".period", l.Period)
	if err != nil {
		return SessionLibUsageLimit{}, err
	}
	return SessionLibUsageLimit{LimitType: uint8(l.LimitType), Limit: limit, Period: period}, nil
}

func limitFromOnchain(l SessionLibUsageLimit) (policy.UsageLimit, error) {
	limitType, err := policy.LimitTypeFromUint8(l.LimitType)
	if err != nil {
		return policy.UsageLimit{}, err
	}
	return policy.UsageLimit{
		LimitType: limitType,
		Limit:     copyInt(l.Limit),
		Period:    copyInt(l.Period),
	}, nil
}

func checkUint256(field string, v *big.Int) (*big.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingValue, field)
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %s", ErrValueOutOfRange, field)
	}
	return new(big.Int).Set(v), nil
}

// convert maps an unpacked anonymous tuple onto a mirror struct the way
// abigen bindings do. abi.ConvertType panics on layout mismatch, so the panic
// is turned into ErrDecode.
func convert[T any](value interface{}) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	converted, ok := abi.ConvertType(value, new(T)).(*T)
	if !ok {
		return out, fmt.Errorf("%w: unexpected type %T", ErrDecode, value)
	}
	return *converted, nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
