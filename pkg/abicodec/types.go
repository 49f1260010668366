// Package abicodec produces the exact ABI encodings the session validator,
// passkey validator and account factory contracts consume.
//
// Encodings are built from the contract interface definitions with
// go-ethereum's accounts/abi packer, never from reflection over policy types,
// so tuple field order always follows the Solidity declarations. The mirror
// structs in this file follow abigen naming so that go-ethereum can map tuple
// components onto them.
package abicodec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SessionLibUsageLimit mirrors SessionLib.UsageLimit.
type SessionLibUsageLimit struct {
	LimitType uint8
	Limit     *big.Int
	Period    *big.Int
}

// SessionLibConstraint mirrors SessionLib.Constraint.
type SessionLibConstraint struct {
	Condition uint8
	Index     uint64
	RefValue  [32]byte
	Limit     SessionLibUsageLimit
}

// SessionLibCallSpec mirrors SessionLib.CallSpec.
type SessionLibCallSpec struct {
	Target         common.Address
	Selector       [4]byte
	MaxValuePerUse *big.Int
	ValueLimit     SessionLibUsageLimit
	Constraints    []SessionLibConstraint
}

// SessionLibTransferSpec mirrors SessionLib.TransferSpec.
type SessionLibTransferSpec struct {
	Target         common.Address
	MaxValuePerUse *big.Int
	ValueLimit     SessionLibUsageLimit
}

// SessionLibSessionSpec mirrors SessionLib.SessionSpec.
type SessionLibSessionSpec struct {
	Signer           common.Address
	ExpiresAt        *big.Int
	FeeLimit         SessionLibUsageLimit
	CallPolicies     []SessionLibCallSpec
	TransferPolicies []SessionLibTransferSpec
}

// SessionLibLimitState mirrors SessionLib.LimitState.
type SessionLibLimitState struct {
	Remaining *big.Int
	Target    common.Address
	Selector  [4]byte
	Index     *big.Int
}

// SessionLibSessionState mirrors SessionLib.SessionState.
type SessionLibSessionState struct {
	Status        uint8
	FeesRemaining *big.Int
	TransferValue []SessionLibLimitState
	CallValue     []SessionLibLimitState
	CallParams    []SessionLibLimitState
}

// PasskeyModuleParams are the install parameters of the WebAuthn validator.
type PasskeyModuleParams struct {
	CredentialID   []byte
	XYPublicKey    [2][32]byte
	ExpectedOrigin string
}

// ModuleData pairs a validator module address with its install parameters.
type ModuleData struct {
	Address    common.Address
	Parameters []byte
}

// SessionSignature is the decoded form of a composite custom signature.
type SessionSignature struct {
	Signature     []byte
	Validator     common.Address
	ValidatorData []byte
}

// Call is an encoded contract call.
type Call struct {
	To   common.Address
	Data []byte
}
