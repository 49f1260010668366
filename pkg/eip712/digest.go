package eip712

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var transactionTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	"Transaction": {
		{Name: "txType", Type: "uint256"},
		{Name: "from", Type: "uint256"},
		{Name: "to", Type: "uint256"},
		{Name: "gasLimit", Type: "uint256"},
		{Name: "gasPerPubdataByteLimit", Type: "uint256"},
		{Name: "maxFeePerGas", Type: "uint256"},
		{Name: "maxPriorityFeePerGas", Type: "uint256"},
		{Name: "paymaster", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "factoryDeps", Type: "bytes32[]"},
		{Name: "paymasterInput", Type: "bytes"},
	},
}

// TypedData returns the EIP-712 typed data of tx. Addresses are encoded as
// uint256, as the zkSync bootloader expects.
func TypedData(tx *Transaction) (apitypes.TypedData, error) {
	if tx.ChainID == nil || tx.ChainID.Sign() == 0 {
		return apitypes.TypedData{}, ErrMissingChainID
	}

	deps := make([]interface{}, len(tx.FactoryDeps))
	for i, dep := range tx.FactoryDeps {
		hash, err := HashBytecode(dep)
		if err != nil {
			return apitypes.TypedData{}, fmt.Errorf("factory dep %d: %w", i, err)
		}
		deps[i] = hash.Hex()
	}

	return apitypes.TypedData{
		Types:       transactionTypes,
		PrimaryType: "Transaction",
		Domain: apitypes.TypedDataDomain{
			Name:    DomainName,
			Version: DomainVersion,
			ChainId: (*math.HexOrDecimal256)(new(big.Int).Set(tx.ChainID)),
		},
		Message: apitypes.TypedDataMessage{
			"txType":                 big.NewInt(int64(tx.txType())),
			"from":                   addressInt(tx.From),
			"to":                     addressInt(tx.To),
			"gasLimit":               orZero(tx.GasLimit),
			"gasPerPubdataByteLimit": tx.gasPerPubdata(),
			"maxFeePerGas":           orZero(tx.MaxFeePerGas),
			"maxPriorityFeePerGas":   orZero(tx.MaxPriorityFeePerGas),
			"paymaster":              addressInt(tx.Paymaster),
			"nonce":                  orZero(tx.Nonce),
			"value":                  orZero(tx.Value),
			"data":                   hexutil.Encode(nonNil(tx.Data)),
			"factoryDeps":            deps,
			"paymasterInput":         hexutil.Encode(nonNil(tx.PaymasterInput)),
		},
	}, nil
}

// Digest returns the EIP-712 signing hash of tx.
func Digest(tx *Transaction) (common.Hash, error) {
	typed, err := TypedData(tx)
	if err != nil {
		return common.Hash{}, err
	}

	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return common.BytesToHash(digest), nil
}

func addressInt(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
