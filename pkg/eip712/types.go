// Package eip712 models zkSync EIP-712 (type 0x71) transactions: the typed
// data digest signers authorize and the raw wire serialization.
package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxType is the EIP-2718 type byte of zkSync EIP-712 transactions.
const TxType = 0x71

// DefaultGasPerPubdata is used when GasPerPubdataByteLimit is unset.
const DefaultGasPerPubdata = 50000

// Domain constants of the zkSync typed-data domain.
const (
	DomainName    = "zkSync"
	DomainVersion = "2"
)

// Transaction is a zkSync EIP-712 transaction. Nil numeric fields are
// "not yet populated"; Digest and Serialize treat them as zero except
// ChainID, which is required.
type Transaction struct {
	TxType  uint8
	ChainID *big.Int
	From    common.Address
	To      common.Address
	Nonce   *big.Int
	Value   *big.Int
	Data    []byte

	GasLimit               *big.Int
	GasPerPubdataByteLimit *big.Int
	MaxFeePerGas           *big.Int
	MaxPriorityFeePerGas   *big.Int

	// FactoryDeps are raw contract bytecodes; they are hashed with
	// HashBytecode for the digest.
	FactoryDeps [][]byte

	// Paymaster is the zero address when no paymaster is used.
	Paymaster      common.Address
	PaymasterInput []byte

	// CustomSignature is the account-specific signature blob.
	CustomSignature []byte
}

// Copy returns a deep copy of the transaction.
func (tx *Transaction) Copy() *Transaction {
	out := *tx
	out.ChainID = copyInt(tx.ChainID)
	out.Nonce = copyInt(tx.Nonce)
	out.Value = copyInt(tx.Value)
	out.GasLimit = copyInt(tx.GasLimit)
	out.GasPerPubdataByteLimit = copyInt(tx.GasPerPubdataByteLimit)
	out.MaxFeePerGas = copyInt(tx.MaxFeePerGas)
	out.MaxPriorityFeePerGas = copyInt(tx.MaxPriorityFeePerGas)
	out.Data = common.CopyBytes(tx.Data)
	out.PaymasterInput = common.CopyBytes(tx.PaymasterInput)
	out.CustomSignature = common.CopyBytes(tx.CustomSignature)
	if tx.FactoryDeps != nil {
		out.FactoryDeps = make([][]byte, len(tx.FactoryDeps))
		for i, dep := range tx.FactoryDeps {
			out.FactoryDeps[i] = common.CopyBytes(dep)
		}
	}
	return &out
}

func (tx *Transaction) txType() uint8 {
	if tx.TxType == 0 {
		return TxType
	}
	return tx.TxType
}

func (tx *Transaction) gasPerPubdata() *big.Int {
	if tx.GasPerPubdataByteLimit == nil {
		return big.NewInt(DefaultGasPerPubdata)
	}
	return tx.GasPerPubdataByteLimit
}

func (tx *Transaction) hasPaymaster() bool {
	return tx.Paymaster != (common.Address{})
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
