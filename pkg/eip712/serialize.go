package eip712

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Serialize returns the raw transaction: 0x71 || rlp(fields).
//
// With a 65-byte EOA signature the (yParity, r, s) slots are filled from it;
// with a nil signature they are (chainId, "", "") and the account is expected
// to verify tx.CustomSignature instead.
func Serialize(tx *Transaction, sig []byte) ([]byte, error) {
	if tx.ChainID == nil {
		return nil, ErrMissingChainID
	}

	fields := []interface{}{
		orZero(tx.Nonce),
		orZero(tx.MaxPriorityFeePerGas),
		orZero(tx.MaxFeePerGas),
		orZero(tx.GasLimit),
		tx.To,
		orZero(tx.Value),
		nonNil(tx.Data),
	}

	if sig != nil {
		if len(sig) != 65 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidSignature, len(sig))
		}
		v := sig[64]
		if v >= 27 {
			v -= 27
		}
		fields = append(fields,
			uint64(v),
			new(big.Int).SetBytes(sig[:32]),
			new(big.Int).SetBytes(sig[32:64]),
		)
	} else {
		fields = append(fields, tx.ChainID, []byte{}, []byte{})
	}

	deps := make([][]byte, len(tx.FactoryDeps))
	copy(deps, tx.FactoryDeps)

	var paymaster []interface{}
	if tx.hasPaymaster() {
		paymaster = []interface{}{tx.Paymaster, nonNil(tx.PaymasterInput)}
	} else {
		paymaster = []interface{}{}
	}

	fields = append(fields,
		tx.ChainID,
		tx.From,
		tx.gasPerPubdata(),
		deps,
		nonNil(tx.CustomSignature),
		paymaster,
	)

	payload, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to rlp-encode transaction: %w", err)
	}

	return append([]byte{tx.txType()}, payload...), nil
}
