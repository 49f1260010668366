package session

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/policy"
)

// Selector extracts the function selector from call data. Empty call data is
// a plain transfer and yields nil.
func Selector(callData []byte) (*[4]byte, error) {
	switch {
	case len(callData) == 0:
		return nil, nil
	case len(callData) < 4:
		return nil, fmt.Errorf("%w: %d bytes", ErrShortCallData, len(callData))
	}

	var sel [4]byte
	copy(sel[:], callData[:4])
	return &sel, nil
}

// EncodeSessionTx builds the validator data for a session transaction:
// abi.encode(spec, periodIds) with period IDs resolved for to and callData.
func EncodeSessionTx(spec *policy.SessionSpec, to common.Address, callData []byte, timestamp *uint64) ([]byte, error) {
	selector, err := Selector(callData)
	if err != nil {
		return nil, err
	}

	periodIDs, err := PeriodIDs(spec, to, selector, timestamp)
	if err != nil {
		return nil, err
	}

	payload, err := abicodec.EncodeSessionTxPayload(spec, periodIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session transaction: %w", err)
	}
	return payload, nil
}
