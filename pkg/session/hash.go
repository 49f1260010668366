package session

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/policy"
)

// Hash returns keccak256(abi.encode(spec)), the identifier the session
// validator stores the session under. Policy order matters.
func Hash(spec *policy.SessionSpec) (common.Hash, error) {
	if spec == nil {
		return common.Hash{}, ErrMissingSpec
	}

	encoded, err := abicodec.EncodeSessionKeyModuleParameters(spec)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode session spec: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}
