package eip712

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// HashBytecode returns the versioned bytecode hash zkSync uses to reference
// factory dependencies: sha256 with the first four bytes replaced by
// version 1, a zero byte and the big-endian word count.
func HashBytecode(bytecode []byte) (common.Hash, error) {
	if len(bytecode)%32 != 0 {
		return common.Hash{}, fmt.Errorf("%w: got %d bytes", ErrBytecodeLength, len(bytecode))
	}

	words := len(bytecode) / 32
	if words%2 == 0 || words >= 1<<16 {
		return common.Hash{}, fmt.Errorf("%w: got %d words", ErrBytecodeWords, words)
	}

	hash := sha256.Sum256(bytecode)
	hash[0] = 1
	hash[1] = 0
	binary.BigEndian.PutUint16(hash[2:4], uint16(words))

	return hash, nil
}
