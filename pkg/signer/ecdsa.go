package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeySigner signs with an in-memory secp256k1 key. Signatures are
// deterministic (RFC 6979) for a given key and hash.
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewPrivateKeySigner parses a hex private key, with or without 0x prefix.
func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return fromKey(key), nil
}

// NewPrivateKeySignerFromBytes builds a signer from a raw 32-byte key.
func NewPrivateKeySignerFromBytes(raw [32]byte) (*PrivateKeySigner, error) {
	key, err := crypto.ToECDSA(raw[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return fromKey(key), nil
}

// GenerateKey creates a signer with a fresh random key.
func GenerateKey() (*PrivateKeySigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return fromKey(key), nil
}

func fromKey(key *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address implements Signer.Address.
func (s *PrivateKeySigner) Address() common.Address { return s.address }

// PrivateKeyHex returns the 0x-prefixed private key.
func (s *PrivateKeySigner) PrivateKeyHex() string {
	return "0x" + common.Bytes2Hex(crypto.FromECDSA(s.key))
}

// SignHash implements Signer.SignHash.
func (s *PrivateKeySigner) SignHash(_ context.Context, hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(hash[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	if err := CheckSignature(sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// CheckSignature validates the shape of a 65-byte r||s||v signature.
func CheckSignature(sig []byte) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: length %d", ErrMalformedSignature, len(sig))
	}
	if isZero(sig[:32]) {
		return fmt.Errorf("%w: zero r", ErrMalformedSignature)
	}
	if isZero(sig[32:64]) {
		return fmt.Errorf("%w: zero s", ErrMalformedSignature)
	}
	return nil
}

// Recover returns the address that produced sig over hash. v may be 0/1 or 27/28.
func Recover(hash common.Hash, sig []byte) (common.Address, error) {
	if err := CheckSignature(sig); err != nil {
		return common.Address{}, err
	}

	normalized := common.CopyBytes(sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(hash[:], normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
