package abicodec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// NewPasskeyModuleParams builds passkey install parameters from a base64url
// credential ID (padding optional) and the raw P-256 public key coordinates.
// Coordinates must be exactly 32 bytes; nothing is padded or truncated.
func NewPasskeyModuleParams(credentialID string, x, y []byte, expectedOrigin string) (PasskeyModuleParams, error) {
	id, err := decodeCredentialID(credentialID)
	if err != nil {
		return PasskeyModuleParams{}, err
	}

	if len(x) != 32 {
		return PasskeyModuleParams{}, fmt.Errorf("%w: x has %d bytes", ErrInvalidCoordinate, len(x))
	}
	if len(y) != 32 {
		return PasskeyModuleParams{}, fmt.Errorf("%w: y has %d bytes", ErrInvalidCoordinate, len(y))
	}

	params := PasskeyModuleParams{
		CredentialID:   id,
		ExpectedOrigin: expectedOrigin,
	}
	copy(params.XYPublicKey[0][:], x)
	copy(params.XYPublicKey[1][:], y)

	return params, nil
}

// EncodePasskeyModuleParameters ABI-encodes (bytes credentialId,
// bytes32[2] xyPublicKey, string expectedOrigin).
func EncodePasskeyModuleParameters(params PasskeyModuleParams) ([]byte, error) {
	if len(params.CredentialID) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCredentialID)
	}

	data, err := passkeyArgs.Pack(params.CredentialID, params.XYPublicKey, params.ExpectedOrigin)
	if err != nil {
		return nil, fmt.Errorf("failed to encode passkey parameters: %w", err)
	}
	return data, nil
}

// EncodeModuleData ABI-encodes (address module, bytes parameters), the form
// in which the account factory receives each initial validator.
func EncodeModuleData(module ModuleData) ([]byte, error) {
	params := module.Parameters
	if params == nil {
		params = []byte{}
	}

	data, err := moduleDataArgs.Pack(module.Address, params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode module data: %w", err)
	}
	return data, nil
}

func decodeCredentialID(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCredentialID)
	}

	id, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentialID, err)
	}
	return id, nil
}
