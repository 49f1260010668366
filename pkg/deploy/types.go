// Package deploy creates SSO smart accounts through the account factory,
// optionally installing a passkey and an initial session at deployment.
package deploy

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/policy"
)

// Params describes the account to deploy.
type Params struct {
	// UniqueAccountID identifies the account in the factory. A random UUID
	// is used when empty.
	UniqueAccountID string

	// Passkey, when set, is installed on WebAuthnValidator.
	Passkey           *abicodec.PasskeyModuleParams
	WebAuthnValidator common.Address

	// InitialSession, when set, is installed on SessionValidator.
	InitialSession   *policy.SessionSpec
	SessionValidator common.Address

	// K1Owners are EOA owners of the account.
	K1Owners []common.Address
}

// Deployment is a fully encoded factory call.
type Deployment struct {
	UniqueAccountID   string
	Salt              common.Hash
	InitialValidators [][]byte
	K1Owners          []common.Address
	Call              abicodec.Call
}

// Result is a deployed account.
type Result struct {
	Address         common.Address
	UniqueAccountID string
	TxHash          common.Hash
}
