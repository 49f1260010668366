package deploy

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/client"
	"github.com/0xmhha/sso-session/pkg/eip712"
	"github.com/0xmhha/sso-session/pkg/logger"
)

// BuildDeployment encodes the factory call for params. The salt is
// keccak256 of the UTF-8 unique account ID.
func BuildDeployment(factory common.Address, params Params) (*Deployment, error) {
	if factory == (common.Address{}) {
		return nil, ErrMissingFactory
	}

	uniqueID := params.UniqueAccountID
	if uniqueID == "" {
		uniqueID = uuid.NewString()
	}

	validators := make([][]byte, 0, 2)

	if params.Passkey != nil {
		if params.WebAuthnValidator == (common.Address{}) {
			return nil, fmt.Errorf("%w: webauthn", ErrMissingValidator)
		}
		passkey, err := abicodec.EncodePasskeyModuleParameters(*params.Passkey)
		if err != nil {
			return nil, err
		}
		module, err := abicodec.EncodeModuleData(abicodec.ModuleData{Address: params.WebAuthnValidator, Parameters: passkey})
		if err != nil {
			return nil, err
		}
		validators = append(validators, module)
	}

	if params.InitialSession != nil {
		if params.SessionValidator == (common.Address{}) {
			return nil, fmt.Errorf("%w: session", ErrMissingValidator)
		}
		session, err := abicodec.EncodeSessionKeyModuleParameters(params.InitialSession)
		if err != nil {
			return nil, err
		}
		module, err := abicodec.EncodeModuleData(abicodec.ModuleData{Address: params.SessionValidator, Parameters: session})
		if err != nil {
			return nil, err
		}
		validators = append(validators, module)
	}

	if len(validators) == 0 && len(params.K1Owners) == 0 {
		return nil, ErrNoOwners
	}

	owners := params.K1Owners
	if owners == nil {
		owners = []common.Address{}
	}

	salt := crypto.Keccak256Hash([]byte(uniqueID))

	call, err := abicodec.DeployProxyAccountCall(factory, salt, uniqueID, validators, owners)
	if err != nil {
		return nil, err
	}

	return &Deployment{
		UniqueAccountID:   uniqueID,
		Salt:              salt,
		InitialValidators: validators,
		K1Owners:          owners,
		Call:              call,
	}, nil
}

// Deployer sends factory calls from an EOA.
type Deployer struct {
	factory common.Address
	sender  *client.Client
	logger  logger.Logger
}

// NewDeployer creates a deployer. sender must be a client whose account is
// an EOA authorized by its own key (signer.OwnerAuthorizer).
func NewDeployer(factory common.Address, sender *client.Client, log logger.Logger) *Deployer {
	return &Deployer{factory: factory, sender: sender, logger: log}
}

// Deploy creates the account and returns its address from the factory's
// AccountCreated event.
func (d *Deployer) Deploy(ctx context.Context, params Params) (*Result, error) {
	deployment, err := BuildDeployment(d.factory, params)
	if err != nil {
		return nil, err
	}

	d.logger.Info("deploying account",
		"unique_id", deployment.UniqueAccountID,
		"factory", d.factory.Hex(),
		"validators", len(deployment.InitialValidators),
		"k1_owners", len(deployment.K1Owners))

	receipt, err := d.sender.SendTransaction(ctx, &eip712.Transaction{
		To:   deployment.Call.To,
		Data: deployment.Call.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy account: %w", err)
	}

	for _, log := range receipt.Logs {
		if log.Address != d.factory {
			continue
		}
		created, err := abicodec.ParseAccountCreated(log)
		if err != nil {
			continue
		}

		d.logger.Info("account deployed",
			"address", created.Account.Hex(),
			"unique_id", created.UniqueAccountID)

		return &Result{
			Address:         created.Account,
			UniqueAccountID: created.UniqueAccountID,
			TxHash:          receipt.TxHash,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrAccountNotCreated, receipt.TxHash.Hex())
}
