package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/client"
	"github.com/0xmhha/sso-session/pkg/deploy"
	"github.com/0xmhha/sso-session/pkg/eip712"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/session"
	"github.com/0xmhha/sso-session/pkg/signer"
	"github.com/0xmhha/sso-session/pkg/store"
)

// sendCommand sends one transaction from a smart account.
type sendCommand struct {
	configPath string
	account    string
	key        string
	session    string
	owner      bool
	to         string
	value      string
	data       string
}

func parseSendCommand(configPath string, args []string) (*sendCommand, error) {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	account := fs.String("account", "", "smart account address (default: from the registry)")
	key := fs.String("key", "", "session or owner private key (default: $"+privateKeyEnv+")")
	sessionRef := fs.String("session", "", "session hash, name or config file")
	owner := fs.Bool("owner", false, "sign as a k1 owner instead of a session key")
	to := fs.String("to", "", "transaction target address")
	value := fs.String("value", "0", "value in wei")
	data := fs.String("data", "", "call data (0x-prefixed)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *to == "" {
		return nil, fmt.Errorf("usage: sso-session send -to <addr> [-value <wei>] [-data <hex>] (-session <ref> | -owner) -account <addr>")
	}
	if *owner == (*sessionRef != "") {
		return nil, fmt.Errorf("exactly one of -session or -owner is required")
	}

	return &sendCommand{
		configPath: configPath,
		account:    *account,
		key:        *key,
		session:    *sessionRef,
		owner:      *owner,
		to:         *to,
		value:      *value,
		data:       *data,
	}, nil
}

// runSendCommand runs the send command.
func runSendCommand(configPath string, args []string) error {
	cmd, err := parseSendCommand(configPath, args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// Execute runs the send command.
func (c *sendCommand) Execute() error {
	to, err := parseAddress("to", c.to)
	if err != nil {
		return err
	}
	value, err := parseAmount("value", c.value)
	if err != nil {
		return err
	}
	callData, err := parseHexData("data", c.data)
	if err != nil {
		return err
	}
	key, err := loadSigner(c.key)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(c.configPath)
	if err != nil {
		return err
	}

	account, spec, err := c.resolve(env)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := env.dial(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	var cl *client.Client
	if c.owner {
		cl = client.New(env.clientConfig(), p, account, &signer.OwnerAuthorizer{Owner: key}, env.metrics, env.log)
	} else {
		if key.Address() != spec.Signer {
			return fmt.Errorf("key %s is not the session signer %s", key.Address().Hex(), spec.Signer.Hex())
		}
		cl = client.NewSessionClient(env.clientConfig(), p, account, key, spec, env.metrics, env.log)
	}

	receipt, err := cl.SendTransaction(ctx, &eip712.Transaction{
		To:    to,
		Value: value,
		Data:  callData,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Transaction confirmed: %s (block %s)\n", receipt.TxHash.Hex(), receipt.BlockNumber)
	return nil
}

// resolve determines the sending account and, for session sends, the spec.
func (c *sendCommand) resolve(env *environment) (common.Address, *policy.SessionSpec, error) {
	account := c.account
	var spec *policy.SessionSpec

	if !c.owner {
		st, err := env.openStore()
		if err != nil {
			return common.Address{}, nil, err
		}
		defer func() {
			_ = st.Close() //nolint:errcheck // best effort cleanup
		}()

		rec, s, err := resolveSession(st, c.session)
		if err != nil {
			return common.Address{}, nil, err
		}
		if rec != nil {
			if rec.Revoked() {
				env.log.Warn("session was revoked through this tool", "hash", rec.Hash)
			}
			if account == "" {
				account = rec.Account
			}
		}
		spec = s
	}

	if account == "" {
		return common.Address{}, nil, fmt.Errorf("-account is required")
	}
	addr, err := parseAddress("account", account)
	if err != nil {
		return common.Address{}, nil, err
	}
	return addr, spec, nil
}

// deployCommand deploys a smart account through the account factory.
type deployCommand struct {
	configPath  string
	key         string
	id          string
	owners      string
	sessionFile string
	name        string
	passkeyID   string
	passkeyX    string
	passkeyY    string
	origin      string
}

func parseDeployCommand(configPath string, args []string) (*deployCommand, error) {
	fs := flag.NewFlagSet("deploy", flag.ContinueOnError)
	key := fs.String("key", "", "deployer EOA private key (default: $"+privateKeyEnv+")")
	id := fs.String("id", "", "unique account ID (default: random UUID)")
	owners := fs.String("owner", "", "k1 owner addresses (comma-separated)")
	sessionFile := fs.String("session", "", "initial session config file")
	name := fs.String("name", "", "registry name for the initial session")
	passkeyID := fs.String("passkey-id", "", "passkey credential ID (base64url)")
	passkeyX := fs.String("passkey-x", "", "passkey public key x coordinate (0x-prefixed, 32 bytes)")
	passkeyY := fs.String("passkey-y", "", "passkey public key y coordinate (0x-prefixed, 32 bytes)")
	origin := fs.String("origin", "", "expected WebAuthn origin")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *name != "" && *sessionFile == "" {
		return nil, fmt.Errorf("-name requires -session")
	}

	return &deployCommand{
		configPath:  configPath,
		key:         *key,
		id:          *id,
		owners:      *owners,
		sessionFile: *sessionFile,
		name:        *name,
		passkeyID:   *passkeyID,
		passkeyX:    *passkeyX,
		passkeyY:    *passkeyY,
		origin:      *origin,
	}, nil
}

// runDeployCommand runs the deploy command.
func runDeployCommand(configPath string, args []string) error {
	cmd, err := parseDeployCommand(configPath, args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// Execute runs the deploy command.
func (c *deployCommand) Execute() error {
	key, err := loadSigner(c.key)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(c.configPath)
	if err != nil {
		return err
	}

	params, err := c.params(env)
	if err != nil {
		return err
	}

	// Build once up front so bad input fails before dialing.
	if _, err := deploy.BuildDeployment(env.cfg.AccountFactoryAddress(), params); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := env.dial(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	sender := client.New(env.clientConfig(), p, key.Address(), &signer.OwnerAuthorizer{Owner: key}, env.metrics, env.log)
	result, err := deploy.NewDeployer(env.cfg.AccountFactoryAddress(), sender, env.log).Deploy(ctx, params)
	if err != nil {
		return err
	}

	fmt.Printf("Account deployed: %s\n", result.Address.Hex())
	fmt.Printf("Unique ID:        %s\n", result.UniqueAccountID)
	fmt.Printf("Transaction:      %s\n", result.TxHash.Hex())

	if params.InitialSession != nil {
		return c.register(env, params.InitialSession, result.Address)
	}
	return nil
}

// params assembles deployment parameters from the flags.
func (c *deployCommand) params(env *environment) (deploy.Params, error) {
	owners, err := parseAddressList("owner", c.owners)
	if err != nil {
		return deploy.Params{}, err
	}

	params := deploy.Params{
		UniqueAccountID: c.id,
		K1Owners:        owners,
	}

	if c.sessionFile != "" {
		spec, err := readSessionConfig(c.sessionFile, os.Stdin)
		if err != nil {
			return deploy.Params{}, err
		}
		params.InitialSession = spec
		params.SessionValidator = env.cfg.SessionValidatorAddress()
	}

	if c.passkeyID != "" {
		x, err := parseHexData("passkey-x", c.passkeyX)
		if err != nil {
			return deploy.Params{}, err
		}
		y, err := parseHexData("passkey-y", c.passkeyY)
		if err != nil {
			return deploy.Params{}, err
		}
		passkey, err := abicodec.NewPasskeyModuleParams(c.passkeyID, x, y, c.origin)
		if err != nil {
			return deploy.Params{}, err
		}
		params.Passkey = &passkey
		params.WebAuthnValidator = env.cfg.WebAuthnValidatorAddress()
	}

	return params, nil
}

// register records the initial session of a freshly deployed account.
func (c *deployCommand) register(env *environment, spec *policy.SessionSpec, account common.Address) error {
	hash, err := session.Hash(spec)
	if err != nil {
		return err
	}
	specJSON, err := policy.MarshalSessionConfig(spec)
	if err != nil {
		return err
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close() //nolint:errcheck // best effort cleanup
	}()

	rec := &store.Record{
		Hash:    hash.Hex(),
		Name:    c.name,
		Account: account.Hex(),
		Spec:    specJSON,
		Source:  store.SourceCreated,
	}
	if err := st.Put(rec); err != nil {
		return fmt.Errorf("account deployed but session registration failed: %w", err)
	}

	fmt.Printf("Session:          %s\n", rec.Hash)
	return nil
}
