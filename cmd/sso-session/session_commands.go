package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/client"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/session"
	"github.com/0xmhha/sso-session/pkg/signer"
	"github.com/0xmhha/sso-session/pkg/store"
)

// sessionCommand handles session management subcommands.
type sessionCommand struct {
	configPath string
}

// Execute runs the session command.
func (c *sessionCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "create":
		return c.runCreate(subargs)
	case "revoke":
		return c.runRevoke(subargs)
	case "state":
		return c.runState(subargs)
	case "status":
		return c.runStatus(subargs)
	case "list":
		return c.runList(subargs)
	case "show":
		return c.runShow(subargs)
	case "name":
		return c.runName(subargs)
	case "delete":
		return c.runDelete(subargs)
	case "import":
		return c.runImport(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown session subcommand: %s", subcommand)
	}
}

// createArgs holds parsed arguments for the create subcommand.
type createArgs struct {
	file     string
	account  string
	key      string
	name     string
	calldata bool
}

func parseCreateArgs(args []string) (*createArgs, error) {
	fs := flag.NewFlagSet("session create", flag.ContinueOnError)
	account := fs.String("account", "", "smart account address")
	key := fs.String("key", "", "account owner private key (default: $"+privateKeyEnv+")")
	name := fs.String("name", "", "registry name for the session")
	calldata := fs.Bool("calldata", false, "print createSession call data instead of sending")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: sso-session session create -account <addr> [-key <hex>] [-name <name>] <config.json>")
	}
	if !*calldata && *account == "" {
		return nil, fmt.Errorf("-account is required")
	}

	return &createArgs{
		file:     fs.Arg(0),
		account:  *account,
		key:      *key,
		name:     strings.TrimSpace(*name),
		calldata: *calldata,
	}, nil
}

// runCreate installs a session on an account and records it.
func (c *sessionCommand) runCreate(args []string) error {
	a, err := parseCreateArgs(args)
	if err != nil {
		return err
	}

	spec, err := readSessionConfig(a.file, os.Stdin)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(c.configPath)
	if err != nil {
		return err
	}

	if a.calldata {
		call, err := abicodec.CreateSessionCall(env.cfg.SessionValidatorAddress(), spec)
		if err != nil {
			return err
		}
		fmt.Printf("to:   %s\n", call.To.Hex())
		fmt.Printf("data: %s\n", hexutil.Encode(call.Data))
		return nil
	}

	account, err := parseAddress("account", a.account)
	if err != nil {
		return err
	}
	owner, err := loadSigner(a.key)
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

	// Reject a taken name before spending gas.
	hash, err := session.Hash(spec)
	if err != nil {
		return err
	}
	if a.name != "" {
		if existing, err := st.GetByName(a.name); err == nil && existing.Hash != hash.Hex() {
			return fmt.Errorf("%w: %s", store.ErrNameConflict, a.name)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := env.dial(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	cl := client.New(env.clientConfig(), p, account, &signer.OwnerAuthorizer{Owner: owner}, env.metrics, env.log)
	receipt, err := cl.CreateSession(ctx, spec)
	if err != nil {
		return err
	}

	specJSON, err := policy.MarshalSessionConfig(spec)
	if err != nil {
		return err
	}
	if err := st.Put(&store.Record{
		Hash:    hash.Hex(),
		Name:    a.name,
		Account: account.Hex(),
		Spec:    specJSON,
		Source:  store.SourceCreated,
	}); err != nil {
		return fmt.Errorf("session created but registration failed: %w", err)
	}

	fmt.Printf("Created session %s (tx %s)\n", hash.Hex(), receipt.TxHash.Hex())
	return nil
}

// revokeArgs holds parsed arguments for the revoke subcommand.
type revokeArgs struct {
	refs    []string
	account string
	key     string
}

func parseRevokeArgs(args []string) (*revokeArgs, error) {
	fs := flag.NewFlagSet("session revoke", flag.ContinueOnError)
	account := fs.String("account", "", "smart account address (default: from the registry)")
	key := fs.String("key", "", "account owner private key (default: $"+privateKeyEnv+")")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		return nil, fmt.Errorf("usage: sso-session session revoke [-account <addr>] [-key <hex>] <hash|name>...")
	}

	return &revokeArgs{refs: fs.Args(), account: *account, key: *key}, nil
}

// runRevoke closes one or more sessions on chain.
func (c *sessionCommand) runRevoke(args []string) error {
	a, err := parseRevokeArgs(args)
	if err != nil {
		return err
	}
	owner, err := loadSigner(a.key)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(c.configPath)
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

	account := a.account
	hashes := make([]common.Hash, 0, len(a.refs))
	for _, ref := range a.refs {
		hash, rec, err := refHash(st, ref)
		if err != nil {
			return err
		}
		if rec != nil && account == "" {
			account = rec.Account
		}
		hashes = append(hashes, hash)
	}

	addr, err := parseAddress("account", account)
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

	cl := client.New(env.clientConfig(), p, addr, &signer.OwnerAuthorizer{Owner: owner}, env.metrics, env.log)

	if len(hashes) == 1 {
		_, err = cl.RevokeSession(ctx, hashes[0])
	} else {
		_, err = cl.RevokeSessions(ctx, hashes)
	}
	if err != nil {
		return err
	}

	now := time.Now()
	for _, h := range hashes {
		if err := st.MarkRevoked(h.Hex(), now); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
			env.log.Warn("failed to mark session revoked", "hash", h.Hex(), "error", err)
		}
		fmt.Printf("Revoked session %s\n", h.Hex())
	}
	return nil
}

// refHash resolves a hash or registry name to a session hash. Unknown
// hashes are accepted as is.
func refHash(st store.Store, ref string) (common.Hash, *store.Record, error) {
	rec, err := lookupRecord(st, ref)
	if err == nil {
		return common.HexToHash(rec.Hash), rec, nil
	}
	if !errors.Is(err, store.ErrSessionNotFound) {
		return common.Hash{}, nil, err
	}

	normalized, nerr := store.NormalizeHash(ref)
	if nerr != nil {
		return common.Hash{}, nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, ref)
	}
	return common.HexToHash(normalized), nil, nil
}

// queryArgs holds parsed arguments for the state and status subcommands.
type queryArgs struct {
	ref     string
	account string
	format  string
}

func parseQueryArgs(name string, args []string) (*queryArgs, error) {
	fs := flag.NewFlagSet("session "+name, flag.ContinueOnError)
	account := fs.String("account", "", "smart account address (default: from the registry)")
	format := fs.String("format", "", "output format (auto, table, json, simple)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: sso-session session %s [-account <addr>] <hash|name|config.json>", name)
	}

	return &queryArgs{ref: fs.Arg(0), account: *account, format: *format}, nil
}

// runState shows the remaining limits of a session.
func (c *sessionCommand) runState(args []string) error {
	a, err := parseQueryArgs("state", args)
	if err != nil {
		return err
	}

	return c.query(a, func(ctx context.Context, env *environment, cl *client.Client, hash common.Hash, spec *policy.SessionSpec) error {
		formatter, err := env.formatter(a.format, false)
		if err != nil {
			return err
		}

		state, err := cl.SessionState(ctx, spec)
		if err != nil {
			return err
		}
		return formatter.FormatState(os.Stdout, hash.Hex(), state)
	})
}

// runStatus shows the lifecycle status of a session.
func (c *sessionCommand) runStatus(args []string) error {
	a, err := parseQueryArgs("status", args)
	if err != nil {
		return err
	}

	return c.query(a, func(ctx context.Context, _ *environment, cl *client.Client, hash common.Hash, _ *policy.SessionSpec) error {
		status, err := cl.SessionStatus(ctx, hash)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", hash.Hex(), status)
		return nil
	})
}

// query resolves a session, dials the node and runs fn with a read-only
// client bound to the session's account.
func (c *sessionCommand) query(
	a *queryArgs,
	fn func(ctx context.Context, env *environment, cl *client.Client, hash common.Hash, spec *policy.SessionSpec) error,
) error {
	env, err := loadEnvironment(c.configPath)
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

	rec, spec, err := resolveSession(st, a.ref)
	if err != nil {
		return err
	}

	account := a.account
	if account == "" && rec != nil {
		account = rec.Account
	}
	addr, err := parseAddress("account", account)
	if err != nil {
		return err
	}

	hash, err := session.Hash(spec)
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

	cl := client.New(env.clientConfig(), p, addr, nil, env.metrics, env.log)
	return fn(ctx, env, cl, hash, spec)
}

// runList lists registered sessions.
func (c *sessionCommand) runList(args []string) error {
	fs := flag.NewFlagSet("session list", flag.ContinueOnError)
	format := fs.String("format", "", "output format (auto, table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return c.withStore(func(env *environment, st store.Store) error {
		formatter, err := env.formatter(*format, *compact)
		if err != nil {
			return err
		}

		records, err := st.List()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		return formatter.FormatRecords(os.Stdout, records)
	})
}

// runShow shows one registered session including its config.
func (c *sessionCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("session show", flag.ContinueOnError)
	format := fs.String("format", "", "output format (auto, table, json, simple)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sso-session session show <hash|name>")
	}

	return c.withStore(func(env *environment, st store.Store) error {
		formatter, err := env.formatter(*format, false)
		if err != nil {
			return err
		}

		rec, err := lookupRecord(st, fs.Arg(0))
		if err != nil {
			return err
		}
		return formatter.FormatRecord(os.Stdout, rec)
	})
}

// runName assigns a name to a registered session.
func (c *sessionCommand) runName(args []string) error {
	fs := flag.NewFlagSet("session name", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: sso-session session name <hash|name> <new-name>")
	}

	name := strings.TrimSpace(fs.Arg(1))
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	return c.withStore(func(_ *environment, st store.Store) error {
		rec, err := lookupRecord(st, fs.Arg(0))
		if err != nil {
			return err
		}
		if err := st.SetName(rec.Hash, name); err != nil {
			return fmt.Errorf("failed to name session: %w", err)
		}
		fmt.Printf("Named session %s '%s'\n", shortHash(rec.Hash), name)
		return nil
	})
}

// runDelete removes a session from the registry. The on-chain session is
// untouched.
func (c *sessionCommand) runDelete(args []string) error {
	fs := flag.NewFlagSet("session delete", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sso-session session delete <hash|name>")
	}

	return c.withStore(func(_ *environment, st store.Store) error {
		rec, err := lookupRecord(st, fs.Arg(0))
		if err != nil {
			return err
		}
		if err := st.Delete(rec.Hash); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		fmt.Printf("Deleted session %s\n", shortHash(rec.Hash))
		return nil
	})
}

// importArgs holds parsed arguments for the import subcommand.
type importArgs struct {
	files   []string
	account string
	name    string
}

func parseImportArgs(args []string) (*importArgs, error) {
	fs := flag.NewFlagSet("session import", flag.ContinueOnError)
	account := fs.String("account", "", "smart account the sessions belong to")
	name := fs.String("name", "", "registry name (single file only)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		return nil, fmt.Errorf("usage: sso-session session import [-account <addr>] [-name <name>] <config.json>...")
	}
	if *name != "" && fs.NArg() > 1 {
		return nil, fmt.Errorf("-name can only be used with a single file")
	}
	if *account != "" && !common.IsHexAddress(*account) {
		return nil, fmt.Errorf("-account: invalid address %q", *account)
	}

	return &importArgs{files: fs.Args(), account: *account, name: strings.TrimSpace(*name)}, nil
}

// runImport records existing session configs without touching the chain.
func (c *sessionCommand) runImport(args []string) error {
	a, err := parseImportArgs(args)
	if err != nil {
		return err
	}

	return c.withStore(func(_ *environment, st store.Store) error {
		for _, file := range a.files {
			rec, err := importFile(st, file, a.account, a.name)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(file), err)
			}
			fmt.Printf("Imported session %s from %s\n", rec.Hash, file)
		}
		return nil
	})
}

// importFile records one session config file.
func importFile(st store.Store, file, account, name string) (*store.Record, error) {
	spec, err := policy.LoadSessionConfigFile(file)
	if err != nil {
		return nil, err
	}
	hash, err := session.Hash(spec)
	if err != nil {
		return nil, err
	}
	specJSON, err := policy.MarshalSessionConfig(spec)
	if err != nil {
		return nil, err
	}

	rec := &store.Record{
		Hash:    hash.Hex(),
		Name:    name,
		Account: account,
		Spec:    specJSON,
		Source:  store.SourceImported,
	}

	if existing, err := st.Get(rec.Hash); err == nil {
		if rec.Name == "" {
			rec.Name = existing.Name
		}
		if rec.Account == "" {
			rec.Account = existing.Account
		}
		rec.RevokedAt = existing.RevokedAt
	}

	if err := st.Put(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// withStore loads the environment, opens the registry and runs fn.
func (c *sessionCommand) withStore(fn func(env *environment, st store.Store) error) error {
	env, err := loadEnvironment(c.configPath)
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

	return fn(env, st)
}

// shortHash abbreviates a session hash for messages.
func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:10] + "..." + hash[len(hash)-4:]
}

// showHelp displays help for session command.
func (c *sessionCommand) showHelp() error {
	help := `Session - Session key management

Usage:
  sso-session session <subcommand> [flags]

Subcommands:
  create    Install a session on an account and register it
  revoke    Revoke one or more sessions
  state     Show remaining limits of a session
  status    Show whether a session is active, closed or unknown
  list      List registered sessions
  show      Show a registered session and its config
  name      Assign a name to a registered session
  delete    Remove a session from the registry (on-chain state untouched)
  import    Register existing session config files

Create Flags:
  -account   Smart account address
  -key       Account owner private key (default: $SSO_PRIVATE_KEY)
  -name      Registry name for the session
  -calldata  Print createSession call data instead of sending

Revoke Flags:
  -account   Smart account address (default: from the registry)
  -key       Account owner private key (default: $SSO_PRIVATE_KEY)

State/Status Flags:
  -account   Smart account address (default: from the registry)
  -format    Output format (auto, table, json, simple)

Import Flags:
  -account   Smart account the sessions belong to
  -name      Registry name (single file only)

Examples:
  # Create and name a session
  sso-session session create -account 0x... -key 0x... -name trading-bot session.json

  # Remaining limits
  sso-session session state trading-bot

  # Revoke two sessions in one transaction
  sso-session session revoke trading-bot 0xc424...

  # Registry management
  sso-session session list
  sso-session session show trading-bot
  sso-session session name 0xc424... trading-bot
  sso-session session delete trading-bot
  sso-session session import -account 0x... session.json
`
	fmt.Print(help)
	return nil
}
