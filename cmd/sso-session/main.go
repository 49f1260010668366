// Package main provides the sso-session CLI application.
//
// sso-session manages session keys of zkSync SSO smart accounts: it computes
// session hashes and period IDs, signs and sends session-key transactions,
// deploys accounts, keeps a local registry of sessions and monitors their
// remaining limits on chain.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run(args []string) error {
	fs := flag.NewFlagSet("sso-session", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to configuration file")
	showVersion := fs.Bool("version", false, "show version information")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return showUsage()
		}
		return err
	}

	if *showVersion {
		fmt.Printf("sso-session %s\n", version)
		return nil
	}

	args = fs.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	switch command {
	case "hash":
		return runHashCommand(args[1:])
	case "encode":
		return runEncodeCommand(args[1:])
	case "periods":
		return runPeriodsCommand(args[1:])
	case "sign":
		return runSignCommand(*configPath, args[1:])
	case "send":
		return runSendCommand(*configPath, args[1:])
	case "deploy":
		return runDeployCommand(*configPath, args[1:])
	case "session":
		return runSessionCommand(*configPath, args[1:])
	case "watch":
		return runWatchCommand(*configPath, args[1:])
	case "monitor":
		return runMonitorCommand(*configPath, args[1:])
	case "config":
		return runConfigCommand(*configPath, args[1:])
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runSessionCommand runs the session command.
func runSessionCommand(configPath string, args []string) error {
	cmd := &sessionCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string) error {
	cmd := &configCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// showUsage displays usage information.
func showUsage() error {
	usage := `sso-session - session key tooling for zkSync SSO smart accounts

Usage:
  sso-session [flags] <command> [command flags]

Commands:
  hash        Compute the session hash of a session config
  encode      Encode session install parameters or transaction validator data
  periods     Compute the period IDs a session transaction must carry
  sign        Build a session-key signature for a transaction digest
  send        Send a transaction as a session key or account owner
  deploy      Deploy a new SSO smart account
  session     Session management (create, revoke, state, status, list, show, name, delete, import)
  watch       Import session configs from a directory as they change
  monitor     Poll on-chain state of registered sessions
  config      Configuration management (show, path, reset)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Examples:
  # Compute a session hash
  sso-session hash session.json

  # Period IDs for an ERC-20 transfer
  sso-session periods -to 0x... -data 0xa9059cbb... session.json

  # Send 1000 wei as a session key
  sso-session send -account 0x... -key 0x... -session trading-bot -to 0x... -value 1000

  # Deploy an account with one owner and an initial session
  sso-session deploy -key 0x... -owner 0x... -session session.json -name trading-bot

  # Install a session on an existing account
  sso-session session create -account 0x... -key 0x... -name trading-bot session.json

  # Show remaining limits
  sso-session session state trading-bot

  # Poll every registered session
  sso-session monitor -refresh 10s

  # Import configs dropped into a directory
  sso-session watch -dir ~/sessions

Environment:
  SSO_CONFIG              Configuration file path
  SSO_RPC_URL             Node JSON-RPC endpoint
  SSO_CHAIN_ID            Expected chain ID
  SSO_DB                  Registry database path
  SSO_REDIS_ADDR          Use the Redis registry at this address
  SSO_LOG_LEVEL           Log level (debug, info, warn, error)
  SSO_SESSION_VALIDATOR   Session validator address
  SSO_PRIVATE_KEY         Default for -key flags

Version: %s
`

	fmt.Printf(usage, version)
	return nil
}
