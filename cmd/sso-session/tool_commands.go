package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/session"
	"github.com/0xmhha/sso-session/pkg/signer"
)

// hashCommand prints the session hash of a session config.
type hashCommand struct {
	file string
	in   io.Reader
	out  io.Writer
}

func parseHashCommand(args []string) (*hashCommand, error) {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: sso-session hash <config.json | ->")
	}

	return &hashCommand{file: fs.Arg(0), in: os.Stdin, out: os.Stdout}, nil
}

// runHashCommand runs the hash command.
func runHashCommand(args []string) error {
	cmd, err := parseHashCommand(args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// Execute runs the hash command.
func (c *hashCommand) Execute() error {
	spec, err := readSessionConfig(c.file, c.in)
	if err != nil {
		return err
	}

	hash, err := session.Hash(spec)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.out, hash.Hex())
	return err
}

// encodeCommand prints either the session validator install parameters or
// the validator data of a session transaction.
type encodeCommand struct {
	file      string
	install   bool
	to        string
	data      string
	timestamp string
	in        io.Reader
	out       io.Writer
}

func parseEncodeCommand(args []string) (*encodeCommand, error) {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	install := fs.Bool("install", false, "encode session validator install parameters")
	to := fs.String("to", "", "transaction target address")
	data := fs.String("data", "", "transaction call data (0x-prefixed)")
	timestamp := fs.String("timestamp", "", "unix timestamp for period IDs (default: now)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: sso-session encode [-install | -to <addr> [-data <hex>]] <config.json | ->")
	}
	if !*install && *to == "" {
		return nil, fmt.Errorf("either -install or -to is required")
	}

	return &encodeCommand{
		file:      fs.Arg(0),
		install:   *install,
		to:        *to,
		data:      *data,
		timestamp: *timestamp,
		in:        os.Stdin,
		out:       os.Stdout,
	}, nil
}

// runEncodeCommand runs the encode command.
func runEncodeCommand(args []string) error {
	cmd, err := parseEncodeCommand(args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// Execute runs the encode command.
func (c *encodeCommand) Execute() error {
	spec, err := readSessionConfig(c.file, c.in)
	if err != nil {
		return err
	}

	var encoded []byte
	if c.install {
		encoded, err = abicodec.EncodeSessionKeyModuleParameters(spec)
	} else {
		encoded, err = c.encodeTx(spec)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.out, hexutil.Encode(encoded))
	return err
}

func (c *encodeCommand) encodeTx(spec *policy.SessionSpec) ([]byte, error) {
	to, callData, timestamp, err := parseTxTarget(c.to, c.data, c.timestamp)
	if err != nil {
		return nil, err
	}
	return session.EncodeSessionTx(spec, to, callData, timestamp)
}

// periodsCommand prints the period IDs of a session transaction.
type periodsCommand struct {
	file      string
	to        string
	data      string
	timestamp string
	format    string
	in        io.Reader
	out       io.Writer
}

func parsePeriodsCommand(args []string) (*periodsCommand, error) {
	fs := flag.NewFlagSet("periods", flag.ContinueOnError)
	to := fs.String("to", "", "transaction target address")
	data := fs.String("data", "", "transaction call data (0x-prefixed)")
	timestamp := fs.String("timestamp", "", "unix timestamp (default: now)")
	format := fs.String("format", "auto", "output format (auto, table, json, simple)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 || *to == "" {
		return nil, fmt.Errorf("usage: sso-session periods -to <addr> [-data <hex>] [-timestamp <unix>] <config.json | ->")
	}

	return &periodsCommand{
		file:      fs.Arg(0),
		to:        *to,
		data:      *data,
		timestamp: *timestamp,
		format:    *format,
		in:        os.Stdin,
		out:       os.Stdout,
	}, nil
}

// runPeriodsCommand runs the periods command.
func runPeriodsCommand(args []string) error {
	cmd, err := parsePeriodsCommand(args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// Execute runs the periods command.
func (c *periodsCommand) Execute() error {
	formatter, err := newFormatter(c.format, false)
	if err != nil {
		return err
	}

	spec, err := readSessionConfig(c.file, c.in)
	if err != nil {
		return err
	}

	to, callData, timestamp, err := parseTxTarget(c.to, c.data, c.timestamp)
	if err != nil {
		return err
	}

	selector, err := session.Selector(callData)
	if err != nil {
		return err
	}

	ids, err := session.PeriodIDs(spec, to, selector, timestamp)
	if err != nil {
		return err
	}

	return formatter.FormatPeriodIDs(c.out, ids)
}

// signCommand builds the composite session signature for a digest.
type signCommand struct {
	configPath string
	file       string
	key        string
	digest     string
	to         string
	data       string
	timestamp  string
	validator  string
	in         io.Reader
	out        io.Writer
}

func parseSignCommand(configPath string, args []string) (*signCommand, error) {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	key := fs.String("key", "", "session private key (default: $"+privateKeyEnv+")")
	digest := fs.String("digest", "", "transaction digest to sign (0x-prefixed, 32 bytes)")
	to := fs.String("to", "", "transaction target address")
	data := fs.String("data", "", "transaction call data (0x-prefixed)")
	timestamp := fs.String("timestamp", "", "unix timestamp for period IDs (default: now)")
	validator := fs.String("validator", "", "session validator address (default: from config)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 || *digest == "" || *to == "" {
		return nil, fmt.Errorf("usage: sso-session sign -digest <hash> -to <addr> [-data <hex>] [-key <hex>] <config.json | ->")
	}

	return &signCommand{
		configPath: configPath,
		file:       fs.Arg(0),
		key:        *key,
		digest:     *digest,
		to:         *to,
		data:       *data,
		timestamp:  *timestamp,
		validator:  *validator,
		in:         os.Stdin,
		out:        os.Stdout,
	}, nil
}

// runSignCommand runs the sign command.
func runSignCommand(configPath string, args []string) error {
	cmd, err := parseSignCommand(configPath, args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// Execute runs the sign command.
func (c *signCommand) Execute() error {
	validator, err := c.validatorAddress()
	if err != nil {
		return err
	}

	digestBytes, err := parseHexData("digest", c.digest)
	if err != nil {
		return err
	}
	if len(digestBytes) != common.HashLength {
		return fmt.Errorf("-digest: expected %d bytes, got %d", common.HashLength, len(digestBytes))
	}

	key, err := loadSigner(c.key)
	if err != nil {
		return err
	}

	spec, err := readSessionConfig(c.file, c.in)
	if err != nil {
		return err
	}

	to, callData, timestamp, err := parseTxTarget(c.to, c.data, c.timestamp)
	if err != nil {
		return err
	}

	sig, err := signer.BuildSessionSignature(context.Background(),
		common.BytesToHash(digestBytes), to, callData, key, spec, timestamp, validator)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.out, hexutil.Encode(sig))
	return err
}

// validatorAddress returns -validator, or the configured session validator.
func (c *signCommand) validatorAddress() (common.Address, error) {
	if c.validator != "" {
		return parseAddress("validator", c.validator)
	}

	env, err := loadEnvironment(c.configPath)
	if err != nil {
		return common.Address{}, err
	}
	if env.cfg.Contracts.SessionValidator == "" {
		return common.Address{}, fmt.Errorf("session validator address is not configured (-validator)")
	}
	return env.cfg.SessionValidatorAddress(), nil
}

// parseTxTarget parses the -to, -data and -timestamp flags shared by the
// transaction-shaped commands.
func parseTxTarget(to, data, timestamp string) (common.Address, []byte, *uint64, error) {
	target, err := parseAddress("to", to)
	if err != nil {
		return common.Address{}, nil, nil, err
	}
	callData, err := parseHexData("data", data)
	if err != nil {
		return common.Address{}, nil, nil, err
	}
	ts, err := parseTimestamp(timestamp)
	if err != nil {
		return common.Address{}, nil, nil, err
	}
	return target, callData, ts, nil
}
