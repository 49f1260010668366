package main

import (
	"bytes"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/display"
	"github.com/0xmhha/sso-session/pkg/logger"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/session"
	"github.com/0xmhha/sso-session/pkg/store"
)

const (
	goldenConfig = `{
  "signer": "0x9BbC92a33F193174bf6Cc09c4b4055500d972479",
  "expiresAt": "1749040108",
  "feeLimit": {"limitType": 1, "limit": "100000000000000000", "period": "0"},
  "callPolicies": [],
  "transferPolicies": [{
    "target": "0xdeBbD4CE2Bd6BD869D3ac93666A0D5F4fc06FC72",
    "maxValuePerUse": "10000000000000000",
    "valueLimit": {"limitType": 0, "limit": "0", "period": "0"}
  }]
}`
	goldenHash = "0xc424e4a2319b9e449d85c13d6511e63eb383fb975dc68a96d5d7fcdcbbce675a"

	richKey     = "0x7726827caac94a7f9e1b160f7ea819f172f7b6f9d2a97f992c38edeab82d4110"
	testAccount = "0x36615Cf349d7F6344891B1e7CA7C72883F5dc049"
	testTarget  = "0xdeBbD4CE2Bd6BD869D3ac93666A0D5F4fc06FC72"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(goldenConfig), 0600); err != nil {
		t.Fatalf("failed to write session config: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewBolt(store.Config{
		DBPath: filepath.Join(t.TempDir(), "sessions.db"),
	}, logger.Noop())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// TestRun tests global flag handling and command dispatch.
func TestRun(t *testing.T) {
	if err := run([]string{"-version"}); err != nil {
		t.Errorf("run(-version) error = %v", err)
	}
	if err := run([]string{"help"}); err != nil {
		t.Errorf("run(help) error = %v", err)
	}

	err := run([]string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("run(bogus) error = %v, want unknown command", err)
	}

	if err := run([]string{"-nope"}); err == nil {
		t.Error("run(-nope) should fail")
	}
}

// TestHashCommand tests session hash output from a file and stdin.
func TestHashCommand(t *testing.T) {
	path := writeConfig(t)

	tests := []struct {
		name string
		file string
		in   string
	}{
		{"file", path, ""},
		{"stdin", "-", goldenConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseHashCommand([]string{tt.file})
			if err != nil {
				t.Fatalf("parseHashCommand() error = %v", err)
			}

			var out bytes.Buffer
			cmd.in = strings.NewReader(tt.in)
			cmd.out = &out

			if err := cmd.Execute(); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got := strings.TrimSpace(out.String()); got != goldenHash {
				t.Errorf("hash = %s, want %s", got, goldenHash)
			}
		})
	}
}

// TestHashCommandErrors tests argument and config validation.
func TestHashCommandErrors(t *testing.T) {
	if _, err := parseHashCommand(nil); err == nil {
		t.Error("expected usage error without a file")
	}

	cmd, err := parseHashCommand([]string{"-"})
	if err != nil {
		t.Fatalf("parseHashCommand() error = %v", err)
	}
	cmd.in = strings.NewReader(`{"signer": "0x01", "unknown": true}`)
	cmd.out = &bytes.Buffer{}
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for invalid session config")
	}
}

// TestEncodeCommand tests install parameter and validator data encoding.
func TestEncodeCommand(t *testing.T) {
	path := writeConfig(t)
	spec, err := policy.LoadSessionConfigFile(path)
	if err != nil {
		t.Fatalf("LoadSessionConfigFile() error = %v", err)
	}

	t.Run("install", func(t *testing.T) {
		cmd, err := parseEncodeCommand([]string{"-install", path})
		if err != nil {
			t.Fatalf("parseEncodeCommand() error = %v", err)
		}
		var out bytes.Buffer
		cmd.out = &out

		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		want, err := abicodec.EncodeSessionKeyModuleParameters(spec)
		if err != nil {
			t.Fatalf("EncodeSessionKeyModuleParameters() error = %v", err)
		}
		if got := strings.TrimSpace(out.String()); got != hexutil.Encode(want) {
			t.Errorf("install parameters mismatch")
		}
	})

	t.Run("transfer", func(t *testing.T) {
		cmd, err := parseEncodeCommand([]string{"-to", testTarget, "-timestamp", "1700000000", path})
		if err != nil {
			t.Fatalf("parseEncodeCommand() error = %v", err)
		}
		var out bytes.Buffer
		cmd.out = &out

		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		ts := uint64(1700000000)
		want, err := session.EncodeSessionTx(spec, common.HexToAddress(testTarget), nil, &ts)
		if err != nil {
			t.Fatalf("EncodeSessionTx() error = %v", err)
		}
		if got := strings.TrimSpace(out.String()); got != hexutil.Encode(want) {
			t.Errorf("validator data mismatch")
		}
	})

	t.Run("no policy", func(t *testing.T) {
		other := "0x1111111111111111111111111111111111111111"
		cmd, err := parseEncodeCommand([]string{"-to", other, path})
		if err != nil {
			t.Fatalf("parseEncodeCommand() error = %v", err)
		}
		cmd.out = &bytes.Buffer{}
		if err := cmd.Execute(); err == nil {
			t.Error("expected error for a target without a policy")
		}
	})

	if _, err := parseEncodeCommand([]string{path}); err == nil {
		t.Error("expected error without -install or -to")
	}
}

// TestPeriodsCommand tests period ID output.
func TestPeriodsCommand(t *testing.T) {
	path := writeConfig(t)

	cmd, err := parsePeriodsCommand([]string{"-to", testTarget, "-timestamp", "1700000000", "-format", "simple", path})
	if err != nil {
		t.Fatalf("parsePeriodsCommand() error = %v", err)
	}

	var out bytes.Buffer
	cmd.out = &out
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	spec, err := policy.LoadSessionConfigFile(path)
	if err != nil {
		t.Fatalf("LoadSessionConfigFile() error = %v", err)
	}
	ts := uint64(1700000000)
	ids, err := session.PeriodIDs(spec, common.HexToAddress(testTarget), nil, &ts)
	if err != nil {
		t.Fatalf("PeriodIDs() error = %v", err)
	}

	var want bytes.Buffer
	if err := display.New(display.Config{Format: display.FormatSimple}).FormatPeriodIDs(&want, ids); err != nil {
		t.Fatalf("FormatPeriodIDs() error = %v", err)
	}
	if out.String() != want.String() {
		t.Errorf("output = %q, want %q", out.String(), want.String())
	}
}

// TestPeriodsCommandFlags tests periods flag validation.
func TestPeriodsCommandFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"missing target", []string{"session.json"}, true},
		{"missing file", []string{"-to", testTarget}, true},
		{"valid", []string{"-to", testTarget, "session.json"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parsePeriodsCommand(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePeriodsCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cmd.format != "auto" {
				t.Errorf("format = %s, want auto", cmd.format)
			}
		})
	}
}

// TestSignCommand tests composite signature output.
func TestSignCommand(t *testing.T) {
	path := writeConfig(t)
	validator := "0x2222222222222222222222222222222222222222"
	digest := "0x" + strings.Repeat("ab", 32)

	cmd, err := parseSignCommand("", []string{
		"-key", richKey,
		"-digest", digest,
		"-to", testTarget,
		"-timestamp", "1700000000",
		"-validator", validator,
		path,
	})
	if err != nil {
		t.Fatalf("parseSignCommand() error = %v", err)
	}

	var out bytes.Buffer
	cmd.out = &out
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	raw, err := hexutil.Decode(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("output is not hex: %v", err)
	}
	sig, err := abicodec.DecodeSessionSignature(raw)
	if err != nil {
		t.Fatalf("DecodeSessionSignature() error = %v", err)
	}
	if sig.Validator != common.HexToAddress(validator) {
		t.Errorf("validator = %s, want %s", sig.Validator.Hex(), validator)
	}
	if len(sig.Signature) != 65 {
		t.Errorf("signature length = %d, want 65", len(sig.Signature))
	}
}

// TestSignCommandErrors tests digest validation.
func TestSignCommandErrors(t *testing.T) {
	path := writeConfig(t)

	cmd, err := parseSignCommand("", []string{
		"-key", richKey,
		"-digest", "0x1234",
		"-to", testTarget,
		"-validator", "0x2222222222222222222222222222222222222222",
		path,
	})
	if err != nil {
		t.Fatalf("parseSignCommand() error = %v", err)
	}
	cmd.out = &bytes.Buffer{}
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "expected 32 bytes") {
		t.Errorf("Execute() error = %v, want digest length error", err)
	}

	if _, err := parseSignCommand("", []string{"-to", testTarget, path}); err == nil {
		t.Error("expected usage error without -digest")
	}
}

// TestParseSendCommand tests send command flag parsing.
func TestParseSendCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantCmd sendCommand
		wantErr bool
	}{
		{
			name: "session send",
			args: []string{"-session", "trading-bot", "-to", testTarget, "-value", "1000"},
			wantCmd: sendCommand{
				configPath: "/test/config.yaml",
				session:    "trading-bot",
				to:         testTarget,
				value:      "1000",
			},
		},
		{
			name: "owner send",
			args: []string{"-owner", "-account", testAccount, "-to", testTarget, "-data", "0xdeadbeef"},
			wantCmd: sendCommand{
				configPath: "/test/config.yaml",
				account:    testAccount,
				owner:      true,
				to:         testTarget,
				value:      "0",
				data:       "0xdeadbeef",
			},
		},
		{
			name:    "missing target",
			args:    []string{"-session", "trading-bot"},
			wantErr: true,
		},
		{
			name:    "neither session nor owner",
			args:    []string{"-to", testTarget},
			wantErr: true,
		},
		{
			name:    "both session and owner",
			args:    []string{"-owner", "-session", "x", "-to", testTarget},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseSendCommand("/test/config.yaml", tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSendCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if *cmd != tt.wantCmd {
				t.Errorf("command = %+v, want %+v", *cmd, tt.wantCmd)
			}
		})
	}
}

// TestParseDeployCommand tests deploy command flag parsing.
func TestParseDeployCommand(t *testing.T) {
	cmd, err := parseDeployCommand("", []string{
		"-owner", testAccount,
		"-session", "session.json",
		"-name", "bot",
		"-id", "my-account",
	})
	if err != nil {
		t.Fatalf("parseDeployCommand() error = %v", err)
	}
	if cmd.owners != testAccount || cmd.sessionFile != "session.json" || cmd.name != "bot" || cmd.id != "my-account" {
		t.Errorf("unexpected command: %+v", *cmd)
	}

	if _, err := parseDeployCommand("", []string{"-name", "bot"}); err == nil {
		t.Error("expected error for -name without -session")
	}
	if _, err := parseDeployCommand("", []string{"extra"}); err == nil {
		t.Error("expected error for positional arguments")
	}
}

// TestParseMonitorCommand tests monitor command flag parsing.
func TestParseMonitorCommand(t *testing.T) {
	cmd, err := parseMonitorCommand("", []string{"-refresh", "10s", "-once", "-include-revoked", "bot", goldenHash})
	if err != nil {
		t.Fatalf("parseMonitorCommand() error = %v", err)
	}
	if cmd.refresh != 10*time.Second || !cmd.once || !cmd.includeRevoked {
		t.Errorf("unexpected command: %+v", *cmd)
	}
	if !reflect.DeepEqual(cmd.hashes, []string{"bot", goldenHash}) {
		t.Errorf("hashes = %v", cmd.hashes)
	}

	if _, err := parseMonitorCommand("", []string{"-refresh", "-1s"}); err == nil {
		t.Error("expected error for negative refresh")
	}
}

// TestParseWatchCommand tests watch command flag parsing.
func TestParseWatchCommand(t *testing.T) {
	cmd, err := parseWatchCommand("/c.yaml", []string{"-dir", "/tmp/sessions", "-account", testAccount, "-recursive"})
	if err != nil {
		t.Fatalf("parseWatchCommand() error = %v", err)
	}
	want := watchCommand{configPath: "/c.yaml", dir: "/tmp/sessions", account: testAccount, recursive: true}
	if *cmd != want {
		t.Errorf("command = %+v, want %+v", *cmd, want)
	}
}

// TestParseSessionArgs tests session subcommand flag parsing.
func TestParseSessionArgs(t *testing.T) {
	create, err := parseCreateArgs([]string{"-account", testAccount, "-name", " bot ", "s.json"})
	if err != nil {
		t.Fatalf("parseCreateArgs() error = %v", err)
	}
	if create.name != "bot" || create.file != "s.json" {
		t.Errorf("unexpected create args: %+v", *create)
	}
	if _, err := parseCreateArgs([]string{"s.json"}); err == nil {
		t.Error("expected error for create without -account")
	}
	if _, err := parseCreateArgs([]string{"-calldata", "s.json"}); err != nil {
		t.Errorf("-calldata should not need -account: %v", err)
	}

	revoke, err := parseRevokeArgs([]string{"a", "b"})
	if err != nil {
		t.Fatalf("parseRevokeArgs() error = %v", err)
	}
	if !reflect.DeepEqual(revoke.refs, []string{"a", "b"}) {
		t.Errorf("refs = %v", revoke.refs)
	}
	if _, err := parseRevokeArgs(nil); err == nil {
		t.Error("expected error for revoke without sessions")
	}

	query, err := parseQueryArgs("state", []string{"-format", "json", "bot"})
	if err != nil {
		t.Fatalf("parseQueryArgs() error = %v", err)
	}
	if query.ref != "bot" || query.format != "json" {
		t.Errorf("unexpected query args: %+v", *query)
	}

	if _, err := parseImportArgs([]string{"-name", "x", "a.json", "b.json"}); err == nil {
		t.Error("expected error for -name with several files")
	}
	if _, err := parseImportArgs([]string{"-account", "nope", "a.json"}); err == nil {
		t.Error("expected error for invalid account")
	}
}

// TestImportFile tests registry import and re-import.
func TestImportFile(t *testing.T) {
	st := newTestStore(t)
	path := writeConfig(t)

	rec, err := importFile(st, path, testAccount, "bot")
	if err != nil {
		t.Fatalf("importFile() error = %v", err)
	}
	if rec.Hash != goldenHash || rec.Source != store.SourceImported {
		t.Errorf("unexpected record: %+v", rec)
	}

	// Re-import without name or account keeps both.
	again, err := importFile(st, path, "", "")
	if err != nil {
		t.Fatalf("importFile() error = %v", err)
	}
	if again.Name != "bot" || again.Account != testAccount {
		t.Errorf("re-import lost fields: %+v", again)
	}
}

// TestResolveSession tests lookup by hash, name and file.
func TestResolveSession(t *testing.T) {
	st := newTestStore(t)
	path := writeConfig(t)

	if _, err := importFile(st, path, testAccount, "bot"); err != nil {
		t.Fatalf("importFile() error = %v", err)
	}

	for _, ref := range []string{goldenHash, "bot"} {
		rec, spec, err := resolveSession(st, ref)
		if err != nil {
			t.Fatalf("resolveSession(%s) error = %v", ref, err)
		}
		if rec == nil || rec.Hash != goldenHash || spec == nil {
			t.Errorf("resolveSession(%s) = %+v", ref, rec)
		}
	}

	rec, spec, err := resolveSession(newTestStore(t), path)
	if err != nil {
		t.Fatalf("resolveSession(file) error = %v", err)
	}
	if rec != nil || spec == nil {
		t.Errorf("resolveSession(file) = %+v, %v", rec, spec)
	}

	if _, _, err := resolveSession(st, "missing"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("resolveSession(missing) error = %v", err)
	}
}

// TestRefHash tests revoke target resolution.
func TestRefHash(t *testing.T) {
	st := newTestStore(t)
	path := writeConfig(t)
	if _, err := importFile(st, path, testAccount, "bot"); err != nil {
		t.Fatalf("importFile() error = %v", err)
	}

	hash, rec, err := refHash(st, "bot")
	if err != nil || rec == nil || hash.Hex() != goldenHash {
		t.Errorf("refHash(bot) = %s, %v, %v", hash.Hex(), rec, err)
	}

	unknown := "0x" + strings.Repeat("11", 32)
	hash, rec, err = refHash(st, unknown)
	if err != nil || rec != nil || hash.Hex() != unknown {
		t.Errorf("refHash(unknown) = %s, %v, %v", hash.Hex(), rec, err)
	}

	if _, _, err := refHash(st, "nope"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("refHash(nope) error = %v", err)
	}
}

// TestParseHelpers tests flag value parsing.
func TestParseHelpers(t *testing.T) {
	if v, err := parseAmount("value", "0x10"); err != nil || v.Cmp(big.NewInt(16)) != 0 {
		t.Errorf("parseAmount(0x10) = %v, %v", v, err)
	}
	if _, err := parseAmount("value", "-1"); err == nil {
		t.Error("expected error for negative amount")
	}

	if ts, err := parseTimestamp(""); err != nil || ts != nil {
		t.Errorf("parseTimestamp(\"\") = %v, %v", ts, err)
	}
	if ts, err := parseTimestamp("42"); err != nil || ts == nil || *ts != 42 {
		t.Errorf("parseTimestamp(42) = %v, %v", ts, err)
	}

	if data, err := parseHexData("data", "0x"); err != nil || data != nil {
		t.Errorf("parseHexData(0x) = %v, %v", data, err)
	}
	if _, err := parseHexData("data", "zz"); err == nil {
		t.Error("expected error for non-hex data")
	}

	addrs, err := parseAddressList("owner", testAccount+", "+testTarget)
	if err != nil || len(addrs) != 2 {
		t.Errorf("parseAddressList() = %v, %v", addrs, err)
	}
	if _, err := parseAddressList("owner", "0x1,bad"); err == nil {
		t.Error("expected error for invalid address")
	}

	if got := shortHash(goldenHash); got != "0xc424e4a2...675a" {
		t.Errorf("shortHash() = %s", got)
	}
}

// TestLoadSigner tests key resolution from the flag and environment.
func TestLoadSigner(t *testing.T) {
	t.Setenv(privateKeyEnv, "")
	if _, err := loadSigner(""); err == nil {
		t.Error("expected error without a key")
	}

	t.Setenv(privateKeyEnv, richKey)
	s, err := loadSigner("")
	if err != nil {
		t.Fatalf("loadSigner() error = %v", err)
	}
	if s.Address() != common.HexToAddress(testAccount) {
		t.Errorf("address = %s, want %s", s.Address().Hex(), testAccount)
	}
}

// TestConfigCommand tests config reset, show and path.
func TestConfigCommand(t *testing.T) {
	t.Setenv("SSO_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	for _, env := range []string{"SSO_RPC_URL", "SSO_CHAIN_ID", "SSO_DB", "SSO_REDIS_ADDR", "SSO_LOG_LEVEL", "SSO_SESSION_VALIDATOR"} {
		t.Setenv(env, "")
	}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	var out bytes.Buffer
	cmd := &configCommand{configPath: path, in: strings.NewReader(""), out: &out}

	if err := cmd.Execute([]string{"reset"}); err != nil {
		t.Fatalf("reset error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 600", info.Mode().Perm())
	}

	out.Reset()
	cmd.in = strings.NewReader("n\n")
	if err := cmd.Execute([]string{"reset"}); err != nil {
		t.Fatalf("reset error = %v", err)
	}
	if !strings.Contains(out.String(), "Reset cancelled.") {
		t.Errorf("expected cancellation, got %q", out.String())
	}

	out.Reset()
	if err := cmd.Execute([]string{"show"}); err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out.String(), "rpc_url: http://localhost:8011") {
		t.Errorf("show output missing rpc_url:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "# Source: "+path) {
		t.Errorf("show output missing source:\n%s", out.String())
	}

	out.Reset()
	if err := cmd.Execute([]string{"path"}); err != nil {
		t.Fatalf("path error = %v", err)
	}
	if !strings.Contains(out.String(), path+" [found]") {
		t.Errorf("path output = %q", out.String())
	}

	if err := cmd.Execute([]string{"show", "-format", "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := cmd.Execute([]string{"bogus"}); err == nil {
		t.Error("expected error for unknown subcommand")
	}
}
