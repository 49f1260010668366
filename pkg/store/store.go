package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/0xmhha/sso-session/pkg/logger"
)

// Open creates the registry backend selected by cfg.Backend.
func Open(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendBolt:
		return NewBolt(cfg, log)
	case BackendRedis:
		return NewRedis(cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// NormalizeHash validates a session hash and returns its canonical
// 0x-prefixed lowercase form.
func NormalizeHash(hash string) (string, error) {
	hash = strings.TrimSpace(hash)
	if !strings.HasPrefix(hash, "0x") && !strings.HasPrefix(hash, "0X") {
		hash = "0x" + hash
	}

	b, err := hexutil.Decode(strings.ToLower(hash))
	if err != nil || len(b) != 32 {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	return hexutil.Encode(b), nil
}

// prepare validates rec in place and canonicalizes its hash.
func prepare(rec *Record) error {
	if rec == nil || len(rec.Spec) == 0 {
		return ErrInvalidRecord
	}

	hash, err := NormalizeHash(rec.Hash)
	if err != nil {
		return err
	}
	rec.Hash = hash
	rec.Name = strings.TrimSpace(rec.Name)

	return nil
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
