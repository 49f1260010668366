package config

import (
	"os"
	"path/filepath"
)

const appDir = "sso-session"

func baseDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", appDir)
}

// defaultDBPath returns ~/.config/sso-session/sessions.db.
func defaultDBPath() string {
	return filepath.Join(baseDir(), "sessions.db")
}

// defaultWatchDir returns ~/.config/sso-session/sessions/.
func defaultWatchDir() string {
	return filepath.Join(baseDir(), "sessions")
}

// DefaultPath returns the config file path used when none is given:
// $SSO_CONFIG if set, otherwise ~/.config/sso-session/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("SSO_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(baseDir(), "config.yaml")
}
