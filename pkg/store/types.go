// Package store keeps a local registry of the sessions this tool has created
// or imported, keyed by session hash.
//
// Two backends are available: a BoltDB file for single-user use and Redis
// for sharing the registry between machines.
//
// Example usage:
//
//	st, err := store.Open(store.Config{
//	    Backend: store.BackendBolt,
//	    DBPath:  "~/.config/sso-session/sessions.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
//	rec := &store.Record{
//	    Hash:   "0xc424e4a2319b9e449d85c13d6511e63eb383fb975dc68a96d5d7fcdcbbce675a",
//	    Name:   "trading-bot",
//	    Spec:   specJSON,
//	    Source: store.SourceCreated,
//	}
//	if err := st.Put(rec); err != nil {
//	    log.Fatal(err)
//	}
package store

import (
	"encoding/json"
	"time"
)

// Backend names accepted by Open.
const (
	BackendBolt  = "bolt"
	BackendRedis = "redis"
)

// Record sources.
const (
	SourceCreated  = "created"
	SourceImported = "imported"
	SourceWatched  = "watched"
)

// Record is a registry entry for one session.
type Record struct {
	// Hash is the 0x-prefixed lowercase session hash.
	Hash string `json:"hash"`

	// Name is an optional user-friendly name (unique when set).
	Name string `json:"name,omitempty"`

	// Account is the smart account the session was created on, if known.
	Account string `json:"account,omitempty"`

	// Spec is the session config JSON the hash was computed from.
	Spec json.RawMessage `json:"spec"`

	// Source records how the entry got here.
	Source string `json:"source,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the session was revoked through this tool.
func (r *Record) Revoked() bool { return r.RevokedAt != nil }

// Store provides session registry CRUD operations.
type Store interface {
	// Put inserts or replaces a record.
	//
	// Returns error if:
	//   - Hash is invalid
	//   - Name is taken by another session
	//   - Backend operation fails
	//
	// CreatedAt is preserved across replacements.
	Put(rec *Record) error

	// Get retrieves a record by session hash.
	//
	// Returns ErrSessionNotFound if absent.
	Get(hash string) (*Record, error)

	// GetByName retrieves a record by name.
	GetByName(name string) (*Record, error)

	// List returns all records (empty if none exist).
	List() ([]*Record, error)

	// SetName assigns or changes a record's name.
	SetName(hash, name string) error

	// MarkRevoked stamps the record as revoked at the given time.
	MarkRevoked(hash string, at time.Time) error

	// Delete removes a record. Does not error if it doesn't exist.
	Delete(hash string) error

	// Close releases backend resources.
	Close() error
}

// Config contains registry configuration.
type Config struct {
	// Backend selects the storage backend (bolt, redis). Default: bolt.
	Backend string

	// DBPath is the BoltDB file path.
	DBPath string

	// Timeout bounds a single backend operation (default: 1 second).
	Timeout time.Duration

	// RedisAddr is the Redis server address (host:port).
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB selects the Redis logical database.
	RedisDB int

	// RedisPrefix namespaces every key (default: "sso-session:").
	RedisPrefix string
}
