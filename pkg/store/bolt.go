package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/sso-session/pkg/logger"
)

// Bucket names.
var (
	bucketSessions = []byte("sessions") // Hash -> Record
	bucketNames    = []byte("names")    // Name -> Hash (index)
)

// boltStore implements the Store interface using BoltDB.
type boltStore struct {
	db     *bolt.DB
	logger logger.Logger
}

// NewBolt opens (creating if needed) a BoltDB-backed registry.
func NewBolt(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := expandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketSessions); createErr != nil {
			return fmt.Errorf("failed to create sessions bucket: %w", createErr)
		}
		if _, createErr := tx.CreateBucketIfNotExists(bucketNames); createErr != nil {
			return fmt.Errorf("failed to create names bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Info("session store initialized", "backend", BackendBolt, "db_path", dbPath)

	return &boltStore{
		db:     db,
		logger: log,
	}, nil
}

// Put implements Store.Put.
func (s *boltStore) Put(rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		names := tx.Bucket(bucketNames)

		now := time.Now().UTC()
		rec.CreatedAt = now

		var existing *Record
		if data := sessions.Get([]byte(rec.Hash)); data != nil {
			existing = new(Record)
			if err := json.Unmarshal(data, existing); err != nil {
				return fmt.Errorf("failed to unmarshal existing record: %w", err)
			}
			rec.CreatedAt = existing.CreatedAt
		}
		rec.UpdatedAt = now

		if rec.Name != "" {
			if owner := names.Get([]byte(rec.Name)); owner != nil && string(owner) != rec.Hash {
				return ErrNameConflict
			}
		}

		if existing != nil && existing.Name != "" && existing.Name != rec.Name {
			if err := names.Delete([]byte(existing.Name)); err != nil {
				return fmt.Errorf("failed to delete old name index: %w", err)
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		if err := sessions.Put([]byte(rec.Hash), data); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}

		if rec.Name != "" {
			if err := names.Put([]byte(rec.Name), []byte(rec.Hash)); err != nil {
				return fmt.Errorf("failed to store name index: %w", err)
			}
		}

		s.logger.Info("session stored",
			"hash", rec.Hash,
			"name", rec.Name,
			"source", rec.Source)

		return nil
	})
}

// Get implements Store.Get.
func (s *boltStore) Get(hash string) (*Record, error) {
	hash, err := NormalizeHash(hash)
	if err != nil {
		return nil, err
	}

	var rec *Record

	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(hash))
		if data == nil {
			return ErrSessionNotFound
		}

		var r Record
		if unmarshalErr := json.Unmarshal(data, &r); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal record: %w", unmarshalErr)
		}

		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// GetByName implements Store.GetByName.
func (s *boltStore) GetByName(name string) (*Record, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	var hash string

	if err := s.db.View(func(tx *bolt.Tx) error {
		hashBytes := tx.Bucket(bucketNames).Get([]byte(name))
		if hashBytes == nil {
			return ErrSessionNotFound
		}

		hash = string(hashBytes)
		return nil
	}); err != nil {
		return nil, err
	}

	return s.Get(hash)
}

// List implements Store.List.
func (s *boltStore) List() ([]*Record, error) {
	records := make([]*Record, 0, 10)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			var rec Record
			if unmarshalErr := json.Unmarshal(v, &rec); unmarshalErr != nil {
				s.logger.Warn("failed to unmarshal session",
					"hash", string(k),
					"error", unmarshalErr)
				return nil // Skip invalid entries.
			}

			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return records, nil
}

// SetName implements Store.SetName.
func (s *boltStore) SetName(hash, name string) error {
	if name == "" {
		return ErrEmptyName
	}

	rec, err := s.Get(hash)
	if err != nil {
		return err
	}

	rec.Name = name
	return s.Put(rec)
}

// MarkRevoked implements Store.MarkRevoked.
func (s *boltStore) MarkRevoked(hash string, at time.Time) error {
	rec, err := s.Get(hash)
	if err != nil {
		return err
	}

	at = at.UTC()
	rec.RevokedAt = &at
	return s.Put(rec)
}

// Delete implements Store.Delete.
func (s *boltStore) Delete(hash string) error {
	hash, err := NormalizeHash(hash)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		names := tx.Bucket(bucketNames)

		data := sessions.Get([]byte(hash))
		if data == nil {
			return nil
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		if err := sessions.Delete([]byte(hash)); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}

		if rec.Name != "" {
			if err := names.Delete([]byte(rec.Name)); err != nil {
				return fmt.Errorf("failed to delete name index: %w", err)
			}
		}

		s.logger.Info("session deleted",
			"hash", hash,
			"name", rec.Name)

		return nil
	})
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.Info("session store closed")
	return nil
}
