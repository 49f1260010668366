package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xmhha/sso-session/pkg/logger"
)

const (
	defaultRedisPrefix = "sso-session:"

	// redisMaxRetries bounds optimistic transaction retries in Put.
	redisMaxRetries = 3
)

// redisStore implements the Store interface on Redis.
//
// Keys:
//
//	<prefix>session:<hash> -> Record JSON
//	<prefix>name:<name>    -> hash
//	<prefix>sessions       -> set of hashes
type redisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  logger.Logger
}

// NewRedis connects to Redis and returns a registry backed by it.
func NewRedis(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = defaultRedisPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("failed to close redis client after ping error", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("session store initialized", "backend", BackendRedis, "addr", cfg.RedisAddr)

	return &redisStore{
		client:  client,
		prefix:  cfg.RedisPrefix,
		timeout: cfg.Timeout,
		logger:  log,
	}, nil
}

func (s *redisStore) sessionKey(hash string) string { return s.prefix + "session:" + hash }
func (s *redisStore) nameKey(name string) string    { return s.prefix + "name:" + name }
func (s *redisStore) indexKey() string              { return s.prefix + "sessions" }

func (s *redisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Put implements Store.Put.
func (s *redisStore) Put(rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}

	ctx, cancel := s.ctx()
	defer cancel()

	keys := []string{s.sessionKey(rec.Hash)}
	if rec.Name != "" {
		keys = append(keys, s.nameKey(rec.Name))
	}

	txf := func(tx *redis.Tx) error {
		now := time.Now().UTC()
		rec.CreatedAt = now

		var existing *Record
		data, err := tx.Get(ctx, s.sessionKey(rec.Hash)).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to read session: %w", err)
		default:
			existing = new(Record)
			if err := json.Unmarshal(data, existing); err != nil {
				return fmt.Errorf("failed to unmarshal existing record: %w", err)
			}
			rec.CreatedAt = existing.CreatedAt
		}
		rec.UpdatedAt = now

		if rec.Name != "" {
			owner, err := tx.Get(ctx, s.nameKey(rec.Name)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("failed to read name index: %w", err)
			}
			if err == nil && owner != rec.Hash {
				return ErrNameConflict
			}
		}

		// The old name is only released while it still points at this hash.
		releaseOld := false
		if existing != nil && existing.Name != "" && existing.Name != rec.Name {
			oldKey := s.nameKey(existing.Name)
			if err := tx.Watch(ctx, oldKey).Err(); err != nil {
				return fmt.Errorf("failed to watch name index: %w", err)
			}
			owner, err := tx.Get(ctx, oldKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("failed to read name index: %w", err)
			}
			releaseOld = err == nil && owner == rec.Hash
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if releaseOld {
				pipe.Del(ctx, s.nameKey(existing.Name))
			}
			pipe.Set(ctx, s.sessionKey(rec.Hash), payload, 0)
			pipe.SAdd(ctx, s.indexKey(), rec.Hash)
			if rec.Name != "" {
				pipe.Set(ctx, s.nameKey(rec.Name), rec.Hash, 0)
			}
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < redisMaxRetries; i++ {
		err = s.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, ErrNameConflict) {
			return err
		}
		return fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("session stored",
		"hash", rec.Hash,
		"name", rec.Name,
		"source", rec.Source)

	return nil
}

// Get implements Store.Get.
func (s *redisStore) Get(hash string) (*Record, error) {
	hash, err := NormalizeHash(hash)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.ctx()
	defer cancel()

	data, err := s.client.Get(ctx, s.sessionKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// GetByName implements Store.GetByName.
func (s *redisStore) GetByName(name string) (*Record, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	ctx, cancel := s.ctx()
	defer cancel()

	hash, err := s.client.Get(ctx, s.nameKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read name index: %w", err)
	}

	return s.Get(hash)
}

// List implements Store.List.
func (s *redisStore) List() ([]*Record, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	hashes, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	records := make([]*Record, 0, len(hashes))
	if len(hashes) == 0 {
		return records, nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = s.sessionKey(h)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // Removed between SMEMBERS and MGET.
		}

		var rec Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			s.logger.Warn("failed to unmarshal session",
				"hash", hashes[i],
				"error", err)
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

// SetName implements Store.SetName.
func (s *redisStore) SetName(hash, name string) error {
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
func (s *redisStore) MarkRevoked(hash string, at time.Time) error {
	rec, err := s.Get(hash)
	if err != nil {
		return err
	}

	at = at.UTC()
	rec.RevokedAt = &at
	return s.Put(rec)
}

// Delete implements Store.Delete.
func (s *redisStore) Delete(hash string) error {
	rec, err := s.Get(hash)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	ctx, cancel := s.ctx()
	defer cancel()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(rec.Hash))
		pipe.SRem(ctx, s.indexKey(), rec.Hash)
		if rec.Name != "" {
			pipe.Del(ctx, s.nameKey(rec.Name))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("session deleted",
		"hash", rec.Hash,
		"name", rec.Name)

	return nil
}

// Close implements Store.Close.
func (s *redisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	s.logger.Info("session store closed")
	return nil
}
