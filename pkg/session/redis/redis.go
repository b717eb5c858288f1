// Package redis provides a Redis-backed session store suitable for running
// several persona servers behind one load balancer.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papercomputeco/persona/pkg/session"
)

// DefaultPrefix is the key prefix for all session keys.
const DefaultPrefix = "persona:session:"

// Config holds Redis connection configuration.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all session keys (default: DefaultPrefix).
	Prefix string
	// TTL expires idle sessions. Zero keeps them forever. Refreshed on every
	// lookup and append.
	TTL time.Duration
}

// Store implements session.Store on Redis lists. Each session has a marker
// key and an RPUSH list of JSON-encoded turns.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewStoreFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewStoreFromClient creates a store from an existing client.
func NewStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) metaKey(sessionID string) string {
	return s.prefix + "meta:" + sessionID
}

func (s *Store) turnsKey(sessionID string) string {
	return s.prefix + "turns:" + sessionID
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return session.ErrStoreClosed
	}
	return nil
}

// GetOrCreate registers the session marker if absent and returns the
// transcript. With a TTL, the marker and list expiry restart on every call so
// a session cannot lapse while a turn is in flight.
func (s *Store) GetOrCreate(ctx context.Context, sessionID string) (*session.Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	created := time.Now().UTC().Format(time.RFC3339Nano)

	var lrange *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.metaKey(sessionID), created, s.ttl)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.metaKey(sessionID), s.ttl)
			pipe.Expire(ctx, s.turnsKey(sessionID), s.ttl)
		}
		lrange = pipe.LRange(ctx, s.turnsKey(sessionID), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	data := lrange.Val()

	out := &session.Session{ID: sessionID, Turns: make([]session.Turn, 0, len(data))}
	for _, raw := range data {
		var t session.Turn
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		out.Turns = append(out.Turns, t)
	}

	return out, nil
}

// Append pushes all turns in a single MULTI/EXEC.
func (s *Store) Append(ctx context.Context, sessionID string, turns ...session.Turn) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	n, err := s.client.Exists(ctx, s.metaKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("look up session: %w", err)
	}
	if n == 0 {
		return session.ErrSessionNotFound
	}

	if len(turns) == 0 {
		return nil
	}

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal turn: %w", err)
		}
		values = append(values, data)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.turnsKey(sessionID), values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.metaKey(sessionID), s.ttl)
			pipe.Expire(ctx, s.turnsKey(sessionID), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append turns: %w", err)
	}

	return nil
}

// Close releases the client's connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.client.Close()
}
