// Package eventstore mirrors session event logs into Redis.
//
// Each session's log is a capped Redis list, so the mirror keeps the same
// bound as the in-memory log and survives server restarts. An index sorted
// set tracks which sessions have mirrored events.
package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	backend "github.com/redis/go-redis/v9"

	"github.com/GriffinCanCode/sdui/internal/domain/action"
	"github.com/GriffinCanCode/sdui/internal/domain/session"
)

const defaultPrefix = "sdui:events:"

// Store reads and writes mirrored event logs
type Store struct {
	client   *backend.Client
	prefix   string
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithTTL expires a session's list after ttl without new events
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithCapacity caps each list; it should match the in-memory log
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// New connects to Redis at address
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client:   client,
		prefix:   defaultPrefix,
		capacity: action.DefaultLogCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(sessionID string) string { return s.prefix + sessionID }

func (s *Store) indexKey() string { return s.prefix + "index" }

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Append pushes an event and trims the list to capacity atomically
func (s *Store) Append(ctx context.Context, e session.Event) error {
	data, err := sonic.ConfigStd.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := s.key(e.SessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.capacity), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(s.now().Unix()),
		Member: e.SessionID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Entries returns a session's mirrored events, oldest first
func (s *Store) Entries(ctx context.Context, sessionID string) ([]session.Event, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}

	out := make([]session.Event, 0, len(raw))
	for _, item := range raw {
		var e session.Event
		if err := sonic.ConfigStd.UnmarshalFromString(item, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Recent returns a session's mirrored events, newest first
func (s *Store) Recent(ctx context.Context, sessionID string) ([]session.Event, error) {
	events, err := s.Entries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Clear drops a session's mirrored events
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// Sessions lists sessions with mirrored events, pruning index entries
// whose lists have expired
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	if s.ttl > 0 {
		cutoff := float64(s.now().Add(-s.ttl).Unix())
		err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("(%f", cutoff)).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to prune index: %w", err)
		}
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Close closes the redis client
func (s *Store) Close() error {
	return s.client.Close()
}
