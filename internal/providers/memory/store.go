package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned for an unknown or expired id
var ErrNotFound = errors.New("memory not found")

// Memory is one stored record
type Memory struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

// Store persists memories
type Store interface {
	Put(ctx context.Context, m Memory, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Memory, error)
	Delete(ctx context.Context, id string) (bool, error)
	// Recent returns memories newest first; limit <= 0 returns all
	Recent(ctx context.Context, limit int) ([]Memory, error)
	Ping(ctx context.Context) error
	Close() error
}

// RedisStore is the Redis implementation of Store
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisConfig configures a RedisStore
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis
func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg.Prefix)
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "capgate"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":memory:" + id
}

func (s *RedisStore) index() string {
	return s.prefix + ":memories"
}

// Put writes the record and indexes it
func (s *RedisStore) Put(ctx context.Context, m Memory, ttl time.Duration) error {
	raw, err := sonic.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(m.ID), raw, ttl)
	pipe.ZAdd(ctx, s.index(), redis.Z{Score: float64(m.CreatedAt.UnixNano()), Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store memory %s: %w", m.ID, err)
	}
	return nil
}

// Get reads one record
func (s *RedisStore) Get(ctx context.Context, id string) (*Memory, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get memory %s: %w", id, err)
	}

	var m Memory
	if err := sonic.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode memory %s: %w", id, err)
	}
	return &m, nil
}

// Delete removes a record; it reports whether one existed
func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.index(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("delete memory %s: %w", id, err)
	}
	return del.Val() > 0, nil
}

// Recent lists records newest first
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]Memory, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.index(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	if len(ids) == 0 {
		return []Memory{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}

	out := make([]Memory, 0, len(values))
	var expired []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var m Memory
		if err := sonic.UnmarshalString(str, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	if len(expired) > 0 {
		s.client.ZRem(ctx, s.index(), expired...)
	}
	return out, nil
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
