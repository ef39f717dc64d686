package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/popitgo/client/internal/backend"
)

// refreshGrace keeps a stored session around after its access token expires
// so the refresh token can still be used
const refreshGrace = 30 * 24 * time.Hour

// RedisStore keeps the session under a single key, sealed the same way as
// FileStore so the refresh token never sits in redis in plaintext
type RedisStore struct {
	client *redis.Client
	key    string
	sealer *sealer
	now    func() time.Time
}

// NewRedisStore returns a store writing to key. secret derives the
// sealing key.
func NewRedisStore(client *redis.Client, key, secret string) (*RedisStore, error) {
	sl, err := newSealer(secret)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client, key: key, sealer: sl, now: time.Now}, nil
}

// Load reads, opens and decodes the session
func (r *RedisStore) Load(ctx context.Context) (*backend.Session, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	val, err = r.sealer.open(val)
	if err != nil {
		return nil, err
	}
	var s backend.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &s, nil
}

// Save seals and writes s. The key expires refreshGrace after the access
// token does.
func (r *RedisStore) Save(ctx context.Context, s *backend.Session) error {
	if s == nil {
		return r.Clear(ctx)
	}
	plain, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	data, err := r.sealer.seal(plain)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if exp := s.Expiry(); !exp.IsZero() {
		ttl = exp.Add(refreshGrace).Sub(r.now())
		if ttl <= 0 {
			return r.Clear(ctx)
		}
	}
	if err := r.client.Set(ctx, r.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Clear deletes the key
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// Close releases the redis connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}
