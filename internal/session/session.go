package session

import (
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/config"
)

var (
	// ErrCorrupt indicates a stored session that could not be opened or decoded
	ErrCorrupt = errors.New("stored session is unreadable")
)

// Compile-time checks
var (
	_ backend.SessionStore = (*MemoryStore)(nil)
	_ backend.SessionStore = (*FileStore)(nil)
	_ backend.SessionStore = (*RedisStore)(nil)
)

// Open builds the store named in cfg. secret keys the file and redis stores.
func Open(cfg config.SessionConfig, secret string) (backend.SessionStore, error) {
	switch cfg.Store {
	case config.SessionStoreMemory:
		return NewMemoryStore(), nil
	case config.SessionStoreFile:
		fs, err := NewFileStore(cfg.Path, secret)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs, err := NewRedisStore(client, cfg.RedisKey, secret)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("%w: unknown session store %q", config.ErrConfiguration, cfg.Store)
	}
}
