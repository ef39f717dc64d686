package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/config"
)

func testSession() *backend.Session {
	return &backend.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         &backend.User{ID: "user-1", Email: "a@example.com"},
	}
}

// ============================================================================
// MemoryStore
// ============================================================================

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, testSession()))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access", got.AccessToken)

	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// ============================================================================
// FileStore
// ============================================================================

func TestFileStore_MissingFile(t *testing.T) {
	t.Parallel()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "session"), "anon-key")
	require.NoError(t, err)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_SaveLoadClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session")
	store, err := NewFileStore(path, "anon-key")
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, testSession()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "access", "token must not be stored in clear text")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.Equal(t, "user-1", got.User.ID)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice is not an error")
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileStore_WrongKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session")

	writer, err := NewFileStore(path, "key-one")
	require.NoError(t, err)
	require.NoError(t, writer.Save(ctx, testSession()))

	reader, err := NewFileStore(path, "key-two")
	require.NoError(t, err)
	_, err = reader.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStore_Truncated(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "session")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	store, err := NewFileStore(path, "anon-key")
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestNewFileStore_RequiresPathAndSecret(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore("", "key")
	assert.Error(t, err)
	_, err = NewFileStore("/tmp/session", "")
	assert.Error(t, err)
}

// ============================================================================
// RedisStore
// ============================================================================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store, err := NewRedisStore(client, "popitgo:session", "anon-key")
	require.NoError(t, err)
	return mr, store
}

func TestRedisStore_SaveLoadClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, store := setupRedis(t)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, testSession()))
	assert.True(t, mr.Exists("popitgo:session"))
	assert.Greater(t, mr.TTL("popitgo:session"), 24*time.Hour)

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access", got.AccessToken)

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("popitgo:session"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	t.Parallel()
	mr, store := setupRedis(t)
	require.NoError(t, mr.Set("popitgo:session", "{not json"))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRedisStore_ValueIsSealed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, store := setupRedis(t)

	require.NoError(t, store.Save(ctx, testSession()))
	raw, err := mr.Get("popitgo:session")
	require.NoError(t, err)
	assert.NotContains(t, raw, "refresh")
	assert.NotContains(t, raw, "a@example.com")

	other, err := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "popitgo:session", "other-key")
	require.NoError(t, err)
	defer func() { _ = other.Close() }()
	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestNewRedisStore_RequiresSecret(t *testing.T) {
	t.Parallel()
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()

	_, err := NewRedisStore(client, "k", "")
	assert.Error(t, err)
}

func TestRedisStore_LongExpiredSessionIsDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, store := setupRedis(t)

	s := testSession()
	s.ExpiresAt = time.Now().Add(-2 * refreshGrace).Unix()
	require.NoError(t, store.Save(ctx, s))
	assert.False(t, mr.Exists("popitgo:session"))
}

// ============================================================================
// Open
// ============================================================================

func TestOpen(t *testing.T) {
	t.Parallel()

	s, err := Open(config.SessionConfig{Store: config.SessionStoreMemory}, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(config.SessionConfig{Store: config.SessionStoreFile, Path: filepath.Join(t.TempDir(), "s")}, "key")
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(config.SessionConfig{Store: config.SessionStoreRedis, RedisAddr: "localhost:0", RedisKey: "k"}, "key")
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)

	s, err = Open(config.SessionConfig{Store: config.SessionStoreFile, Path: filepath.Join(t.TempDir(), "s")}, "")
	assert.Error(t, err)
	assert.Nil(t, s)

	_, err = Open(config.SessionConfig{Store: "etcd"}, "")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}
