package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/popitgo/client/internal/backend"
)

// FileStore keeps the session in a sealed file readable only by the owner
type FileStore struct {
	mu   sync.Mutex
	path   string
	sealer *sealer
}

// NewFileStore returns a store at path. The sealing key is derived from
// secret, so a session written under one API key cannot be opened with another.
func NewFileStore(path, secret string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("session file path is required")
	}
	sl, err := newSealer(secret)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, sealer: sl}, nil
}

// Path returns the file location
func (f *FileStore) Path() string {
	return f.path
}

// Load opens the sealed file. A missing file is not an error.
func (f *FileStore) Load(ctx context.Context) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sealed, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	plain, err := f.sealer.open(sealed)
	if err != nil {
		return nil, err
	}

	var s backend.Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &s, nil
}

// Save seals s and replaces the file atomically
func (f *FileStore) Save(ctx context.Context, s *backend.Session) error {
	if s == nil {
		return f.Clear(ctx)
	}
	plain, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	sealed, err := f.sealer.seal(plain)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear removes the file
func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
