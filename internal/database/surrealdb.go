package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/surrealdb/surrealdb.go"
)

// SurrealDB implements the Database interface for SurrealDB
type SurrealDB struct {
	mu     sync.RWMutex
	db     *surrealdb.DB
	config Config
}

// NewSurrealDB creates a new SurrealDB instance
func NewSurrealDB(cfg Config) *SurrealDB {
	return &SurrealDB{
		config: cfg,
	}
}

// Connect establishes a connection to SurrealDB
func (s *SurrealDB) Connect(ctx context.Context) error {
	db, err := surrealdb.FromEndpointURLString(ctx, s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if err := s.signIn(ctx, db); err != nil {
		_ = db.Close(ctx)
		return err
	}

	if err := db.Use(ctx, s.config.Namespace, s.config.Database); err != nil {
		_ = db.Close(ctx)
		return fmt.Errorf("%w: use failed: %v", ErrConnection, err)
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	return nil
}

// signIn uses the configured credentials. Without a user the connection
// stays anonymous until Authenticate is called.
func (s *SurrealDB) signIn(ctx context.Context, db *surrealdb.DB) error {
	if s.config.User == "" {
		return nil
	}
	_, err := db.SignIn(ctx, &surrealdb.Auth{
		Username: s.config.User,
		Password: s.config.Password,
	})
	if err != nil {
		return fmt.Errorf("%w: signin failed: %v", ErrConnection, err)
	}
	return nil
}

func (s *SurrealDB) conn() *surrealdb.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Close closes the database connection
func (s *SurrealDB) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db != nil {
		return db.Close(context.Background())
	}
	return nil
}

// Ping checks the server answers on the open connection
func (s *SurrealDB) Ping(ctx context.Context) error {
	db := s.conn()
	if db == nil {
		return ErrConnection
	}
	if _, err := db.Version(ctx); err != nil {
		return fmt.Errorf("%w: version: %v", ErrConnection, err)
	}
	return nil
}

// Authenticate switches the session to token, or back to the configured
// credentials when token is empty
func (s *SurrealDB) Authenticate(ctx context.Context, token string) error {
	db := s.conn()
	if db == nil {
		return ErrConnection
	}
	if token == "" {
		if err := db.Invalidate(ctx); err != nil {
			return fmt.Errorf("%w: invalidate failed: %v", ErrConnection, err)
		}
		return s.signIn(ctx, db)
	}
	if err := db.Authenticate(ctx, token); err != nil {
		return fmt.Errorf("%w: authenticate failed: %v", ErrConnection, err)
	}
	return nil
}

// Query executes a query and returns the normalized result of each statement
func (s *SurrealDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	db := s.conn()
	if db == nil {
		return nil, ErrConnection
	}

	results, err := surrealdb.Query[interface{}](ctx, db, query, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	if results == nil {
		return nil, nil
	}

	output := make([]interface{}, 0, len(*results))
	for _, r := range *results {
		if r.Status != "OK" {
			if r.Error != nil {
				return nil, fmt.Errorf("%w: %s", ErrQuery, r.Error.Message)
			}
			return nil, ErrQuery
		}
		output = append(output, Normalize(r.Result))
	}

	return output, nil
}
