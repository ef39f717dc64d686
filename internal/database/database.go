// Package database holds the SurrealDB connection behind the surreal
// backend transport.
//
// The transport talks to it through the Database interface, so tests run
// against an in-memory fake. Every statement result passes through
// Normalize: record ids collapse to their key and datetimes become RFC 3339
// strings, which lets the transport hand results to encoding/json unchanged.
//
// Failures wrap one of three sentinels so the transport can map them onto
// backend error codes with errors.Is:
//
//	ErrConnection  no connection, sign-in or token rejected
//	ErrQuery       a statement failed; the server's message follows
//	ErrNotFound    a lookup matched nothing
package database

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrConnection = errors.New("database connection error")
	ErrQuery      = errors.New("query error")
)

// Database is the connection the surreal transport drives
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	// Ping asks the server for its version
	Ping(ctx context.Context) error

	// Query runs every statement in query and returns one normalized
	// result per statement
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// Authenticate switches the connection to the identity of token.
	// An empty token drops back to the configured credentials.
	Authenticate(ctx context.Context, token string) error
}

// Config locates the server and the namespace/database pair procedures
// live in
type Config struct {
	// Endpoint is the full RPC url, e.g. ws://localhost:8000/rpc
	Endpoint  string
	User      string
	Password  string
	Namespace string
	Database  string
}
