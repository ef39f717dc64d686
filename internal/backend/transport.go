package backend

import (
	"context"
	"encoding/json"
)

// Transport moves data calls to the backend. Every method returns the raw
// JSON body of a successful call or an *Error.
// Select, Insert and Update return a JSON array of rows.
type Transport interface {
	Invoke(ctx context.Context, procedure string, params map[string]any) (json.RawMessage, error)
	Select(ctx context.Context, q Query) (json.RawMessage, error)
	Insert(ctx context.Context, q Query, row any) (json.RawMessage, error)
	Update(ctx context.Context, q Query, patch any) (json.RawMessage, error)
	Delete(ctx context.Context, q Query) error

	// SetAccessToken switches subsequent calls to the signed-in user.
	// An empty token reverts to the anonymous key.
	SetAccessToken(token string)
	Close(ctx context.Context) error
}

// Authenticator is the auth API: OAuth with PKCE and session tokens
type Authenticator interface {
	AuthorizeURL(provider, redirectTo, codeChallenge string) (string, error)
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	User(ctx context.Context, accessToken string) (*User, error)
	Logout(ctx context.Context, accessToken string) error
}

// SessionStore persists the signed-in session between runs.
// Load returns (nil, nil) when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// Query describes a table read or write
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Orders  []Order
	Limit   int
	Single  bool
}

// Filter is an exact-match condition column = value
type Filter struct {
	Column string
	Value  any
}

// Order is a sort key
type Order struct {
	Column    string
	Ascending bool
}
