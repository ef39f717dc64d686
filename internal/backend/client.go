package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Options configures a Client
type Options struct {
	// Authenticator serves Auth(). Nil disables auth operations.
	Authenticator Authenticator
	// Sessions persists the session. Nil keeps it in memory only.
	Sessions SessionStore
	// RedirectURL is where the OAuth provider sends the browser back
	RedirectURL string
	Logger      *slog.Logger
	// Now is the clock used for token expiry. Defaults to time.Now.
	Now func() time.Time
}

// Client is a configured backend handle
type Client struct {
	transport Transport
	auth      *AuthClient
	logger    *slog.Logger
}

// New creates a client over transport. No network call is made; call
// Auth().Restore to pick up a persisted session.
func New(transport Transport, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Client{
		transport: transport,
		logger:    logger,
	}
	c.auth = newAuthClient(authDeps{
		api:         opts.Authenticator,
		store:       opts.Sessions,
		transport:   transport,
		redirectURL: opts.RedirectURL,
		logger:      logger,
		now:         now,
	})
	return c
}

// Auth returns the auth surface
func (c *Client) Auth() *AuthClient {
	return c.auth
}

// Invoke calls a remote procedure with named parameters and decodes the
// result into out. out may be nil when the result is not needed.
func (c *Client) Invoke(ctx context.Context, procedure string, params map[string]any, out any) error {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := c.transport.Invoke(ctx, procedure, params)
	if err != nil {
		err = asBackendError(err)
		c.logger.Debug("rpc failed",
			slog.String("procedure", procedure),
			slog.String("error", err.Error()),
		)
		return err
	}
	if out == nil || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Code: CodeDecode, Message: "decode " + procedure + " result: " + err.Error()}
	}
	return nil
}

// From starts a query on table
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, q: Query{Table: table}}
}

// Close releases the transport
func (c *Client) Close(ctx context.Context) error {
	return c.transport.Close(ctx)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// asBackendError normalizes transport failures so callers can rely on *Error
func asBackendError(err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Code: CodeTransport, Message: err.Error()}
}
