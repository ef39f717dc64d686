// Package auth tracks who is signed in.
//
// The Container follows the backend session: a sign-in refreshes the user
// and their profile role, a sign-out drops them. Its state is one of
// Loading, LoggedOut, LoggedIn or Error and starts as Loading until the
// first Refresh.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/service"
	"github.com/popitgo/client/internal/transform"
)

// Providers offered for sign-in
const (
	ProviderKakao  = "kakao"
	ProviderGoogle = "google"
)

// refreshTimeout bounds the refresh triggered by a sign-in event
const refreshTimeout = 30 * time.Second

// Status is the sign-in state
type Status string

const (
	StatusLoading   Status = "loading"
	StatusLoggedOut Status = "logged_out"
	StatusLoggedIn  Status = "logged_in"
	StatusError     Status = "error"
)

// State is a snapshot of the container. User is set only when LoggedIn and
// Error only in the Error status.
type State struct {
	Status Status
	User   *model.UserInfo
	Error  string
}

// Session is the backend auth surface. *backend.AuthClient implements it.
type Session interface {
	GetUser(ctx context.Context) (*backend.User, error)
	SignInWithOAuth(ctx context.Context, provider string) (*backend.OAuthRedirect, error)
	ExchangeCode(ctx context.Context, code, state string) (*backend.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn backend.AuthListener) (unsubscribe func())
}

// RoleReader looks up a user's role. *service.ProfileService implements it.
type RoleReader interface {
	Role(ctx context.Context, userID string) (model.Role, error)
}

// Container holds the sign-in state
type Container struct {
	session Session
	roles   RoleReader
	logger  *slog.Logger

	// deliver keeps subscribers seeing states in install order
	deliver sync.Mutex

	mu    sync.Mutex
	state State
	subs  map[int]func(State)
	next  int

	stop func()
}

// New creates the container and starts following session events. Call
// Close to stop.
func New(session Session, roles RoleReader, logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		session: session,
		roles:   roles,
		logger:  logger.With(slog.String("store", "auth")),
		state:   State{Status: StatusLoading},
		subs:    make(map[int]func(State)),
	}
	c.stop = session.OnAuthStateChange(c.onAuthEvent)
	return c
}

// Close stops following session events
func (c *Container) Close() {
	c.stop()
}

// Snapshot returns the current state
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe calls fn with the current state and after every change until
// the returned function is called
func (c *Container) Subscribe(fn func(State)) (unsubscribe func()) {
	c.deliver.Lock()
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = fn
	current := c.state
	c.mu.Unlock()

	fn(current)
	c.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Refresh reloads the signed-in user. A failed role lookup is logged and
// the user is treated as model.RoleUser.
func (c *Container) Refresh(ctx context.Context) error {
	user, err := c.session.GetUser(ctx)
	if err != nil {
		c.logger.Error("failed to load user",
			slog.String("op", "refresh"),
			slog.String("error", err.Error()),
		)
		c.set(State{Status: StatusError, Error: service.Message(err, "Failed to load user")})
		return err
	}
	if user == nil {
		c.set(State{Status: StatusLoggedOut})
		return nil
	}

	role := model.RoleUser
	if c.roles != nil {
		r, err := c.roles.Role(ctx, user.ID)
		if err != nil {
			c.logger.Warn("failed to load user role",
				slog.String("op", "refresh"),
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			role = r
		}
	}

	info := transform.UserInfoFromAuth(user.ID, user.Email, user.UserMetadata, string(role))
	c.set(State{Status: StatusLoggedIn, User: info})
	return nil
}

// Login starts a provider sign-in and returns where to send the browser.
// The state becomes LoggedIn once the code is exchanged.
func (c *Container) Login(ctx context.Context, provider string) (*backend.OAuthRedirect, error) {
	c.set(State{Status: StatusLoading})
	redirect, err := c.session.SignInWithOAuth(ctx, provider)
	if err != nil {
		return nil, c.fail("login", err, "Failed to start sign-in")
	}
	return redirect, nil
}

// LoginWithGoogle is Login with the google provider
func (c *Container) LoginWithGoogle(ctx context.Context) (*backend.OAuthRedirect, error) {
	return c.Login(ctx, ProviderGoogle)
}

// Complete exchanges the authorization code returned to the callback
func (c *Container) Complete(ctx context.Context, code, state string) error {
	if _, err := c.session.ExchangeCode(ctx, code, state); err != nil {
		return c.fail("complete", err, "Failed to complete sign-in")
	}
	return nil
}

// Logout ends the session
func (c *Container) Logout(ctx context.Context) error {
	c.set(State{Status: StatusLoading})
	if err := c.session.SignOut(ctx); err != nil {
		return c.fail("logout", err, "Failed to sign out")
	}
	c.set(State{Status: StatusLoggedOut})
	return nil
}

// CheckAdminAccess reports whether the signed-in user is an admin. Any
// failure counts as no access.
func (c *Container) CheckAdminAccess(ctx context.Context) bool {
	user, err := c.session.GetUser(ctx)
	if err != nil || user == nil || c.roles == nil {
		return false
	}
	role, err := c.roles.Role(ctx, user.ID)
	if err != nil {
		c.logger.Warn("admin check failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return role.IsAdmin()
}

func (c *Container) onAuthEvent(event backend.AuthEvent, _ *backend.Session) {
	switch event {
	case backend.EventSignedIn:
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		_ = c.Refresh(ctx)
	case backend.EventSignedOut:
		c.set(State{Status: StatusLoggedOut})
	}
}

func (c *Container) fail(op string, err error, fallback string) error {
	c.logger.Error("auth operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	c.set(State{Status: StatusError, Error: service.Message(err, fallback)})
	return err
}

func (c *Container) set(s State) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	c.state = s
	fns := make([]func(State), 0, len(c.subs))
	for i := 0; i < c.next; i++ {
		if fn, ok := c.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
