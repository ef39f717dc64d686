package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// AuthEvent names a session transition
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthListener receives session transitions. session is nil on sign-out.
type AuthListener func(event AuthEvent, session *Session)

// OAuthRedirect is the start of a provider sign-in. The caller sends the
// browser to URL; the provider returns to the redirect URL with code and state.
type OAuthRedirect struct {
	Provider string
	URL      string
	State    string
}

type pendingFlow struct {
	provider string
	verifier string
	created  time.Time
}

// flowTTL bounds how long a started sign-in can be completed
const flowTTL = 10 * time.Minute

type authDeps struct {
	api         Authenticator
	store       SessionStore
	transport   Transport
	redirectURL string
	logger      *slog.Logger
	now         func() time.Time
}

// AuthClient manages the signed-in session
type AuthClient struct {
	authDeps

	mu        sync.Mutex
	session   *Session
	pending   map[string]pendingFlow
	listeners map[int]AuthListener
	nextID    int
}

func newAuthClient(deps authDeps) *AuthClient {
	return &AuthClient{
		authDeps:  deps,
		pending:   make(map[string]pendingFlow),
		listeners: make(map[int]AuthListener),
	}
}

// Restore loads the persisted session. An expired access token is refreshed
// once; if that fails the stored session is discarded.
func (a *AuthClient) Restore(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	sess, err := a.store.Load(ctx)
	if err != nil {
		a.logger.Warn("failed to load stored session", slog.String("error", err.Error()))
		return nil
	}
	if sess == nil || sess.AccessToken == "" {
		return nil
	}

	if !sess.ExpiredAt(a.now()) {
		a.install(ctx, sess, false)
		return nil
	}

	if a.api == nil || sess.RefreshToken == "" {
		a.discard(ctx)
		return nil
	}
	refreshed, err := a.api.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		a.logger.Info("stored session expired and could not be refreshed", slog.String("error", err.Error()))
		a.discard(ctx)
		return nil
	}
	a.install(ctx, refreshed, true)
	a.emit(EventTokenRefreshed, refreshed)
	return nil
}

// Session returns the live session, refreshing it once if the access token
// has expired. It returns ErrSessionMissing when nobody is signed in.
func (a *AuthClient) Session(ctx context.Context) (*Session, error) {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()

	if sess == nil {
		return nil, ErrSessionMissing
	}
	if !sess.ExpiredAt(a.now()) {
		return sess, nil
	}
	if a.api == nil || sess.RefreshToken == "" {
		a.signOutLocal(ctx)
		return nil, ErrSessionMissing
	}

	refreshed, err := a.api.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) && ae.IsUnauthorized() {
			a.signOutLocal(ctx)
			return nil, ErrSessionMissing
		}
		return nil, err
	}
	a.install(ctx, refreshed, true)
	a.emit(EventTokenRefreshed, refreshed)
	return refreshed, nil
}

// GetUser returns the signed-in user, or (nil, nil) when there is no session
func (a *AuthClient) GetUser(ctx context.Context) (*User, error) {
	if a.api == nil {
		return nil, &AuthError{Err: ErrAuthUnavailable}
	}
	sess, err := a.Session(ctx)
	if errors.Is(err, ErrSessionMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user, err := a.api.User(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SignInWithOAuth starts a PKCE sign-in with provider (kakao, google)
func (a *AuthClient) SignInWithOAuth(ctx context.Context, provider string) (*OAuthRedirect, error) {
	if a.api == nil {
		return nil, &AuthError{Err: ErrAuthUnavailable}
	}
	if provider == "" {
		return nil, &AuthError{Code: "validation_failed", Message: "provider is required"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	redirectTo, err := withState(a.redirectURL, state)
	if err != nil {
		return nil, &AuthError{Code: "validation_failed", Message: "invalid redirect url", Err: err}
	}
	authURL, err := a.api.AuthorizeURL(provider, redirectTo, oauth2.S256ChallengeFromVerifier(verifier))
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.prunePendingLocked()
	a.pending[state] = pendingFlow{provider: provider, verifier: verifier, created: a.now()}
	a.mu.Unlock()

	return &OAuthRedirect{Provider: provider, URL: authURL, State: state}, nil
}

// ExchangeCode completes a sign-in started by SignInWithOAuth. state may be
// empty when exactly one sign-in is pending.
func (a *AuthClient) ExchangeCode(ctx context.Context, code, state string) (*Session, error) {
	if a.api == nil {
		return nil, &AuthError{Err: ErrAuthUnavailable}
	}
	if code == "" {
		return nil, &AuthError{Code: "validation_failed", Message: "authorization code is required"}
	}

	flow, ok := a.takePending(state)
	if !ok {
		return nil, &AuthError{Code: "flow_state_not_found", Err: ErrUnknownFlow}
	}

	sess, err := a.api.ExchangeCode(ctx, code, flow.verifier)
	if err != nil {
		return nil, err
	}
	a.install(ctx, sess, true)
	a.emit(EventSignedIn, sess)
	return sess, nil
}

// SignOut ends the session. The local session is dropped even when the
// remote logout fails; that failure is still returned.
func (a *AuthClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()

	var remoteErr error
	if sess != nil && a.api != nil {
		if err := a.api.Logout(ctx, sess.AccessToken); err != nil {
			var ae *AuthError
			// An already invalid token means the remote session is gone too
			if !errors.As(err, &ae) || !ae.IsUnauthorized() {
				remoteErr = err
			}
		}
	}
	a.signOutLocal(ctx)
	return remoteErr
}

// OnAuthStateChange registers fn for session transitions and returns a
// function that removes it
func (a *AuthClient) OnAuthStateChange(fn AuthListener) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// install makes sess current and optionally persists it
func (a *AuthClient) install(ctx context.Context, sess *Session, persist bool) {
	sess.stamp(a.now())

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()

	a.transport.SetAccessToken(sess.AccessToken)
	if persist && a.store != nil {
		if err := a.store.Save(ctx, sess); err != nil {
			a.logger.Warn("failed to persist session", slog.String("error", err.Error()))
		}
	}
}

// signOutLocal drops the session and notifies listeners once
func (a *AuthClient) signOutLocal(ctx context.Context) {
	a.mu.Lock()
	had := a.session != nil
	a.session = nil
	a.mu.Unlock()

	a.discard(ctx)
	if had {
		a.emit(EventSignedOut, nil)
	}
}

func (a *AuthClient) discard(ctx context.Context) {
	a.transport.SetAccessToken("")
	if a.store != nil {
		if err := a.store.Clear(ctx); err != nil {
			a.logger.Warn("failed to clear stored session", slog.String("error", err.Error()))
		}
	}
}

func (a *AuthClient) emit(event AuthEvent, sess *Session) {
	a.mu.Lock()
	fns := make([]AuthListener, 0, len(a.listeners))
	// Registration order
	for i := 0; i < a.nextID; i++ {
		if fn, ok := a.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(event, sess)
	}
}

func (a *AuthClient) takePending(state string) (pendingFlow, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prunePendingLocked()

	if state == "" {
		if len(a.pending) != 1 {
			return pendingFlow{}, false
		}
		for k := range a.pending {
			state = k
		}
	}
	flow, ok := a.pending[state]
	if ok {
		delete(a.pending, state)
	}
	return flow, ok
}

func (a *AuthClient) prunePendingLocked() {
	cutoff := a.now().Add(-flowTTL)
	for k, f := range a.pending {
		if f.created.Before(cutoff) {
			delete(a.pending, k)
		}
	}
}

// withState appends the flow state to the redirect target
func withState(redirectURL, state string) (string, error) {
	if redirectURL == "" {
		return "", errors.New("redirect url is empty")
	}
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
