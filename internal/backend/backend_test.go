package backend_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/session"
	"github.com/popitgo/client/internal/testing/fakebackend"
	"github.com/popitgo/client/pkg/jwt"
)

const redirectURL = "http://localhost:5173/auth/callback"

func newClient(t *testing.T) (*backend.Client, *fakebackend.Backend, *session.MemoryStore) {
	t.Helper()
	fb := fakebackend.New()
	store := session.NewMemoryStore()
	client := backend.New(fb, backend.Options{
		Authenticator: fb,
		Sessions:      store,
		RedirectURL:   redirectURL,
	})
	return client, fb, store
}

type eventLog struct {
	mu     sync.Mutex
	events []backend.AuthEvent
}

func (l *eventLog) listen(e backend.AuthEvent, _ *backend.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []backend.AuthEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]backend.AuthEvent(nil), l.events...)
}

// ============================================================================
// Invoke
// ============================================================================

func TestInvoke_DecodesResult(t *testing.T) {
	t.Parallel()
	client, fb, _ := newClient(t)
	fb.Handle("echo", func(ctx context.Context, params map[string]any) (any, error) {
		return map[string]any{"value": params["p_value"]}, nil
	})

	var out struct {
		Value string `json:"value"`
	}
	err := client.Invoke(context.Background(), "echo", map[string]any{"p_value": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Value)
}

func TestInvoke_NilParamsSendsEmptyObject(t *testing.T) {
	t.Parallel()
	client, fb, _ := newClient(t)

	require.NoError(t, client.Invoke(context.Background(), "mark_all_notifications_as_read", nil, nil))
	calls := fb.Calls()
	require.Len(t, calls, 1)
	assert.NotNil(t, calls[0].Params)
}

func TestInvoke_UnknownProcedure(t *testing.T) {
	t.Parallel()
	client, _, _ := newClient(t)

	err := client.Invoke(context.Background(), "no_such_fn", nil, nil)
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "PGRST202", be.Code)
	assert.Equal(t, 404, be.Status)
}

func TestInvoke_WrapsTransportFailure(t *testing.T) {
	t.Parallel()
	client, fb, _ := newClient(t)
	fb.Fail("list_events", errors.New("connection reset"))

	err := client.Invoke(context.Background(), "list_events", nil, nil)
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, backend.CodeTransport, be.Code)
	assert.Contains(t, be.Error(), "connection reset")
}

func TestInvoke_ContextCanceledPassesThrough(t *testing.T) {
	t.Parallel()
	client, fb, _ := newClient(t)
	fb.Fail("list_events", context.Canceled)

	err := client.Invoke(context.Background(), "list_events", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================================
// Query builder
// ============================================================================

func TestFrom_SelectSingle(t *testing.T) {
	t.Parallel()
	client, fb, _ := newClient(t)
	fb.SetRole("user-1", "admin")
	fb.SetRole("user-2", "user")

	var profile struct {
		Role string `json:"role"`
	}
	err := client.From("resv_profiles").Columns("role").Eq("id", "user-1").Single().Select(context.Background(), &profile)
	require.NoError(t, err)
	assert.Equal(t, "admin", profile.Role)
}

func TestFrom_SelectSingle_NoRows(t *testing.T) {
	t.Parallel()
	client, _, _ := newClient(t)

	var profile map[string]any
	err := client.From("resv_profiles").Eq("id", "nobody").Single().Select(context.Background(), &profile)
	assert.True(t, backend.IsNoRows(err))
}

func TestFrom_SelectSingle_MultipleRows(t *testing.T) {
	t.Parallel()
	client, fb, _ := newClient(t)
	fb.Seed("tags", fakebackend.Row{"name": "a"}, fakebackend.Row{"name": "a"})

	var row map[string]any
	err := client.From("tags").Eq("name", "a").Single().Select(context.Background(), &row)
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, backend.CodeMultipleRows, be.Code)
}

func TestFrom_SelectOrderedAndLimited(t *testing.T) {
	t.Parallel()
	client, fb, _ := newClient(t)
	fb.Seed("events",
		fakebackend.Row{"title": "c", "reservation_start": "2025-03-01T00:00:00Z"},
		fakebackend.Row{"title": "a", "reservation_start": "2025-01-01T00:00:00Z"},
		fakebackend.Row{"title": "b", "reservation_start": "2025-02-01T00:00:00Z"},
	)

	var rows []struct {
		Title string `json:"title"`
	}
	err := client.From("events").Order("reservation_start", true).Limit(2).Select(context.Background(), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Title)
	assert.Equal(t, "b", rows[1].Title)
}

func TestFrom_InsertUpdateDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, _ := newClient(t)

	var created struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, client.From("events").Single().Insert(ctx, map[string]any{"title": "x"}, &created))
	assert.Equal(t, int64(1), created.ID)

	var updated []map[string]any
	require.NoError(t, client.From("events").Eq("id", created.ID).Update(ctx, map[string]any{"title": "y"}, &updated))
	require.Len(t, updated, 1)
	assert.Equal(t, "y", updated[0]["title"])

	require.NoError(t, client.From("events").Eq("id", created.ID).Delete(ctx))
	assert.Empty(t, fb.Rows("events"))
}

func TestFrom_UnfilteredWritesRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, _ := newClient(t)

	err := client.From("events").Update(ctx, map[string]any{"title": "y"}, nil)
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, backend.CodeUnfiltered, be.Code)

	err = client.From("events").Delete(ctx)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, backend.CodeUnfiltered, be.Code)
	assert.Zero(t, fb.CallCount("events"), "no call reaches the transport")
}

// ============================================================================
// Auth
// ============================================================================

func TestGetUser_NoSession(t *testing.T) {
	t.Parallel()
	client, _, _ := newClient(t)

	user, err := client.Auth().GetUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestGetUser_WithoutAuthenticator(t *testing.T) {
	t.Parallel()
	client := backend.New(fakebackend.New(), backend.Options{})

	_, err := client.Auth().GetUser(context.Background())
	assert.ErrorIs(t, err, backend.ErrAuthUnavailable)
}

func TestOAuthFlow_SignInAndOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, store := newClient(t)
	fb.AddUser(backend.User{ID: "user-1", Email: "a@example.com", UserMetadata: map[string]any{"full_name": "Alice"}})

	var log eventLog
	unsubscribe := client.Auth().OnAuthStateChange(log.listen)
	defer unsubscribe()

	redirect, err := client.Auth().SignInWithOAuth(ctx, "kakao")
	require.NoError(t, err)
	assert.Equal(t, "kakao", redirect.Provider)
	assert.NotEmpty(t, redirect.State)

	u, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	assert.Equal(t, "kakao", u.Query().Get("provider"))
	back, err := url.Parse(u.Query().Get("redirect_to"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/callback", back.Path)
	assert.Equal(t, redirect.State, back.Query().Get("state"))
	_, challenge := fb.LastChallenge()
	assert.Len(t, challenge, 43)

	sess, err := client.Auth().ExchangeCode(ctx, fb.IssueCode(), redirect.State)
	require.NoError(t, err)
	assert.Equal(t, sess.AccessToken, fb.AccessToken())

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, sess.RefreshToken, stored.RefreshToken)

	user, err := client.Auth().GetUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "a@example.com", user.Email)

	require.NoError(t, client.Auth().SignOut(ctx))
	assert.Empty(t, fb.AccessToken())
	stored, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	user, err = client.Auth().GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.Equal(t, []backend.AuthEvent{backend.EventSignedIn, backend.EventSignedOut}, log.all())
}

func TestSignInWithOAuth_FreshChallengePerFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, _ := newClient(t)

	_, err := client.Auth().SignInWithOAuth(ctx, "kakao")
	require.NoError(t, err)
	_, first := fb.LastChallenge()
	_, err = client.Auth().SignInWithOAuth(ctx, "google")
	require.NoError(t, err)
	provider, second := fb.LastChallenge()

	assert.Equal(t, "google", provider)
	assert.Len(t, first, 43)
	assert.Len(t, second, 43)
	assert.NotEqual(t, first, second)
	assert.NotContains(t, second, "=", "S256 challenges are unpadded base64url")
}

func TestExchangeCode_UnknownState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, _ := newClient(t)
	fb.AddUser(backend.User{ID: "user-1"})

	_, err := client.Auth().SignInWithOAuth(ctx, "google")
	require.NoError(t, err)

	_, err = client.Auth().ExchangeCode(ctx, fb.IssueCode(), "not-the-state")
	assert.ErrorIs(t, err, backend.ErrUnknownFlow)
}

func TestExchangeCode_EmptyStateWithSinglePendingFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, _ := newClient(t)
	fb.AddUser(backend.User{ID: "user-1"})

	_, err := client.Auth().SignInWithOAuth(ctx, "google")
	require.NoError(t, err)

	sess, err := client.Auth().ExchangeCode(ctx, fb.IssueCode(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
}

func TestSignInWithOAuth_RequiresProvider(t *testing.T) {
	t.Parallel()
	client, _, _ := newClient(t)

	_, err := client.Auth().SignInWithOAuth(context.Background(), "")
	var ae *backend.AuthError
	assert.ErrorAs(t, err, &ae)
}

func TestSignOut_RemoteFailureStillClearsLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, store := newClient(t)
	fb.AddUser(backend.User{ID: "user-1"})
	require.NoError(t, store.Save(ctx, fb.NewSession("user-1", time.Hour)))
	require.NoError(t, client.Auth().Restore(ctx))

	fb.Fail("auth:logout", &backend.AuthError{Status: 500, Message: "boom"})
	err := client.Auth().SignOut(ctx)
	assert.Error(t, err)
	assert.Empty(t, fb.AccessToken())
}

func TestOnAuthStateChange_Unsubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, _ := newClient(t)
	fb.AddUser(backend.User{ID: "user-1"})

	var log eventLog
	unsubscribe := client.Auth().OnAuthStateChange(log.listen)
	unsubscribe()
	unsubscribe()

	r, err := client.Auth().SignInWithOAuth(ctx, "kakao")
	require.NoError(t, err)
	_, err = client.Auth().ExchangeCode(ctx, fb.IssueCode(), r.State)
	require.NoError(t, err)
	assert.Empty(t, log.all())
}

// ============================================================================
// Session restore
// ============================================================================

func TestRestore_LiveSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, store := newClient(t)
	fb.AddUser(backend.User{ID: "user-1"})
	sess := fb.NewSession("user-1", time.Hour)
	require.NoError(t, store.Save(ctx, sess))

	require.NoError(t, client.Auth().Restore(ctx))
	assert.Equal(t, sess.AccessToken, fb.AccessToken())

	user, err := client.Auth().GetUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)
}

func TestRestore_ExpiredSessionRefreshedOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, store := newClient(t)
	fb.AddUser(backend.User{ID: "user-1"})
	expired := fb.NewSession("user-1", -time.Minute)
	require.NoError(t, store.Save(ctx, expired))

	var log eventLog
	client.Auth().OnAuthStateChange(log.listen)

	require.NoError(t, client.Auth().Restore(ctx))
	assert.NotEqual(t, expired.AccessToken, fb.AccessToken())
	assert.NotEmpty(t, fb.AccessToken())
	assert.Equal(t, []backend.AuthEvent{backend.EventTokenRefreshed}, log.all())

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, expired.RefreshToken, stored.RefreshToken)
}

func TestRestore_ExpiredSessionRefreshFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, fb, store := newClient(t)
	expired := fb.NewSession("user-1", -time.Minute)
	expired.RefreshToken = "unknown"
	require.NoError(t, store.Save(ctx, expired))

	require.NoError(t, client.Auth().Restore(ctx))
	assert.Empty(t, fb.AccessToken())

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Zero(t, countKind(fb.Calls(), "select"), "restore makes no data calls")
}

func countKind(calls []fakebackend.Call, kind string) int {
	n := 0
	for _, c := range calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// ============================================================================
// Session expiry
// ============================================================================

func TestSession_ExpiryFallsBackToTokenClaims(t *testing.T) {
	t.Parallel()
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token, err := jwt.Encode(jwt.Claims{Subject: "user-1", ExpiresAt: exp.Unix()})
	require.NoError(t, err)

	s := &backend.Session{AccessToken: token}
	assert.True(t, exp.Equal(s.Expiry()))
	assert.False(t, s.ExpiredAt(time.Now()))
	assert.True(t, s.ExpiredAt(exp))
	assert.True(t, s.ExpiredAt(exp.Add(-5*time.Second)), "tokens are treated as expired shortly before exp")
}

func TestSession_UnknownExpiryIsLive(t *testing.T) {
	t.Parallel()
	s := &backend.Session{AccessToken: "opaque"}
	assert.True(t, s.Expiry().IsZero())
	assert.False(t, s.ExpiredAt(time.Now()))
}

// ============================================================================
// Errors
// ============================================================================

func TestError_Message(t *testing.T) {
	t.Parallel()

	e := &backend.Error{Status: 400, Code: "23505", Message: "duplicate key"}
	assert.Equal(t, "duplicate key (code 23505, status 400)", e.Error())
	assert.Equal(t, "backend call failed", (&backend.Error{}).Error())

	ae := &backend.AuthError{Status: 401, Message: "invalid JWT"}
	assert.Equal(t, "auth: invalid JWT (status 401)", ae.Error())
	assert.True(t, ae.IsUnauthorized())
}
