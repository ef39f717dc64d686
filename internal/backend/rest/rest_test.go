package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/internal/config"
)

// ============================================================================
// Helper Functions
// ============================================================================

type capturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Query = r.URL.Query()
		captured.Header = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &captured.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTransport(t *testing.T, baseURL string) *Transport {
	t.Helper()
	tr, err := New(config.BackendConfig{URL: baseURL, Key: "anon-key", Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	return tr
}

// ============================================================================
// New Tests
// ============================================================================

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cases := []config.BackendConfig{
		{URL: "", Key: "k"},
		{URL: "https://x.example", Key: ""},
		{URL: "not a url", Key: "k"},
		{URL: "ftp://x.example", Key: "k"},
	}
	for _, cfg := range cases {
		_, err := New(cfg, nil)
		assert.ErrorIs(t, err, config.ErrConfiguration, "cfg %+v", cfg)
	}
}

// ============================================================================
// Invoke Tests
// ============================================================================

func TestInvoke_PostsParamsWithKeyHeaders(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusOK, `[{"id": 42, "title": "Concert A"}]`)
	tr := newTransport(t, srv.URL)

	raw, err := tr.Invoke(context.Background(), "list_events", map[string]any{"p_category": "concert"})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": 42, "title": "Concert A"}]`, string(raw))

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/rpc/list_events", req.Path)
	assert.Equal(t, "anon-key", req.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", req.Header.Get("Authorization"))
	assert.Equal(t, "concert", req.Body["p_category"])
}

func TestInvoke_UsesAccessTokenOnceSet(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusOK, `null`)
	tr := newTransport(t, srv.URL)

	tr.SetAccessToken("user-token")
	_, err := tr.Invoke(context.Background(), "list_notes", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", req.Header.Get("Authorization"))
	assert.Equal(t, "anon-key", req.Header.Get("apikey"))

	tr.SetAccessToken("")
	_, err = tr.Invoke(context.Background(), "list_notes", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer anon-key", req.Header.Get("Authorization"))
}

func TestInvoke_NoContent(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, http.StatusNoContent, ``)
	tr := newTransport(t, srv.URL)

	raw, err := tr.Invoke(context.Background(), "delete_event", map[string]any{"p_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestInvoke_MapsErrorBody(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, http.StatusBadRequest,
		`{"code":"23505","message":"duplicate key value","details":"Key (id)=(1) already exists.","hint":null}`)
	tr := newTransport(t, srv.URL)

	_, err := tr.Invoke(context.Background(), "create_event", map[string]any{})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, be.Status)
	assert.Equal(t, "23505", be.Code)
	assert.Equal(t, "duplicate key value", be.Message)
	assert.Equal(t, "Key (id)=(1) already exists.", be.Details)
	assert.Empty(t, be.Hint)
}

func TestInvoke_NonJSONError(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, http.StatusBadGateway, `upstream unavailable`)
	tr := newTransport(t, srv.URL)

	_, err := tr.Invoke(context.Background(), "list_events", map[string]any{})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadGateway, be.Status)
	assert.Equal(t, "upstream unavailable", be.Message)
}

func TestInvoke_ConnectionRefused(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, http.StatusOK, `null`)
	tr := newTransport(t, srv.URL)
	srv.Close()

	_, err := tr.Invoke(context.Background(), "list_events", map[string]any{})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, backend.CodeTransport, be.Code)
}

func TestInvoke_CanceledContext(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, http.StatusOK, `null`)
	tr := newTransport(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Invoke(ctx, "list_events", map[string]any{})
	assert.True(t, errors.Is(err, context.Canceled))
}

// ============================================================================
// Table Tests
// ============================================================================

func TestSelect_RendersFiltersOrderAndLimit(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusOK, `[{"role":"admin"}]`)
	tr := newTransport(t, srv.URL)

	q := backend.Query{
		Table:   "resv_profiles",
		Columns: []string{"role"},
		Filters: []backend.Filter{{Column: "id", Value: "user-1"}},
		Orders:  []backend.Order{{Column: "created_at", Ascending: false}, {Column: "id", Ascending: true}},
		Limit:   1,
	}
	raw, err := tr.Select(context.Background(), q)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"admin"}]`, string(raw))

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/rest/v1/resv_profiles", req.Path)
	assert.Equal(t, "role", req.Query.Get("select"))
	assert.Equal(t, "eq.user-1", req.Query.Get("id"))
	assert.Equal(t, "created_at.desc,id.asc", req.Query.Get("order"))
	assert.Equal(t, "1", req.Query.Get("limit"))
}

func TestInsert_AsksForRepresentation(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusCreated, `[{"id":1,"title":"x"}]`)
	tr := newTransport(t, srv.URL)

	_, err := tr.Insert(context.Background(), backend.Query{Table: "events"}, map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "return=representation", req.Header.Get("Prefer"))
	assert.Equal(t, "x", req.Body["title"])
}

func TestUpdateAndDelete_CarryFilters(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusOK, `[]`)
	tr := newTransport(t, srv.URL)
	q := backend.Query{Table: "events", Filters: []backend.Filter{{Column: "id", Value: 42}}}

	_, err := tr.Update(context.Background(), q, map[string]any{"title": "y"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "eq.42", req.Query.Get("id"))

	require.NoError(t, tr.Delete(context.Background(), q))
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "eq.42", req.Query.Get("id"))
}

// ============================================================================
// AuthAPI Tests
// ============================================================================

func TestAuthorizeURL(t *testing.T) {
	t.Parallel()
	api, err := NewAuth("https://abc.backend.example/", "anon-key", time.Second, nil)
	require.NoError(t, err)

	raw, err := api.AuthorizeURL("kakao", "http://localhost:5173/auth/callback?state=s1", "challenge")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc.backend.example", u.Host)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "kakao", u.Query().Get("provider"))
	assert.Equal(t, "http://localhost:5173/auth/callback?state=s1", u.Query().Get("redirect_to"))
	assert.Equal(t, "challenge", u.Query().Get("code_challenge"))
	assert.Equal(t, "s256", u.Query().Get("code_challenge_method"))

	_, err = api.AuthorizeURL("github", "http://localhost/cb", "c")
	var ae *backend.AuthError
	assert.ErrorAs(t, err, &ae)
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusOK,
		`{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":3600,"expires_at":1900000000,"user":{"id":"u1","email":"a@b.c"}}`)
	api, err := NewAuth(srv.URL, "anon-key", time.Second, nil)
	require.NoError(t, err)

	sess, err := api.ExchangeCode(context.Background(), "code-1", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, int64(1900000000), sess.ExpiresAt)
	require.NotNil(t, sess.User)
	assert.Equal(t, "u1", sess.User.ID)

	assert.Equal(t, "/auth/v1/token", req.Path)
	assert.Equal(t, "pkce", req.Query.Get("grant_type"))
	assert.Equal(t, "code-1", req.Body["auth_code"])
	assert.Equal(t, "verifier-1", req.Body["code_verifier"])
}

func TestRefreshSession_ErrorBody(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusBadRequest,
		`{"code":400,"error_code":"refresh_token_not_found","msg":"Invalid Refresh Token: Refresh Token Not Found"}`)
	api, err := NewAuth(srv.URL, "anon-key", time.Second, nil)
	require.NoError(t, err)

	_, err = api.RefreshSession(context.Background(), "rt")
	var ae *backend.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "refresh_token_not_found", ae.Code)
	assert.Contains(t, ae.Message, "Refresh Token Not Found")
	assert.Equal(t, "refresh_token", req.Query.Get("grant_type"))
}

func TestUser_SendsBearerToken(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusOK, `{"id":"u1","email":"a@b.c","user_metadata":{"full_name":"Alice"}}`)
	api, err := NewAuth(srv.URL, "anon-key", time.Second, nil)
	require.NoError(t, err)

	user, err := api.User(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.UserMetadata["full_name"])
	assert.Equal(t, "Bearer at", req.Header.Get("Authorization"))
	assert.Equal(t, "/auth/v1/user", req.Path)
}

func TestUser_Unauthorized(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{"code":401,"error_code":"bad_jwt","msg":"invalid JWT"}`)
	api, err := NewAuth(srv.URL, "anon-key", time.Second, nil)
	require.NoError(t, err)

	_, err = api.User(context.Background(), "stale")
	var ae *backend.AuthError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.IsUnauthorized())
}

func TestLogout(t *testing.T) {
	t.Parallel()
	srv, req := newTestServer(t, http.StatusNoContent, ``)
	api, err := NewAuth(srv.URL, "anon-key", time.Second, nil)
	require.NoError(t, err)

	require.NoError(t, api.Logout(context.Background(), "at"))
	assert.Equal(t, "/auth/v1/logout", req.Path)
	assert.Equal(t, "local", req.Query.Get("scope"))
	assert.Equal(t, "Bearer at", req.Header.Get("Authorization"))
}
