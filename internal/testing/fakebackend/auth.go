package fakebackend

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/popitgo/client/internal/backend"
	"github.com/popitgo/client/pkg/jwt"
)

// TokenTTL is the lifetime of issued access tokens
const TokenTTL = time.Hour

type authState struct {
	users     map[string]*backend.User // by id
	challenge string
	provider  string
	loginFor  string

	codes   map[string]string // provider code -> user id
	refresh map[string]string // refresh token -> user id
	revoked map[string]bool   // access tokens
}

func newAuthState() authState {
	return authState{
		users:   make(map[string]*backend.User),
		codes:   make(map[string]string),
		refresh: make(map[string]string),
		revoked: make(map[string]bool),
	}
}

func (s *authState) subjectOf(token string) string {
	if token == "" || s.revoked[token] {
		return ""
	}
	claims, err := jwt.Decode(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// AddUser registers an auth user. The next provider sign-in logs in as the
// most recently added user.
func (b *Backend) AddUser(u backend.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user := u
	b.auth.users[u.ID] = &user
	b.auth.loginFor = u.ID
}

// SetRole stores a profile row with role for userID
func (b *Backend) SetRole(userID, role string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r := b.findLocked(TableProfiles, userID); r != nil {
		r["role"] = role
		return
	}
	b.insertLocked(TableProfiles, Row{"id": userID, "role": role})
}

// IssueCode simulates the provider redirect and returns the code the
// callback would receive
func (b *Backend) IssueCode() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	code := uuid.NewString()
	b.auth.codes[code] = b.auth.loginFor
	return code
}

// NewSession issues a session for userID without a browser flow.
// A negative ttl yields an already expired access token.
func (b *Backend) NewSession(userID string, ttl time.Duration) *backend.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(userID, ttl)
}

// LastChallenge returns the PKCE challenge from the latest authorize request
func (b *Backend) LastChallenge() (provider, challenge string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.auth.provider, b.auth.challenge
}

func (b *Backend) issueLocked(userID string, ttl time.Duration) *backend.Session {
	now := b.now()
	exp := now.Add(ttl)
	claims := jwt.Claims{
		Subject:   userID,
		Role:      "authenticated",
		IssuedAt:  now.Unix(),
		ExpiresAt: exp.Unix(),
		SessionID: uuid.NewString(),
	}
	if u := b.auth.users[userID]; u != nil {
		claims.Email = u.Email
	}
	token, _ := jwt.Encode(claims)
	refresh := uuid.NewString()
	b.auth.refresh[refresh] = userID

	var user *backend.User
	if u := b.auth.users[userID]; u != nil {
		cp := *u
		user = &cp
	}
	return &backend.Session{
		AccessToken:  token,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(ttl / time.Second),
		ExpiresAt:    exp.Unix(),
		User:         user,
	}
}

// ===== backend.Authenticator =====

// AuthorizeURL implements backend.Authenticator
func (b *Backend) AuthorizeURL(provider, redirectTo, codeChallenge string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth.provider = provider
	b.auth.challenge = codeChallenge

	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return "https://fake.backend/auth/v1/authorize?" + q.Encode(), nil
}

// ExchangeCode implements backend.Authenticator
func (b *Backend) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*backend.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures["auth:token"]; err != nil {
		return nil, err
	}
	userID, ok := b.auth.codes[authCode]
	if !ok {
		return nil, &backend.AuthError{Status: 404, Code: "flow_state_not_found", Message: "invalid flow state, no valid flow state found"}
	}
	sum := sha256.Sum256([]byte(codeVerifier))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != b.auth.challenge {
		return nil, &backend.AuthError{Status: 400, Code: "bad_code_verifier", Message: "code challenge does not match previously saved code verifier"}
	}
	delete(b.auth.codes, authCode)
	return b.issueLocked(userID, TokenTTL), nil
}

// RefreshSession implements backend.Authenticator
func (b *Backend) RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures["auth:refresh"]; err != nil {
		return nil, err
	}
	userID, ok := b.auth.refresh[refreshToken]
	if !ok {
		return nil, &backend.AuthError{Status: 400, Code: "refresh_token_not_found", Message: "Invalid Refresh Token: Refresh Token Not Found"}
	}
	delete(b.auth.refresh, refreshToken)
	return b.issueLocked(userID, TokenTTL), nil
}

// User implements backend.Authenticator
func (b *Backend) User(ctx context.Context, accessToken string) (*backend.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures["auth:user"]; err != nil {
		return nil, err
	}
	uid := b.auth.subjectOf(accessToken)
	u := b.auth.users[uid]
	if u == nil {
		return nil, &backend.AuthError{Status: 401, Code: "bad_jwt", Message: "invalid JWT"}
	}
	cp := *u
	return &cp, nil
}

// Logout implements backend.Authenticator
func (b *Backend) Logout(ctx context.Context, accessToken string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures["auth:logout"]; err != nil {
		return err
	}
	uid := b.auth.subjectOf(accessToken)
	b.auth.revoked[accessToken] = true
	for rt, owner := range b.auth.refresh {
		if owner == uid {
			delete(b.auth.refresh, rt)
		}
	}
	return nil
}
