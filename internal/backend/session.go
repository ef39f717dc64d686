package backend

import (
	"time"

	"github.com/popitgo/client/pkg/jwt"
)

// expiryMargin treats a token as expired slightly before its exp claim
const expiryMargin = 10 * time.Second

// Session is a signed-in session as issued by the auth API
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// User is the auth user attached to a session
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
}

// Expiry returns when the access token expires. It prefers expires_at and
// falls back to the token's exp claim. The zero time means unknown.
func (s *Session) Expiry() time.Time {
	if s == nil {
		return time.Time{}
	}
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	claims, err := jwt.Decode(s.AccessToken)
	if err != nil {
		return time.Time{}
	}
	return claims.Expiry()
}

// ExpiredAt reports whether the access token is no longer usable at now.
// A session with unknown expiry is treated as live.
func (s *Session) ExpiredAt(now time.Time) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !now.Before(exp.Add(-expiryMargin))
}

// stamp fills ExpiresAt from ExpiresIn when the auth API omitted it
func (s *Session) stamp(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}
