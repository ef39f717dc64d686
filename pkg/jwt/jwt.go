package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
)

// Claims represents the claims carried by a backend access token
type Claims struct {
	// Standard claims
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Audience  any    `json:"aud,omitempty"` // string or []string
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	JWTID     string `json:"jti,omitempty"`

	// Backend claims
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"` // authenticated, anon, service_role
	SessionID    string         `json:"session_id,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Valid checks if the claims are valid at the current time
func (c *Claims) Valid() error {
	return c.ValidAt(time.Now())
}

// ValidAt checks the time-based claims against now
func (c *Claims) ValidAt(now time.Time) error {
	unix := now.Unix()

	if c.ExpiresAt != 0 && unix > c.ExpiresAt {
		return ErrTokenExpired
	}

	if c.NotBefore != 0 && unix < c.NotBefore {
		return ErrTokenNotYetValid
	}

	return nil
}

// Expiry returns the expiration time, or the zero time if the token never expires
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}

// ExpiresWithin reports whether the token expires before now+window
func (c *Claims) ExpiresWithin(now time.Time, window time.Duration) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return now.Add(window).Unix() >= c.ExpiresAt
}

// Decode parses a token's claims without verifying its signature.
// The client never holds the backend's signing key; the backend verifies
// every request, so the claims are used only for expiry bookkeeping.
func Decode(tokenString string) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	headerJSON, err := base64URLDecode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	var header map[string]any
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidToken, err)
	}
	if typ, ok := header["typ"].(string); ok && !strings.EqualFold(typ, "JWT") {
		return nil, fmt.Errorf("%w: unexpected typ %q", ErrInvalidToken, typ)
	}

	claimsJSON, err := base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}

	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}

	return &claims, nil
}

// Encode builds an unsigned token ("alg":"none") carrying claims.
// Used by fakes and tests that stand in for the backend's token issuer.
func Encode(claims Claims) (string, error) {
	headerJSON, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return base64URLEncode(headerJSON) + "." + base64URLEncode(claimsJSON) + ".", nil
}

func base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
