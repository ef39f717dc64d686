package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/popitgo/client/internal/backend"
)

// Providers accepted by AuthorizeURL
var Providers = []string{"kakao", "google"}

// AuthAPI implements backend.Authenticator against the /auth/v1 endpoints
type AuthAPI struct {
	http    *resty.Client
	baseURL string
	logger  *slog.Logger
}

var _ backend.Authenticator = (*AuthAPI)(nil)

// NewAuth validates the endpoint and returns an auth client. No request is made.
func NewAuth(baseURL, key string, timeout time.Duration, logger *slog.Logger) (*AuthAPI, error) {
	if err := validate(baseURL, key); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(baseURL, "/")
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("apikey", key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &AuthAPI{http: client, baseURL: base, logger: logger}, nil
}

// AuthorizeURL implements backend.Authenticator
func (a *AuthAPI) AuthorizeURL(provider, redirectTo, codeChallenge string) (string, error) {
	if !knownProvider(provider) {
		return "", &backend.AuthError{Code: "validation_failed", Message: fmt.Sprintf("unsupported provider %q", provider)}
	}
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return a.baseURL + "/auth/v1/authorize?" + q.Encode(), nil
}

// ExchangeCode implements backend.Authenticator
func (a *AuthAPI) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*backend.Session, error) {
	var sess backend.Session
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "pkce").
		SetBody(map[string]string{"auth_code": authCode, "code_verifier": codeVerifier}).
		SetResult(&sess).
		Post("/auth/v1/token")
	if err := a.check("token pkce", resp, err); err != nil {
		return nil, err
	}
	return &sess, nil
}

// RefreshSession implements backend.Authenticator
func (a *AuthAPI) RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error) {
	var sess backend.Session
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&sess).
		Post("/auth/v1/token")
	if err := a.check("token refresh", resp, err); err != nil {
		return nil, err
	}
	return &sess, nil
}

// User implements backend.Authenticator
func (a *AuthAPI) User(ctx context.Context, accessToken string) (*backend.User, error) {
	var user backend.User
	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&user).
		Get("/auth/v1/user")
	if err := a.check("user", resp, err); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout implements backend.Authenticator
func (a *AuthAPI) Logout(ctx context.Context, accessToken string) error {
	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParam("scope", "local").
		Post("/auth/v1/logout")
	return a.check("logout", resp, err)
}

type authErrorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func (a *AuthAPI) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		a.logger.Debug("auth request failed", slog.String("op", op), slog.String("error", err.Error()))
		return &backend.AuthError{Code: backend.CodeTransport, Err: err}
	}
	if !resp.IsError() {
		return nil
	}

	ae := &backend.AuthError{Status: resp.StatusCode()}
	var body authErrorBody
	if json.Unmarshal(resp.Body(), &body) == nil {
		ae.Code = firstNonEmpty(body.ErrorCode, body.Error)
		ae.Message = firstNonEmpty(body.Msg, body.Message, body.ErrorDescription, body.Error)
	}
	if ae.Message == "" {
		ae.Message = http.StatusText(resp.StatusCode())
	}
	return ae
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func knownProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}
