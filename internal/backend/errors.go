package backend

import (
	"errors"
	"fmt"
)

// Error codes shared by the transports
const (
	// CodeNoRows is reported when a single-row query matched nothing
	CodeNoRows = "PGRST116"
	// CodeMultipleRows is reported when a single-row query matched more than one row
	CodeMultipleRows = "PGRST117"
	// CodeUnfiltered is reported when an update or delete has no filter
	CodeUnfiltered = "PGRST_UNFILTERED"
	// CodeTransport is reported when the request never got a response
	CodeTransport = "TRANSPORT"
	// CodeDecode is reported when a response body could not be decoded
	CodeDecode = "DECODE"
)

var (
	// ErrSessionMissing indicates there is no signed-in session
	ErrSessionMissing = errors.New("auth session missing")

	// ErrAuthUnavailable indicates the client was built without an authenticator
	ErrAuthUnavailable = errors.New("auth not configured")

	// ErrUnknownFlow indicates an OAuth callback with no matching sign-in
	ErrUnknownFlow = errors.New("unknown or expired sign-in flow")
)

// Error is a failed backend data call
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "backend call failed"
	}
	switch {
	case e.Code != "" && e.Status != 0:
		return fmt.Sprintf("%s (code %s, status %d)", msg, e.Code, e.Status)
	case e.Code != "":
		return fmt.Sprintf("%s (code %s)", msg, e.Code)
	case e.Status != 0:
		return fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	return msg
}

// IsNoRows reports whether err is a single-row query that matched nothing
func IsNoRows(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Code == CodeNoRows
}

// AuthError is a failed call to the auth API
type AuthError struct {
	Status  int    `json:"-"`
	Code    string `json:"error_code,omitempty"`
	Message string `json:"msg,omitempty"`
	Err     error  `json:"-"`
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "auth request failed"
	}
	if e.Status != 0 {
		return fmt.Sprintf("auth: %s (status %d)", msg, e.Status)
	}
	return "auth: " + msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether the auth API rejected the token itself
func (e *AuthError) IsUnauthorized() bool {
	return e.Status == 401 || e.Status == 403
}
