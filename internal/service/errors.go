package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/popitgo/client/internal/backend"
)

// Centralized service layer errors.
// Backend failures are returned as *Error wrapping the backend's own error;
// the sentinels below cover conditions the services detect themselves.

// ===== Result Errors =====
var (
	ErrRecordMissing  = errors.New("record not returned after write")
	ErrUnexpectedData = errors.New("unexpected procedure result")
)

// ===== Profile Errors =====
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUnknownRole     = errors.New("unknown role")
)

// Error is a failed service operation. Op names the procedure or table call.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// Message renders err for display. Backend and auth errors contribute their
// own message; anything else without text falls back to fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var be *backend.Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	var ae *backend.AuthError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fallback
	}
	var se *Error
	if errors.As(err, &se) {
		err = se.Err
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
