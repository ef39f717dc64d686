// Package backend is the client-side handle to the hosted backend.
//
// A Client exposes three surfaces:
//   - Invoke: remote procedure calls with named parameters
//   - From: a small table query builder (exact-match filters, ordering, limit)
//   - Auth: current user, OAuth sign-in (PKCE), sign-out and auth events
//
// Data access goes through a Transport. Two implementations exist: the
// HTTP transport in backend/rest and the SurrealDB transport in
// backend/surreal. Auth goes through an Authenticator, which backend/rest
// implements for both drivers.
//
// # Errors
//
// Data failures are *Error (status, code, message, hint). Auth failures are
// *AuthError. A missing session is not an error for GetUser, which returns
// (nil, nil); other auth operations report ErrSessionMissing.
//
//	var be *backend.Error
//	if errors.As(err, &be) && be.Code == backend.CodeNoRows {
//	    // no matching row
//	}
package backend
