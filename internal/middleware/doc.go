// Package middleware provides HTTP middleware for the local OAuth callback
// server.
//
// The callback server only ever answers the provider's redirect, so the set
// is small:
//
//   - RequestID: tags each request with an id, reusing X-Request-ID
//   - Logger: one structured log line per request
//   - Recovery: turns a handler panic into a plain-text 500
//
// Compose them with Chain:
//
//	handler := middleware.Chain(router,
//	    middleware.RequestID,
//	    middleware.Logger(logger),
//	    middleware.Recovery(logger),
//	)
package middleware
