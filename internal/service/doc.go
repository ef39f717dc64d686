// Package service wraps the backend's remote procedures, one operation per
// verb per entity.
//
// # Service Pattern
//
// All services follow a consistent pattern:
//
//   - Constructor function (NewXxxService) accepts the backend handle
//   - Each method invokes one procedure with a p_-prefixed parameter record
//   - Results pass through package transform before they are returned
//   - Context is passed through for cancellation
//
// Services validate nothing themselves; the backend enforces authorization
// and constraints.
//
// # Results
//
// Procedures answer with a row, a set of rows, a bare id, or nothing.
// Create and Update accept all of these: a bare id or an empty answer is
// followed by a read of the stored row, so callers always receive the
// server's copy. Get returns (nil, nil) when no row matches.
//
// # Error Handling
//
// Backend failures are returned as *Error, which names the procedure and
// unwraps to the *backend.Error:
//
//	ev, err := events.Get(ctx, id)
//	var be *backend.Error
//	if errors.As(err, &be) && be.Code == "42501" {
//	    // Permission denied by row-level security
//	}
//
// Message renders any error for display with a fallback text.
//
// # Example Usage
//
//	client := backend.New(transport, backend.Options{})
//	events := service.NewEventService(client)
//	list, err := events.List(ctx, model.EventFilter{Category: "concert"})
package service
