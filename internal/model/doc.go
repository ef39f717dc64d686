// Package model defines the records exchanged with the reservation backend.
//
// Every entity has two shapes:
//
//   - a client record (Event, Notification, Note, VisitReservation,
//     InboxNotification, UserInfo) with camelCase JSON tags and time.Time
//     fields, held by the state containers;
//   - a server record (EventRecord, NotificationRecord, ...) with snake_case
//     JSON tags and nullable timestamp strings, exactly as the backend's
//     procedures return it.
//
// Conversion between the two lives in package transform.
//
// # Identifiers
//
// Ids are assigned by the backend. Server records carry them as ID, which
// decodes both numeric and text keys; client records use plain strings.
//
// # Catalog
//
// catalog.go holds the fixed option lists offered by the UI: event
// categories, reminder offsets and reservation platforms.
package model
