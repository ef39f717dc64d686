// Package transform maps backend rows to client records and back.
//
// Functions come in FromServer/ToServer pairs, one per entity. They are pure
// and total: no I/O, and a nil input returns nil. For every field present on
// both shapes the pair is a round trip, with timestamps compared as instants
// and rendered back as RFC 3339 UTC.
package transform
