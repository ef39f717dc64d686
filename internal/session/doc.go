// Package session persists the signed-in backend session between runs.
//
// Three stores implement backend.SessionStore:
//   - MemoryStore keeps the session for the life of the process
//   - FileStore seals it with secretbox under a key derived from the API key
//   - RedisStore seals it the same way under one key, for shared deployments
//
// Every store returns (nil, nil) from Load when nothing is stored.
package session
