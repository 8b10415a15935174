// Package credentials holds the session's credential record: the access
// token, the refresh token and a snapshot of the signed-in user.
//
// # Lifecycle
//
// A Store is opened over a Persistence, which restores a previously saved
// record. Set replaces all three entries after a login, SetAccessToken swaps
// only the access token after a refresh, and Clear destroys the record on
// logout or when the session can no longer be refreshed.
//
// # Consistency
//
// The three entries are written and removed together. Reads are served from
// an in-memory snapshot and never wait for storage; writers are serialized.
// A persisted record that is partial or unreadable is discarded on Open.
//
// # Backends
//
//   - MemoryPersistence:  process-local map, used by tests
//   - SQLitePersistence:  metadata table in a local SQLite file
//   - RedisPersistence:   a Redis hash, shareable between processes
//   - SealedPersistence:  AES-GCM encryption at rest around any backend
package credentials
