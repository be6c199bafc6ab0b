// Package store provides the SQLite-backed operation log.
//
// The log is append-only. Each row is one operation in its wire shape plus
// the store-assigned seq and a content hash.
//
// # Ordering
//
// All reads use ORDER BY seq ASC. created_at is never used for ordering, so
// every reader folds the same operations in the same order regardless of
// client clocks.
//
// # Idempotency
//
// Appending an operation whose id is already stored with the same content
// is a no-op that reports the existing seq. The same id with different
// content is rejected with ErrConflict.
//
// # Schema
//
// Open applies schema.sql and then every migration newer than the file's
// PRAGMA user_version. The log runs in WAL mode so readers (the polling
// Source, CLI queries) never block the appender.
package store
