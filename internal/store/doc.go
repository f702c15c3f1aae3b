// Package store provides SQLite-backed storage for replications received by an
// ensemble coordinator.
//
// The store is an append-only table of transport payloads:
//   - Each row is one replication's flat form, msgpack encoded
//   - Rows are ordered by seq INTEGER (arrival order), never by timestamps
//   - digest is UNIQUE, so a worker that ships the same log twice is stored once
//
// Digests are computed with canonical.Digest over the flat form, using the
// histlog/replication/v1 domain.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: SQLite has a single writer
package store
