// Package store provides the SQLite-backed event journal for gavel.
//
// The store keeps two append-only tables:
//   - events: every committed auction event, keyed by seq
//   - transfers: completed payouts, keyed by the Withdrawn event they settle
//
// *Store implements engine.Journal (Append) and engine.Transferer (Transfer),
// so a registry wired to a store is durable without further glue.
//
// # Ordering
//
// seq is the primary key. Every read orders by seq ASC, never by time, so a
// replay sees events exactly as they were committed. Two processes that
// restored the same journal and then both try to append the next seq collide
// on the key; the loser gets ErrConflict and must reload.
//
// # Integrity
//
// Each row stores the event's canonical JSON next to its columns. Reads
// recompute the content id from the canonical form and reject rows whose id
// or columns no longer match.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
