// Package ir defines the wire-level records shared by every gavel package:
// journal events, payouts, and the constrained value model used to hash them.
//
// ir imports nothing internal. Engine, store, registry and harness all speak
// in ir.Event so a journal written by one process can be replayed by another.
//
// Constraints:
//   - No floats. Amounts are int64 base units.
//   - Times are carried as unix nanoseconds so canonical JSON stays integral.
//   - Event ids are content-addressed (SHA-256 over canonical JSON with a
//     domain prefix) and are stable across replays.
package ir
