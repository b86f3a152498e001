// Package topology provides the in-memory particle/topology store and the
// loaders shared by every store implementation.
//
// Memory records each bond on its owning particle, the way a particle's
// bond list does in a simulation engine. The same pair may be recorded on
// both sides; nothing here prevents it.
//
// Store implementations:
//   - Memory (this package): per-worker, in-process
//   - store.Store: SQLite-backed, used by the CLI
//
// Both satisfy breakage.Topology and Builder, so Load and Hash work on
// either.
package topology
