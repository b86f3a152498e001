// Package store provides SQLite-backed durable storage for bondbreak.
//
// The store holds four things:
//   - Topology: particles (with virtual-site back-references) and bonds,
//     recorded on their owning particle. Store implements breakage.Topology.
//   - Configuration: declared bond types and the active handler chain, by name
//   - Pending queue: break events enqueued but not yet flushed
//   - Flush journal: one record per flush with the processed events, the
//     runtime errors, and topology hashes before and after
//
// # Critical Patterns
//
// Deterministic Query Results:
//   - Every list query has an explicit ORDER BY
//   - Pending events replay in enqueue order (seq)
//
// One-Sided Bond Records:
//   - A bond row belongs to its owner; BondExists never looks at the
//     partner's side
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
