// Package breakage implements deferred bond breakage.
//
// Force evaluation and collision handling decide during a step that a bond
// should go away, but the particle and topology data is still being
// traversed at that point. Producers therefore Enqueue break events, and the
// simulation calls Flush once per step after the traversal window closes.
//
// ARCHITECTURE:
//
// Queue:
// Append-only FIFO of ir.BreakEvent values. No deduplication and no
// validation; each handler checks the topology itself.
//
// Registry:
// Immutable table from stable handler name to Handler. Built once
// (DefaultRegistry) and shared read-only between subsystem instances.
//
// Chain:
// Ordered handler references currently enabled. Empty by default, which
// disables breakage without disabling enqueuing.
//
// Flush Order:
//  1. For each queued event, in enqueue order
//  2. Invoke each chain handler, in chain order
//  3. Clear the processed events
//
// All handlers see event N before any handler sees event N+1.
//
// CONCURRENCY:
//
// None internal. A Subsystem is owned by one control goroutine per
// simulation worker. Chain configuration must not interleave with Flush.
// Separate Subsystem values share nothing but the read-only registry.
//
// ERRORS:
//
// Nothing in this package panics on bad input. Unknown handler names are
// returned as errors; per-event failures (a collision bond between
// non-virtual particles, a failing store) go to the ErrorReporter and the
// flush continues.
package breakage
