// Package ir provides the shared value types for bondbreak.
//
// This package contains type definitions and canonical serialization only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Particle ids and bond types are plain integers (no floats anywhere)
//   - BreakEvent is an immutable value, copied, never shared by pointer
//   - All JSON tags use snake_case
//   - Topology snapshots serialize through MarshalCanonical only
package ir
