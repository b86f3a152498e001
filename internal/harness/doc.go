// Package harness runs bond-breakage conformance scenarios.
//
// A scenario builds a small topology, configures the handler chain, drives
// the breakage subsystem through enqueue/flush steps, and asserts on what
// is left. Scenarios run against the real subsystem and a real store; the
// harness only supplies a deterministic clock, a fixed step token, and a
// buffer for diagnostic output.
//
// # Scenario Format
//
//	name: collision_cascade
//	description: "Collision bond breakage unbinds the real particles"
//	system: ../systems/collision.cue   # optional CUE system definition
//	topology: sqlite                    # or "memory"
//	particles:
//	  - id: 1
//	  - id: 10
//	    virtual_of: 1
//	bonds:
//	  - {owner: 10, type: 4, partner: 20}
//	handlers: [break_collision_bond]
//	flow:
//	  - enqueue: {type: 4, id1: 10, id2: 20}
//	  - flush: true
//	  - add_handlers: [no_such_handler]
//	    expect_error: "Unknown handler name no_such_handler"
//	assertions:
//	  - type: bond_absent
//	    between: [1, 2]
//	  - type: runtime_errors
//	    count: 0
//
// # Assertion Types
//
//   - bond_exists / bond_absent: a bond between the pair, on either side,
//     optionally restricted to bond_type
//   - runtime_errors: number of reported runtime errors, optionally by code
//   - queue_len: events still queued after the flow
//   - output_lines: exact diagnostic output
//   - topology_unchanged: final topology hash equals the initial one
//   - chain: active handler names after the flow
//
// # Golden Files
//
// RunWithGolden serializes the trace, the diagnostic output, and the final
// bonds as canonical JSON and compares them with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
