package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bondbreak/internal/ir"
)

// Scenario defines a bond-breakage conformance scenario.
// A scenario builds a topology, configures the handler chain, runs a flow
// of enqueue/flush steps, and asserts on the final topology, the runtime
// errors, the queue, and the diagnostic output.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// System is an optional path to a CUE file holding exactly one system
	// definition. Relative paths resolve against the scenario file.
	// Inline bond types, particles, bonds, and handlers are appended to it.
	System string `yaml:"system,omitempty"`

	// Topology selects the store: "sqlite" (default, in-memory database)
	// or "memory".
	Topology string `yaml:"topology,omitempty"`

	BondTypes []ir.BondTypeSpec `yaml:"bond_types,omitempty"`
	Particles []ir.ParticleSpec `yaml:"particles,omitempty"`
	Bonds     []ir.Bond         `yaml:"bonds,omitempty"`

	// Handlers is the initial chain, in order.
	Handlers []string `yaml:"handlers,omitempty"`

	// Flow is executed in order after setup.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`

	// StepToken pins the flush token for golden comparison.
	// If empty, defaults to "test-step-default".
	StepToken string `yaml:"step_token,omitempty"`
}

// Step is one flow action. Exactly one action field must be set.
type Step struct {
	// Enqueue queues a break event.
	Enqueue *ir.BreakEvent `yaml:"enqueue,omitempty"`

	// Overstretch reports an overstretched bond; it is queued only if the
	// bond type is breakable.
	Overstretch *ir.BreakEvent `yaml:"overstretch,omitempty"`

	// Flush runs the active chain over the queue.
	Flush bool `yaml:"flush,omitempty"`

	// AddHandlers appends handlers by name, stopping at the first unknown.
	AddHandlers []string `yaml:"add_handlers,omitempty"`

	// ClearHandlers empties the chain.
	ClearHandlers bool `yaml:"clear_handlers,omitempty"`

	// ExpectError is the expected error message of an add_handlers step.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Action returns the step's action name.
func (s Step) Action() string {
	switch {
	case s.Enqueue != nil:
		return StepEnqueue
	case s.Overstretch != nil:
		return StepOverstretch
	case s.Flush:
		return StepFlush
	case s.AddHandlers != nil:
		return StepAddHandlers
	case s.ClearHandlers:
		return StepClearHandlers
	}
	return ""
}

func (s Step) actionCount() int {
	n := 0
	for _, set := range []bool{
		s.Enqueue != nil,
		s.Overstretch != nil,
		s.Flush,
		s.AddHandlers != nil,
		s.ClearHandlers,
	} {
		if set {
			n++
		}
	}
	return n
}

// Step action names, also used as trace event kinds.
const (
	StepEnqueue       = "enqueue"
	StepOverstretch   = "overstretch"
	StepFlush         = "flush"
	StepAddHandlers   = "add_handlers"
	StepClearHandlers = "clear_handlers"
)

// Assertion validates the state after the flow has run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "bond_exists": a bond between the pair exists on either side
	// - "bond_absent": no bond between the pair exists on either side
	// - "runtime_errors": exactly Count runtime errors (with Code, if set)
	// - "queue_len": exactly Count events still queued
	// - "output_lines": diagnostic output equals Lines
	// - "topology_unchanged": final topology hash equals the initial one
	// - "chain": active handler names equal Handlers
	Type string `yaml:"type"`

	// Between is the particle pair (used by bond_exists, bond_absent).
	Between []ir.ParticleID `yaml:"between,omitempty"`

	// BondType restricts the bond check to one type; nil means any type.
	BondType *ir.BondType `yaml:"bond_type,omitempty"`

	// Code filters runtime errors (used by runtime_errors).
	Code string `yaml:"code,omitempty"`

	// Count is the expected number (used by runtime_errors, queue_len).
	Count *int `yaml:"count,omitempty"`

	// Lines is the expected output (used by output_lines).
	Lines []string `yaml:"lines,omitempty"`

	// Handlers is the expected chain (used by chain).
	Handlers []string `yaml:"handlers,omitempty"`
}

// Assertion type constants.
const (
	AssertBondExists        = "bond_exists"
	AssertBondAbsent        = "bond_absent"
	AssertRuntimeErrors     = "runtime_errors"
	AssertQueueLen          = "queue_len"
	AssertOutputLines       = "output_lines"
	AssertTopologyUnchanged = "topology_unchanged"
	AssertChain             = "chain"
)

// Topology backends.
const (
	TopologySQLite = "sqlite"
	TopologyMemory = "memory"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative system path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.System != "" && !filepath.IsAbs(scenario.System) {
		scenario.System = filepath.Join(filepath.Dir(path), scenario.System)
	}

	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and per-step/assertion shape.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Topology {
	case "", TopologySQLite, TopologyMemory:
	default:
		return fmt.Errorf("topology must be %q or %q, got %q", TopologySQLite, TopologyMemory, s.Topology)
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must have at least one step")
	}
	for i, step := range s.Flow {
		if n := step.actionCount(); n != 1 {
			return fmt.Errorf("flow[%d]: exactly one action is required, got %d", i, n)
		}
		if step.ExpectError != "" && step.AddHandlers == nil {
			return fmt.Errorf("flow[%d]: expect_error is only valid on add_handlers", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}

	return nil
}

func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBondExists, AssertBondAbsent:
		if len(a.Between) != 2 {
			return fmt.Errorf("assertions[%d]: between must name exactly two particles for %s", index, a.Type)
		}
	case AssertRuntimeErrors, AssertQueueLen:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertOutputLines:
		if a.Lines == nil {
			return fmt.Errorf("assertions[%d]: lines is required for output_lines", index)
		}
	case AssertChain:
		if a.Handlers == nil {
			return fmt.Errorf("assertions[%d]: handlers is required for chain", index)
		}
	case AssertTopologyUnchanged:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
