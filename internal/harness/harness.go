package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/bondbreak/internal/breakage"
	"github.com/roach88/bondbreak/internal/compiler"
	"github.com/roach88/bondbreak/internal/ir"
	"github.com/roach88/bondbreak/internal/store"
	"github.com/roach88/bondbreak/internal/testutil"
	"github.com/roach88/bondbreak/internal/topology"
)

// scenarioTopology is what a scenario needs from a store: the breakage
// contract plus loading and listing.
type scenarioTopology interface {
	breakage.Topology
	topology.Builder
	topology.Lister
}

// Harness runs one scenario against a fresh topology and subsystem.
type Harness struct {
	topo   scenarioTopology
	sub    *breakage.Subsystem
	errs   *breakage.ErrorCollector
	out    *testutil.LineBuffer
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store (in-memory SQLite by default)
// with a deterministic step clock and a fixed step token, so identical
// scenarios produce identical traces.
//
// Execution flow:
//  1. Build the system (CUE file plus inline definitions)
//  2. Load it into the store and configure the initial chain
//  3. Execute flow steps
//  4. Evaluate assertions
//
// Setup failures (bad system, unknown initial handler) are returned as
// errors. Assertion failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	sys, err := buildSystem(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		errs:   breakage.NewErrorCollector(),
		out:    &testutil.LineBuffer{},
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	closeTopo, err := h.openTopology(ctx, scenario.Topology, sys)
	if err != nil {
		return nil, err
	}
	defer closeTopo()

	h.sub = breakage.New(h.topo,
		breakage.WithReporter(h.errs),
		breakage.WithOutput(h.out),
		breakage.WithLogger(h.logger),
		breakage.WithClock(h.clock),
		breakage.WithStepTokens(testutil.NewFixedStepGenerator(scenario.StepToken)),
		breakage.WithBondTypes(breakage.NewBondTypes(sys.BondTypes...)),
	)
	if err := h.sub.AddHandlers(sys.Handlers...); err != nil {
		return nil, fmt.Errorf("failed to configure handlers: %w", err)
	}

	result := NewResult()
	if result.HashBefore, err = topology.Hash(ctx, h.topo); err != nil {
		return nil, err
	}

	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, h.topo) {
		result.AddError(msg)
	}

	return result, nil
}

// buildSystem merges the scenario's CUE system (if any) with its inline
// definitions.
func buildSystem(scenario *Scenario) (ir.System, error) {
	sys := ir.System{Name: scenario.Name}

	if scenario.System != "" {
		systems, err := compiler.LoadSystems(scenario.System)
		if err != nil {
			return sys, fmt.Errorf("failed to load system: %w", err)
		}
		if len(systems) != 1 {
			return sys, fmt.Errorf("system file %s must define exactly one system, found %d", scenario.System, len(systems))
		}
		sys = systems[0]
	}

	sys.BondTypes = append(sys.BondTypes, scenario.BondTypes...)
	sys.Particles = append(sys.Particles, scenario.Particles...)
	sys.Bonds = append(sys.Bonds, scenario.Bonds...)
	sys.Handlers = append(sys.Handlers, scenario.Handlers...)

	if verrs := compiler.Validate(&sys, nil); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return sys, fmt.Errorf("invalid system: %w", errors.Join(errs...))
	}

	return sys, nil
}

// openTopology creates the scenario's store and loads sys into it.
func (h *Harness) openTopology(ctx context.Context, backend string, sys ir.System) (func(), error) {
	if backend == TopologyMemory {
		mem := topology.NewMemory()
		if err := topology.Load(ctx, mem, sys); err != nil {
			return nil, fmt.Errorf("failed to load topology: %w", err)
		}
		h.topo = mem
		return func() {}, nil
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	// Handlers are configured on the subsystem, not persisted here.
	sys.Handlers = nil
	if err := st.ImportSystem(ctx, sys); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load topology: %w", err)
	}
	h.topo = st
	return func() { st.Close() }, nil
}

// executeStep runs one flow step and records it in the trace.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	ev := TraceEvent{Kind: step.Action()}

	switch ev.Kind {
	case StepEnqueue:
		e := *step.Enqueue
		h.sub.Enqueue(e)
		ev.Event = &e

	case StepOverstretch:
		e := *step.Overstretch
		before := h.errs.Len()
		ev.Queued = h.sub.ReportOverstretch(e)
		ev.Event = &e
		ev.Errors = errorCodes(h.errs.Errors()[before:])

	case StepFlush:
		report := h.sub.Flush(ctx)
		ev.Step = report.Step
		ev.Token = report.Token
		ev.Events = len(report.Events)
		ev.Dispatches = report.Dispatches
		ev.Handlers = report.Handlers
		ev.Errors = errorCodes(report.Errors)

	case StepAddHandlers:
		ev.Handlers = step.AddHandlers
		err := h.sub.AddHandlers(step.AddHandlers...)
		if err != nil {
			ev.Error = errorMessage(err)
		}
		switch {
		case step.ExpectError != "" && ev.Error != step.ExpectError:
			result.AddError(fmt.Sprintf("flow[%d]: expected error %q, got %q", index, step.ExpectError, ev.Error))
		case step.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("flow[%d]: unexpected error: %v", index, err))
		}

	case StepClearHandlers:
		h.sub.ClearHandlers()
	}

	h.logger.Debug("flow step completed", "step", index, "action", ev.Kind)
	result.AddTrace(ev)
}

// collect fills the result with the post-flow state.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	var err error
	result.Output = h.out.Lines()
	result.RuntimeErrors = h.errs.Errors()
	result.QueueLen = h.sub.QueueLen()
	result.Chain = h.sub.ActiveHandlersByName()
	if result.Bonds, err = h.topo.Bonds(ctx); err != nil {
		return fmt.Errorf("failed to list bonds: %w", err)
	}
	if result.HashAfter, err = topology.Hash(ctx, h.topo); err != nil {
		return err
	}
	return nil
}

func errorCodes(errs []error) []string {
	codes := make([]string, len(errs))
	for i, err := range errs {
		codes[i] = string(breakage.CodeOf(err))
	}
	return codes
}

// errorMessage returns the runtime error message without its code prefix.
func errorMessage(err error) string {
	var re *breakage.RuntimeError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}
