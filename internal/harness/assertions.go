package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/bondbreak/internal/breakage"
	"github.com/roach88/bondbreak/internal/ir"
	"github.com/roach88/bondbreak/internal/topology"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", i+1, event.Kind)
		if event.Event != nil {
			fmt.Fprintf(&buf, " %s", event.Event)
		}
		if event.Kind == StepFlush {
			fmt.Fprintf(&buf, " step=%d events=%d errors=%v", event.Step, event.Events, event.Errors)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// assertBond checks whether any bond between the pair exists on either
// side, restricted to BondType when set.
func assertBond(ctx context.Context, l topology.Lister, result *Result, a Assertion, want bool) error {
	p, q := a.Between[0], a.Between[1]

	bonds, err := l.Bonds(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Type, err)
	}

	var found []ir.Bond
	for _, b := range bonds {
		if a.BondType != nil && b.Type != *a.BondType {
			continue
		}
		if (b.Owner == p && b.Partner == q) || (b.Owner == q && b.Partner == p) {
			found = append(found, b)
		}
	}

	if (len(found) > 0) == want {
		return nil
	}

	what := fmt.Sprintf("bond between %d and %d", p, q)
	if a.BondType != nil {
		what = fmt.Sprintf("bond of type %d between %d and %d", *a.BondType, p, q)
	}
	expected, actual := what, "none found"
	if !want {
		expected = "no " + what
		actual = fmt.Sprintf("found %v", found)
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertRuntimeErrors counts reported runtime errors, filtered by code.
func assertRuntimeErrors(result *Result, a Assertion) error {
	count := 0
	for _, err := range result.RuntimeErrors {
		if a.Code == "" || string(breakage.CodeOf(err)) == a.Code {
			count++
		}
	}
	if count == *a.Count {
		return nil
	}

	what := "runtime errors"
	if a.Code != "" {
		what = a.Code + " runtime errors"
	}
	return &AssertionError{
		Type:     AssertRuntimeErrors,
		Expected: fmt.Sprintf("%d %s", *a.Count, what),
		Actual:   fmt.Sprintf("%d (%v)", count, result.RuntimeErrors),
		Trace:    result.Trace,
	}
}

func assertQueueLen(result *Result, a Assertion) error {
	if result.QueueLen == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueueLen,
		Expected: fmt.Sprintf("%d queued events", *a.Count),
		Actual:   fmt.Sprintf("%d queued events", result.QueueLen),
		Trace:    result.Trace,
	}
}

func assertOutputLines(result *Result, a Assertion) error {
	if slices.Equal(result.Output, a.Lines) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutputLines,
		Expected: fmt.Sprintf("%q", a.Lines),
		Actual:   fmt.Sprintf("%q", result.Output),
		Trace:    result.Trace,
	}
}

func assertTopologyUnchanged(result *Result) error {
	if result.HashBefore == result.HashAfter {
		return nil
	}
	return &AssertionError{
		Type:     AssertTopologyUnchanged,
		Expected: "topology hash " + result.HashBefore,
		Actual:   fmt.Sprintf("topology hash %s (bonds %v)", result.HashAfter, result.Bonds),
		Trace:    result.Trace,
	}
}

func assertChain(result *Result, a Assertion) error {
	if slices.Equal(result.Chain, a.Handlers) {
		return nil
	}
	return &AssertionError{
		Type:     AssertChain,
		Expected: fmt.Sprintf("%v", a.Handlers),
		Actual:   fmt.Sprintf("%v", result.Chain),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result and the
// final topology. Returns one message per failed assertion.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, l topology.Lister) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertBondExists:
			err = assertBond(ctx, l, result, assertion, true)
		case AssertBondAbsent:
			err = assertBond(ctx, l, result, assertion, false)
		case AssertRuntimeErrors:
			err = assertRuntimeErrors(result, assertion)
		case AssertQueueLen:
			err = assertQueueLen(result, assertion)
		case AssertOutputLines:
			err = assertOutputLines(result, assertion)
		case AssertTopologyUnchanged:
			err = assertTopologyUnchanged(result)
		case AssertChain:
			err = assertChain(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
