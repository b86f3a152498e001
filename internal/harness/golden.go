package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bondbreak/internal/ir"
)

// TraceSnapshot captures what a golden file pins for a scenario run.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Output       []string
	Bonds        []ir.Bond
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// ir.MarshalCanonical only handles primitives, IR scalars, []any and map[string]any.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"kind": event.Kind,
		}
		if event.Event != nil {
			eventMap["event"] = map[string]any{
				"type": event.Event.Type,
				"id1":  event.Event.ID1,
				"id2":  event.Event.ID2,
			}
		}
		switch event.Kind {
		case StepOverstretch:
			eventMap["queued"] = event.Queued
			eventMap["errors"] = stringList(event.Errors)
		case StepFlush:
			eventMap["step"] = event.Step
			eventMap["token"] = event.Token
			eventMap["events"] = event.Events
			eventMap["dispatches"] = event.Dispatches
			eventMap["handlers"] = stringList(event.Handlers)
			eventMap["errors"] = stringList(event.Errors)
		case StepAddHandlers:
			eventMap["handlers"] = stringList(event.Handlers)
			if event.Error != "" {
				eventMap["error"] = event.Error
			}
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"output":        stringList(s.Output),
		"bonds":         ir.SnapshotBonds(s.Bonds),
	}
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// MarshalTrace renders a result as the canonical JSON stored in golden files.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Output:       result.Output,
		Bonds:        result.Bonds,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
