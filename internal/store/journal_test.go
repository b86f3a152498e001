package store

import (
	"context"
	"slices"
	"testing"

	"github.com/roach88/bondbreak/internal/breakage"
	"github.com/roach88/bondbreak/internal/ir"
)

func testFlushRecord(step int64, token string) ir.FlushRecord {
	return ir.FlushRecord{
		Step:     step,
		Token:    token,
		Handlers: []string{"break_simple_pair_bond", "print_queue_entry"},
		Events: []ir.BreakEvent{
			{Type: 0, ID1: 1, ID2: 2},
			{Type: 0, ID1: 1, ID2: 2},
		},
		Dispatches: 4,
		Errors: []ir.FlushError{
			{Code: "PRECONDITION_VIOLATION", Message: "particle 2 is not a virtual site"},
		},
		HashBefore: "before",
		HashAfter:  "after",
	}
}

func TestWriteFlush_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := testFlushRecord(1, "tok-1")
	if err := s.WriteFlush(ctx, rec); err != nil {
		t.Fatalf("WriteFlush() failed: %v", err)
	}

	got, err := s.ReadFlushes(ctx, 0)
	if err != nil {
		t.Fatalf("ReadFlushes() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(ReadFlushes()) = %d, want 1", len(got))
	}

	r := got[0]
	if r.Step != 1 || r.Token != "tok-1" || r.Dispatches != 4 {
		t.Errorf("header = (%d, %q, %d), want (1, tok-1, 4)", r.Step, r.Token, r.Dispatches)
	}
	if !slices.Equal(r.Handlers, rec.Handlers) {
		t.Errorf("Handlers = %v, want %v", r.Handlers, rec.Handlers)
	}
	if !slices.Equal(r.Events, rec.Events) {
		t.Errorf("Events = %v, want %v", r.Events, rec.Events)
	}
	if !slices.Equal(r.Errors, rec.Errors) {
		t.Errorf("Errors = %v, want %v", r.Errors, rec.Errors)
	}
	if r.HashBefore != "before" || r.HashAfter != "after" {
		t.Errorf("hashes = (%q, %q)", r.HashBefore, r.HashAfter)
	}
}

func TestWriteFlush_HandlersStoredAsCanonicalJSON(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteFlush(ctx, testFlushRecord(1, "tok-1")); err != nil {
		t.Fatalf("WriteFlush() failed: %v", err)
	}

	var handlers string
	if err := s.db.QueryRow(`SELECT handlers FROM flushes WHERE step = 1`).Scan(&handlers); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	want := `["break_simple_pair_bond","print_queue_entry"]`
	if handlers != want {
		t.Errorf("handlers = %s, want %s", handlers, want)
	}
}

func TestWriteFlush_DuplicateStepRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteFlush(ctx, testFlushRecord(1, "tok-1")); err != nil {
		t.Fatalf("WriteFlush() failed: %v", err)
	}
	if err := s.WriteFlush(ctx, testFlushRecord(1, "tok-2")); err == nil {
		t.Error("expected error writing step 1 twice")
	}

	// Rolled back: no orphan events from the failed write
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM flush_events`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("flush_events = %d, want 2", count)
	}
}

func TestWriteFlush_EmptyFlush(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := ir.FlushRecord{Step: 1, Token: "tok-1", Handlers: []string{}}
	if err := s.WriteFlush(ctx, rec); err != nil {
		t.Fatalf("WriteFlush() failed: %v", err)
	}
	got, err := s.ReadFlushes(ctx, 0)
	if err != nil {
		t.Fatalf("ReadFlushes() failed: %v", err)
	}
	if len(got) != 1 || len(got[0].Events) != 0 || len(got[0].Handlers) != 0 {
		t.Errorf("ReadFlushes() = %+v, want one empty record", got)
	}
}

func TestReadFlushes_Limit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, tok := range []string{"a", "b", "c"} {
		if err := s.WriteFlush(ctx, testFlushRecord(int64(i+1), tok)); err != nil {
			t.Fatalf("WriteFlush() failed: %v", err)
		}
	}

	got, err := s.ReadFlushes(ctx, 2)
	if err != nil {
		t.Fatalf("ReadFlushes() failed: %v", err)
	}
	if len(got) != 2 || got[0].Step != 2 || got[1].Step != 3 {
		t.Errorf("ReadFlushes(2) steps = %v, want [2 3]", steps(got))
	}
}

func TestLastStep(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	step, err := s.LastStep(ctx)
	if err != nil {
		t.Fatalf("LastStep() failed: %v", err)
	}
	if step != 0 {
		t.Errorf("LastStep() on empty journal = %d, want 0", step)
	}

	if err := s.WriteFlush(ctx, testFlushRecord(7, "tok-7")); err != nil {
		t.Fatalf("WriteFlush() failed: %v", err)
	}
	step, err = s.LastStep(ctx)
	if err != nil {
		t.Fatalf("LastStep() failed: %v", err)
	}
	if step != 7 {
		t.Errorf("LastStep() = %d, want 7", step)
	}
}

// The collision cascade run against SQLite leaves only unrelated bonds.
func TestStore_CollisionCascade(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	addParticles(t, s, 1, 2, 3)
	addVirtual(t, s, 10, 1)
	addVirtual(t, s, 20, 2)
	for _, b := range []ir.Bond{
		{Owner: 10, Type: 4, Partner: 20},
		{Owner: 1, Type: 1, Partner: 2},
		{Owner: 2, Type: 2, Partner: 1},
		{Owner: 1, Type: 1, Partner: 3},
	} {
		if err := s.MutateBond(ctx, b.Owner, b.Type, b.Partner, false); err != nil {
			t.Fatalf("MutateBond() failed: %v", err)
		}
	}

	errs := &breakage.ErrorCollector{}
	sub := breakage.New(s, breakage.WithReporter(errs), breakage.WithStepTokens(breakage.NewFixedGenerator("tok")))
	if err := sub.AddHandlerByName(breakage.HandlerCollisionBond); err != nil {
		t.Fatalf("AddHandlerByName() failed: %v", err)
	}
	sub.EnqueueBreak(4, 10, 20)

	report := sub.Flush(ctx)
	if len(report.Errors) != 0 {
		t.Fatalf("unexpected runtime errors: %v", report.Errors)
	}

	bonds, err := s.Bonds(ctx)
	if err != nil {
		t.Fatalf("Bonds() failed: %v", err)
	}
	want := []ir.Bond{{Owner: 1, Type: 1, Partner: 3}}
	if !slices.Equal(bonds, want) {
		t.Errorf("Bonds() = %v, want %v", bonds, want)
	}
}

func steps(recs []ir.FlushRecord) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.Step
	}
	return out
}
