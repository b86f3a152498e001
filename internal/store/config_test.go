package store

import (
	"context"
	"slices"
	"testing"

	"github.com/roach88/bondbreak/internal/ir"
)

func TestBondTypes_PutAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, bt := range []ir.BondTypeSpec{
		{ID: 3, Name: "tab", Breakable: true},
		{ID: 0, Name: "fene"},
		{ID: 3, Name: "tab-breakable", Breakable: true},
	} {
		if err := s.PutBondType(ctx, bt); err != nil {
			t.Fatalf("PutBondType(%d) failed: %v", bt.ID, err)
		}
	}

	got, err := s.BondTypes(ctx)
	if err != nil {
		t.Fatalf("BondTypes() failed: %v", err)
	}
	want := []ir.BondTypeSpec{
		{ID: 0, Name: "fene"},
		{ID: 3, Name: "tab-breakable", Breakable: true},
	}
	if !slices.Equal(got, want) {
		t.Errorf("BondTypes() = %+v, want %+v", got, want)
	}
}

func TestChain_SaveAndLoad(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	chain := []string{"print_queue_entry", "break_simple_pair_bond", "print_queue_entry"}
	if err := s.SaveChain(ctx, chain); err != nil {
		t.Fatalf("SaveChain() failed: %v", err)
	}
	got, err := s.LoadChain(ctx)
	if err != nil {
		t.Fatalf("LoadChain() failed: %v", err)
	}
	if !slices.Equal(got, chain) {
		t.Errorf("LoadChain() = %v, want %v", got, chain)
	}

	if err := s.SaveChain(ctx, nil); err != nil {
		t.Fatalf("SaveChain(nil) failed: %v", err)
	}
	got, err = s.LoadChain(ctx)
	if err != nil {
		t.Fatalf("LoadChain() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("LoadChain() after clear = %v, want empty", got)
	}
}

func TestPending_PreservesOrderAndDuplicates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	events := []ir.BreakEvent{
		{Type: 0, ID1: 1, ID2: 2},
		{Type: 3, ID1: 7, ID2: 5},
		{Type: 0, ID1: 1, ID2: 2},
	}
	if err := s.AppendPending(ctx, events[:2]...); err != nil {
		t.Fatalf("AppendPending() failed: %v", err)
	}
	if err := s.AppendPending(ctx, events[2]); err != nil {
		t.Fatalf("AppendPending() failed: %v", err)
	}

	got, err := s.ReadPending(ctx)
	if err != nil {
		t.Fatalf("ReadPending() failed: %v", err)
	}
	if !slices.Equal(got, events) {
		t.Errorf("ReadPending() = %v, want %v", got, events)
	}

	if err := s.ClearPending(ctx); err != nil {
		t.Fatalf("ClearPending() failed: %v", err)
	}
	got, err = s.ReadPending(ctx)
	if err != nil {
		t.Fatalf("ReadPending() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadPending() after clear = %v, want empty", got)
	}
}

func TestPending_Replace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.AppendPending(ctx, ir.BreakEvent{Type: 1, ID1: 1, ID2: 2}); err != nil {
		t.Fatalf("AppendPending() failed: %v", err)
	}
	want := []ir.BreakEvent{{Type: 2, ID1: 3, ID2: 4}, {Type: 2, ID1: 4, ID2: 3}}
	if err := s.ReplacePending(ctx, want); err != nil {
		t.Fatalf("ReplacePending() failed: %v", err)
	}

	got, err := s.ReadPending(ctx)
	if err != nil {
		t.Fatalf("ReadPending() failed: %v", err)
	}
	if !slices.Equal(got, want) {
		t.Errorf("ReadPending() = %v, want %v", got, want)
	}

	if err := s.ReplacePending(ctx, nil); err != nil {
		t.Fatalf("ReplacePending(nil) failed: %v", err)
	}
	got, err = s.ReadPending(ctx)
	if err != nil {
		t.Fatalf("ReadPending() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadPending() after empty replace = %v, want empty", got)
	}
}

func TestImportSystem(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	owner := ir.ParticleID(1)
	sys := ir.System{
		Name:      "dimer",
		BondTypes: []ir.BondTypeSpec{{ID: 0, Name: "harmonic", Breakable: true}},
		Particles: []ir.ParticleSpec{{ID: 1}, {ID: 2}, {ID: 10, VirtualOf: &owner}},
		Bonds:     []ir.Bond{{Owner: 1, Type: 0, Partner: 2}},
		Handlers:  []string{"break_simple_pair_bond"},
	}
	if err := s.ImportSystem(ctx, sys); err != nil {
		t.Fatalf("ImportSystem() failed: %v", err)
	}

	bonds, err := s.Bonds(ctx)
	if err != nil {
		t.Fatalf("Bonds() failed: %v", err)
	}
	if !slices.Equal(bonds, sys.Bonds) {
		t.Errorf("Bonds() = %v, want %v", bonds, sys.Bonds)
	}

	chain, err := s.LoadChain(ctx)
	if err != nil {
		t.Fatalf("LoadChain() failed: %v", err)
	}
	if !slices.Equal(chain, sys.Handlers) {
		t.Errorf("LoadChain() = %v, want %v", chain, sys.Handlers)
	}

	backref, err := s.VirtualSiteBackref(ctx, 10)
	if err != nil || backref != 1 {
		t.Errorf("VirtualSiteBackref(10) = %d, %v; want 1, nil", backref, err)
	}
}

func TestImportSystem_BondOnUndeclaredParticle(t *testing.T) {
	s := createTestStore(t)

	sys := ir.System{
		Particles: []ir.ParticleSpec{{ID: 1}},
		Bonds:     []ir.Bond{{Owner: 5, Type: 0, Partner: 1}},
	}
	if err := s.ImportSystem(context.Background(), sys); err == nil {
		t.Error("expected error for bond owned by undeclared particle")
	}
}
