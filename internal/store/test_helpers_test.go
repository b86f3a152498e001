package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/bondbreak/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// addParticles declares real particles with the given ids.
func addParticles(t *testing.T, s *Store, ids ...ir.ParticleID) {
	t.Helper()
	for _, id := range ids {
		if err := s.AddParticle(context.Background(), ir.ParticleSpec{ID: id}); err != nil {
			t.Fatalf("AddParticle(%d) failed: %v", id, err)
		}
	}
}

// addVirtual declares a virtual site backed by owner.
func addVirtual(t *testing.T, s *Store, id, owner ir.ParticleID) {
	t.Helper()
	backref := owner
	if err := s.AddParticle(context.Background(), ir.ParticleSpec{ID: id, VirtualOf: &backref}); err != nil {
		t.Fatalf("AddParticle(%d) failed: %v", id, err)
	}
}
