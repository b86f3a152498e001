package breakage

import (
	"context"

	"github.com/roach88/bondbreak/internal/ir"
)

// Topology is the particle/topology store the handlers mutate.
// The subsystem consumes it and never owns it.
//
// Bonds are recorded on one owning particle. BondExists and MutateBond work
// on a single owning side; handlers that must find a bond regardless of
// owner check both sides.
//
// Implementations: topology.Memory (in-process) and store.Store (SQLite).
type Topology interface {
	// BondExists reports whether owner holds a bond of type t to partner.
	BondExists(ctx context.Context, owner, partner ir.ParticleID, t ir.BondType) (bool, error)

	// MutateBond adds (del == false) or deletes (del == true) the bond of
	// type t to partner stored on owner.
	MutateBond(ctx context.Context, owner ir.ParticleID, t ir.BondType, partner ir.ParticleID, del bool) error

	// VirtualSiteBackref returns the real particle a virtual site represents.
	// Returns an error wrapping ir.ErrNotVirtual for ordinary particles and
	// ir.ErrParticleNotFound for unknown ids.
	VirtualSiteBackref(ctx context.Context, id ir.ParticleID) (ir.ParticleID, error)

	// ClearBondsBetween removes every pair bond between a and b, of any type
	// and on either side.
	ClearBondsBetween(ctx context.Context, a, b ir.ParticleID) error
}
