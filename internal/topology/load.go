package topology

import (
	"context"
	"fmt"

	"github.com/roach88/bondbreak/internal/ir"
)

// Builder is a store that can be populated from a system definition.
type Builder interface {
	AddParticle(ctx context.Context, spec ir.ParticleSpec) error
	MutateBond(ctx context.Context, owner ir.ParticleID, t ir.BondType, partner ir.ParticleID, del bool) error
}

// Lister is a store that can enumerate its bonds.
type Lister interface {
	Bonds(ctx context.Context) ([]ir.Bond, error)
}

// Load declares every particle in sys, then adds every bond.
// Particles go first so bonds may reference any particle regardless of
// declaration order.
func Load(ctx context.Context, b Builder, sys ir.System) error {
	for _, p := range sys.Particles {
		if err := b.AddParticle(ctx, p); err != nil {
			return fmt.Errorf("load particle %d: %w", p.ID, err)
		}
	}
	for _, bond := range sys.Bonds {
		if err := b.MutateBond(ctx, bond.Owner, bond.Type, bond.Partner, false); err != nil {
			return fmt.Errorf("load bond %d-%d type %d: %w", bond.Owner, bond.Partner, bond.Type, err)
		}
	}
	return nil
}

// Hash returns the content hash of every bond in l.
func Hash(ctx context.Context, l Lister) (string, error) {
	bonds, err := l.Bonds(ctx)
	if err != nil {
		return "", fmt.Errorf("hash topology: %w", err)
	}
	return ir.TopologyHash(bonds)
}

// Bonded reports whether a bond of type t between a and b is recorded on
// either side.
func Bonded(ctx context.Context, l Lister, a, b ir.ParticleID, t ir.BondType) (bool, error) {
	bonds, err := l.Bonds(ctx)
	if err != nil {
		return false, err
	}
	for _, bond := range bonds {
		if bond.Type != t {
			continue
		}
		if (bond.Owner == a && bond.Partner == b) || (bond.Owner == b && bond.Partner == a) {
			return true, nil
		}
	}
	return false, nil
}
