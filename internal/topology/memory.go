package topology

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/bondbreak/internal/ir"
)

type bondRef struct {
	typ     ir.BondType
	partner ir.ParticleID
}

type particle struct {
	virtualOf *ir.ParticleID
	bonds     []bondRef
}

// Memory is an in-process topology store.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
// Breakage handlers still assume exclusive access during a flush.
type Memory struct {
	mu        sync.Mutex
	particles map[ir.ParticleID]*particle
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{particles: make(map[ir.ParticleID]*particle)}
}

// AddParticle declares a particle. Declaring an existing id replaces its
// virtual-site back-reference and keeps its bonds.
func (m *Memory) AddParticle(_ context.Context, spec ir.ParticleSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var backref *ir.ParticleID
	if spec.VirtualOf != nil {
		id := *spec.VirtualOf
		backref = &id
	}

	if p, ok := m.particles[spec.ID]; ok {
		p.virtualOf = backref
		return nil
	}
	m.particles[spec.ID] = &particle{virtualOf: backref}
	return nil
}

// BondExists implements breakage.Topology.
// An unknown owner holds no bonds.
func (m *Memory) BondExists(_ context.Context, owner, partner ir.ParticleID, t ir.BondType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.particles[owner]
	if !ok {
		return false, nil
	}
	return slices.Contains(p.bonds, bondRef{typ: t, partner: partner}), nil
}

// MutateBond implements breakage.Topology.
// Adding appends a bond record; deleting removes one matching record and
// is a no-op if none exists.
func (m *Memory) MutateBond(_ context.Context, owner ir.ParticleID, t ir.BondType, partner ir.ParticleID, del bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.particles[owner]
	if !ok {
		return fmt.Errorf("mutate bond on particle %d: %w", owner, ir.ErrParticleNotFound)
	}

	ref := bondRef{typ: t, partner: partner}
	if !del {
		p.bonds = append(p.bonds, ref)
		return nil
	}

	if i := slices.Index(p.bonds, ref); i >= 0 {
		p.bonds = slices.Delete(p.bonds, i, i+1)
	}
	return nil
}

// VirtualSiteBackref implements breakage.Topology.
func (m *Memory) VirtualSiteBackref(_ context.Context, id ir.ParticleID) (ir.ParticleID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.particles[id]
	if !ok {
		return 0, fmt.Errorf("particle %d: %w", id, ir.ErrParticleNotFound)
	}
	if p.virtualOf == nil {
		return 0, fmt.Errorf("particle %d: %w", id, ir.ErrNotVirtual)
	}
	return *p.virtualOf, nil
}

// ClearBondsBetween implements breakage.Topology.
func (m *Memory) ClearBondsBetween(_ context.Context, a, b ir.ParticleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropPartner(a, b)
	m.dropPartner(b, a)
	return nil
}

func (m *Memory) dropPartner(owner, partner ir.ParticleID) {
	p, ok := m.particles[owner]
	if !ok {
		return
	}
	p.bonds = slices.DeleteFunc(p.bonds, func(r bondRef) bool {
		return r.partner == partner
	})
}

// Bonds lists every bond record sorted by (owner, type, partner).
func (m *Memory) Bonds(_ context.Context) ([]ir.Bond, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ir.Bond
	for id, p := range m.particles {
		for _, r := range p.bonds {
			out = append(out, ir.Bond{Owner: id, Type: r.typ, Partner: r.partner})
		}
	}
	ir.SortBonds(out)
	return out, nil
}

// Particles lists every particle sorted by id.
func (m *Memory) Particles(_ context.Context) ([]ir.ParticleSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ir.ParticleSpec, 0, len(m.particles))
	for id, p := range m.particles {
		spec := ir.ParticleSpec{ID: id}
		if p.virtualOf != nil {
			backref := *p.virtualOf
			spec.VirtualOf = &backref
		}
		out = append(out, spec)
	}
	slices.SortFunc(out, func(a, b ir.ParticleSpec) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}
