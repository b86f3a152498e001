package ir

import "fmt"

// ParticleID identifies a particle in the topology store.
type ParticleID int64

// BondType identifies a bonded interaction type.
type BondType int64

// BreakEvent is a request to remove the bond of Type between ID1 and ID2.
//
// Events are created by producers (force and collision code) and consumed
// read-only by breakage handlers. They are passed by value and never mutated.
type BreakEvent struct {
	Type BondType   `json:"type" yaml:"type"`
	ID1  ParticleID `json:"id1" yaml:"id1"`
	ID2  ParticleID `json:"id2" yaml:"id2"`
}

// String renders the event as "type=T id1=A id2=B".
func (e BreakEvent) String() string {
	return fmt.Sprintf("type=%d id1=%d id2=%d", e.Type, e.ID1, e.ID2)
}

// Bond is one bond record as stored on its owning particle.
//
// A bond between two particles is symmetric in meaning but is recorded on
// one side only (the Owner). Nothing prevents the same pair from being
// recorded on both sides.
type Bond struct {
	Owner   ParticleID `json:"owner" yaml:"owner"`
	Type    BondType   `json:"type" yaml:"type"`
	Partner ParticleID `json:"partner" yaml:"partner"`
}

// BondTypeSpec declares a bond type and whether it may be broken.
type BondTypeSpec struct {
	ID        BondType `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Breakable bool     `json:"breakable" yaml:"breakable"`
}

// ParticleSpec declares a particle.
// VirtualOf is set for virtual sites and names the real particle they represent.
type ParticleSpec struct {
	ID        ParticleID  `json:"id" yaml:"id"`
	VirtualOf *ParticleID `json:"virtual_of,omitempty" yaml:"virtual_of,omitempty"`
}

// IsVirtual reports whether the particle carries a real-particle back-reference.
func (p ParticleSpec) IsVirtual() bool {
	return p.VirtualOf != nil
}

// System is a complete topology definition: bond types, particles, bonds,
// and the initial breakage handler chain.
type System struct {
	Name      string         `json:"name"`
	BondTypes []BondTypeSpec `json:"bond_types"`
	Particles []ParticleSpec `json:"particles"`
	Bonds     []Bond         `json:"bonds"`
	Handlers  []string       `json:"handlers"`
}
