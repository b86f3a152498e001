package ir

import "errors"

// Sentinel errors shared by topology store implementations.
// Callers match them with errors.Is.
var (
	// ErrNotVirtual is returned by a virtual-site back-reference lookup on a
	// particle that does not represent another particle.
	ErrNotVirtual = errors.New("particle is not a virtual site")

	// ErrParticleNotFound is returned when a particle id is unknown to the store.
	ErrParticleNotFound = errors.New("particle not found")
)
