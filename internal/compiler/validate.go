package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/bondbreak/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Bond type errors (E101-E109)
	ErrDuplicateBondType = "E101" // bond type id declared twice

	// Particle errors (E110-E119)
	ErrDuplicateParticle  = "E110" // particle id declared twice
	ErrUnknownBackref     = "E111" // virtual_of names an undeclared particle
	ErrVirtualBackref     = "E112" // virtual_of names another virtual site
	ErrSelfBackref        = "E113" // particle is a virtual site of itself
	ErrUnknownBondOwner   = "E114" // bond owner not declared
	ErrUnknownBondPartner = "E115" // bond partner not declared
	ErrUndeclaredBondType = "E116" // bond type not declared (only when bond_types is non-empty)
	ErrUnknownHandlerName = "E120" // handler chain names an unregistered handler
)

// ValidationError represents a system definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled system for referential consistency.
// Returns all errors found (does not fail-fast).
//
// knownHandlers is the set of registered handler names the chain may use.
// A nil slice skips handler name checks.
func Validate(sys *ir.System, knownHandlers []string) []ValidationError {
	var errs []ValidationError

	bondTypes := make(map[ir.BondType]bool, len(sys.BondTypes))
	for i, bt := range sys.BondTypes {
		if bondTypes[bt.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bond_types[%d].id", i),
				Message: fmt.Sprintf("duplicate bond type id: %d", bt.ID),
				Code:    ErrDuplicateBondType,
			})
		}
		bondTypes[bt.ID] = true
	}

	particles := make(map[ir.ParticleID]ir.ParticleSpec, len(sys.Particles))
	for i, p := range sys.Particles {
		if _, dup := particles[p.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("particles[%d].id", i),
				Message: fmt.Sprintf("duplicate particle id: %d", p.ID),
				Code:    ErrDuplicateParticle,
			})
		}
		particles[p.ID] = p
	}

	for i, p := range sys.Particles {
		if !p.IsVirtual() {
			continue
		}
		field := fmt.Sprintf("particles[%d].virtual_of", i)
		backref := *p.VirtualOf

		if backref == p.ID {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("particle %d cannot be a virtual site of itself", p.ID),
				Code:    ErrSelfBackref,
			})
			continue
		}

		target, ok := particles[backref]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("virtual site %d refers to undeclared particle %d", p.ID, backref),
				Code:    ErrUnknownBackref,
			})
			continue
		}
		if target.IsVirtual() {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("virtual site %d refers to virtual site %d", p.ID, backref),
				Code:    ErrVirtualBackref,
			})
		}
	}

	for i, b := range sys.Bonds {
		if _, ok := particles[b.Owner]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bonds[%d].owner", i),
				Message: fmt.Sprintf("bond owner %d is not a declared particle", b.Owner),
				Code:    ErrUnknownBondOwner,
			})
		}
		if _, ok := particles[b.Partner]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bonds[%d].partner", i),
				Message: fmt.Sprintf("bond partner %d is not a declared particle", b.Partner),
				Code:    ErrUnknownBondPartner,
			})
		}
		if len(bondTypes) > 0 && !bondTypes[b.Type] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bonds[%d].type", i),
				Message: fmt.Sprintf("bond type %d is not declared", b.Type),
				Code:    ErrUndeclaredBondType,
			})
		}
	}

	if knownHandlers != nil {
		for i, name := range sys.Handlers {
			if !slices.Contains(knownHandlers, name) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("handlers[%d]", i),
					Message: "Unknown handler name " + name,
					Code:    ErrUnknownHandlerName,
				})
			}
		}
	}

	return errs
}
