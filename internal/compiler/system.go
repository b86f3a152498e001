package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bondbreak/internal/ir"
)

// CompileSystem parses a CUE value into a System.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the system struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`system: dimer: { particles: [{id: 1}, {id: 2}] }`)
//	sys, err := CompileSystem(v.LookupPath(cue.ParsePath("system.dimer")))
//
// Every section is optional. An empty system compiles to a System with
// no particles and an empty handler chain.
func CompileSystem(v cue.Value) (*ir.System, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	sys := &ir.System{
		BondTypes: []ir.BondTypeSpec{},
		Particles: []ir.ParticleSpec{},
		Bonds:     []ir.Bond{},
		Handlers:  []string{},
	}

	// System name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		sys.Name = labels[len(labels)-1].String()
	}

	var err error
	if sys.BondTypes, err = parseList(v, "bond_types", parseBondType); err != nil {
		return nil, err
	}
	if sys.Particles, err = parseList(v, "particles", parseParticle); err != nil {
		return nil, err
	}
	if sys.Bonds, err = parseList(v, "bonds", parseBond); err != nil {
		return nil, err
	}
	if sys.Handlers, err = parseList(v, "handlers", parseHandlerName); err != nil {
		return nil, err
	}

	return sys, nil
}

// parseList decodes the optional list field name of v element by element.
func parseList[T any](v cue.Value, name string, parse func(cue.Value) (T, error)) ([]T, error) {
	out := []T{}

	listVal := v.LookupPath(cue.ParsePath(name))
	if !listVal.Exists() {
		return out, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   name,
			Message: "must be a list",
			Pos:     listVal.Pos(),
		}
	}

	for i := 0; iter.Next(); i++ {
		item, err := parse(iter.Value())
		if err != nil {
			var ce *CompileError
			if errors.As(err, &ce) {
				ce.Field = fmt.Sprintf("%s[%d].%s", name, i, ce.Field)
				return nil, ce
			}
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func parseBondType(v cue.Value) (ir.BondTypeSpec, error) {
	var spec ir.BondTypeSpec

	id, err := requiredInt(v, "id")
	if err != nil {
		return spec, err
	}
	spec.ID = ir.BondType(id)

	// Name is optional
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return spec, fieldError("name", "must be a string", nameVal)
		}
		spec.Name = name
	}

	// Breakable defaults to false
	if bVal := v.LookupPath(cue.ParsePath("breakable")); bVal.Exists() {
		breakable, err := bVal.Bool()
		if err != nil {
			return spec, fieldError("breakable", "must be a bool", bVal)
		}
		spec.Breakable = breakable
	}

	return spec, nil
}

func parseParticle(v cue.Value) (ir.ParticleSpec, error) {
	var spec ir.ParticleSpec

	id, err := requiredInt(v, "id")
	if err != nil {
		return spec, err
	}
	spec.ID = ir.ParticleID(id)

	if voVal := v.LookupPath(cue.ParsePath("virtual_of")); voVal.Exists() {
		backref, err := voVal.Int64()
		if err != nil {
			return spec, fieldError("virtual_of", "must be an integer particle id", voVal)
		}
		owner := ir.ParticleID(backref)
		spec.VirtualOf = &owner
	}

	return spec, nil
}

func parseBond(v cue.Value) (ir.Bond, error) {
	var bond ir.Bond

	owner, err := requiredInt(v, "owner")
	if err != nil {
		return bond, err
	}
	typ, err := requiredInt(v, "type")
	if err != nil {
		return bond, err
	}
	partner, err := requiredInt(v, "partner")
	if err != nil {
		return bond, err
	}

	bond.Owner = ir.ParticleID(owner)
	bond.Type = ir.BondType(typ)
	bond.Partner = ir.ParticleID(partner)
	return bond, nil
}

func parseHandlerName(v cue.Value) (string, error) {
	name, err := v.String()
	if err != nil {
		return "", &CompileError{
			Field:   "name",
			Message: "handler names must be strings",
			Pos:     v.Pos(),
		}
	}
	return name, nil
}

// requiredInt reads an integer field, rejecting floats and missing values.
func requiredInt(v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, fieldError(field, field+" is required", v)
	}

	switch fv.IncompleteKind() {
	case cue.IntKind:
	case cue.FloatKind, cue.NumberKind:
		return 0, fieldError(field, "float values are forbidden - use int instead", fv)
	default:
		return 0, fieldError(field, fmt.Sprintf("must be an integer, got %v", fv.IncompleteKind()), fv)
	}

	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func fieldError(field, msg string, v cue.Value) *CompileError {
	return &CompileError{
		Field:   field,
		Message: msg,
		Pos:     v.Pos(),
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
