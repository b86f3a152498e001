package breakage

import (
	"cmp"
	"slices"

	"github.com/roach88/bondbreak/internal/ir"
)

// BondTypes records which bond types may be broken.
// A type that was never declared is treated as not breakable.
type BondTypes struct {
	specs map[ir.BondType]ir.BondTypeSpec
}

// NewBondTypes builds a table from specs. Later specs replace earlier ones
// with the same id.
func NewBondTypes(specs ...ir.BondTypeSpec) *BondTypes {
	bt := &BondTypes{specs: make(map[ir.BondType]ir.BondTypeSpec, len(specs))}
	for _, s := range specs {
		bt.specs[s.ID] = s
	}
	return bt
}

// Lookup returns the declaration for t.
func (b *BondTypes) Lookup(t ir.BondType) (ir.BondTypeSpec, bool) {
	if b == nil {
		return ir.BondTypeSpec{}, false
	}
	s, ok := b.specs[t]
	return s, ok
}

// Breakable reports whether bonds of type t may be broken.
func (b *BondTypes) Breakable(t ir.BondType) bool {
	s, ok := b.Lookup(t)
	return ok && s.Breakable
}

// Specs returns all declarations ordered by id.
func (b *BondTypes) Specs() []ir.BondTypeSpec {
	if b == nil {
		return nil
	}
	out := make([]ir.BondTypeSpec, 0, len(b.specs))
	for _, s := range b.specs {
		out = append(out, s)
	}
	slices.SortFunc(out, func(x, y ir.BondTypeSpec) int {
		return cmp.Compare(x.ID, y.ID)
	})
	return out
}
