package breakage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bondbreak/internal/ir"
	"github.com/roach88/bondbreak/internal/topology"
)

type fixture struct {
	sub  *Subsystem
	topo *topology.Memory
	errs *ErrorCollector
	out  *bytes.Buffer
	ctx  context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		topo: topology.NewMemory(),
		errs: NewErrorCollector(),
		out:  &bytes.Buffer{},
		ctx:  context.Background(),
	}

	base := []Option{
		WithReporter(f.errs),
		WithOutput(f.out),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithStepTokens(NewFixedGenerator("step-1", "step-2", "step-3")),
	}
	f.sub = New(f.topo, append(base, opts...)...)
	return f
}

func (f *fixture) particles(t *testing.T, ids ...ir.ParticleID) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, f.topo.AddParticle(f.ctx, ir.ParticleSpec{ID: id}))
	}
}

func (f *fixture) virtual(t *testing.T, id, backref ir.ParticleID) {
	t.Helper()
	require.NoError(t, f.topo.AddParticle(f.ctx, ir.ParticleSpec{ID: id, VirtualOf: &backref}))
}

func (f *fixture) bond(t *testing.T, owner ir.ParticleID, typ ir.BondType, partner ir.ParticleID) {
	t.Helper()
	require.NoError(t, f.topo.MutateBond(f.ctx, owner, typ, partner, false))
}

func (f *fixture) bonds(t *testing.T) []ir.Bond {
	t.Helper()
	bonds, err := f.topo.Bonds(f.ctx)
	require.NoError(t, err)
	return bonds
}

func (f *fixture) hash(t *testing.T) string {
	t.Helper()
	h, err := topology.Hash(f.ctx, f.topo)
	require.NoError(t, err)
	return h
}

var _ Topology = (*topology.Memory)(nil)
