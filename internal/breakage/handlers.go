package breakage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/bondbreak/internal/ir"
)

// Env is what a handler may touch while processing an event.
type Env struct {
	// Topology is the store handlers query and mutate.
	Topology Topology

	// Reporter receives non-fatal runtime errors.
	Reporter ErrorReporter

	// Out receives diagnostic text (print_queue_entry).
	Out io.Writer

	// Logger is the structured logger; slog.Default() when nil.
	Logger *slog.Logger
}

func (e *Env) report(err error) {
	if e.Reporter == nil {
		LogReporter{Logger: e.Logger}.Report(err)
		return
	}
	e.Reporter.Report(err)
}

// simplePairBond removes a pair bond from whichever side stores it.
type simplePairBond struct {
	name string
}

func (h *simplePairBond) Handle(ctx context.Context, env *Env, ev ir.BreakEvent) {
	breakPairBond(ctx, env, h.name, ev)
}

// breakPairBond checks both owning sides and deletes every instance found.
// A bond present on neither side is a silent no-op. Returns the number of
// bond records removed.
func breakPairBond(ctx context.Context, env *Env, handler string, ev ir.BreakEvent) int {
	removed := 0
	sides := [2][2]ir.ParticleID{
		{ev.ID1, ev.ID2},
		{ev.ID2, ev.ID1},
	}

	for _, side := range sides {
		owner, partner := side[0], side[1]

		exists, err := env.Topology.BondExists(ctx, owner, partner, ev.Type)
		if err != nil {
			env.report(NewTopologyError(handler, ev, "bond lookup", err))
			continue
		}
		if !exists {
			continue
		}

		if err := env.Topology.MutateBond(ctx, owner, ev.Type, partner, true); err != nil {
			env.report(NewTopologyError(handler, ev, "bond delete", err))
			continue
		}
		removed++

		env.logger().Debug("bond removed",
			"handler", handler,
			"owner", int64(owner),
			"partner", int64(partner),
			"type", int64(ev.Type),
		)
	}

	return removed
}

// collisionBond breaks a virtual-site marker bond and fully unbinds the
// real particles the two virtual sites stand for.
type collisionBond struct {
	name string
}

func (h *collisionBond) Handle(ctx context.Context, env *Env, ev ir.BreakEvent) {
	// Step 1: both participants must be virtual sites. Resolve both before
	// mutating anything.
	real1, err1 := env.Topology.VirtualSiteBackref(ctx, ev.ID1)
	real2, err2 := env.Topology.VirtualSiteBackref(ctx, ev.ID2)
	if err := errors.Join(err1, err2); err != nil {
		if isPrecondition(err1) || isPrecondition(err2) {
			env.report(NewPreconditionError(h.name, ev,
				fmt.Sprintf("collision bond breakage requires particles %d and %d to be virtual sites", ev.ID1, ev.ID2),
				err))
			return
		}
		env.report(NewTopologyError(h.name, ev, "virtual site lookup", err))
		return
	}

	// Step 2: the marker bond between the virtual sites.
	breakPairBond(ctx, env, h.name, ev)

	// Step 3: runs even when step 2 found nothing to remove.
	if err := env.Topology.ClearBondsBetween(ctx, real1, real2); err != nil {
		env.report(NewTopologyError(h.name, ev, "clear bonds between real particles", err))
		return
	}

	env.logger().Debug("collision bond cascade",
		"handler", h.name,
		"real1", int64(real1),
		"real2", int64(real2),
	)
}

func isPrecondition(err error) bool {
	return errors.Is(err, ir.ErrNotVirtual) || errors.Is(err, ir.ErrParticleNotFound)
}

// printQueueEntry writes one plain-text line per event and mutates nothing.
type printQueueEntry struct {
	name string
}

func (h *printQueueEntry) Handle(_ context.Context, env *Env, ev ir.BreakEvent) {
	if env.Out == nil {
		return
	}
	if _, err := fmt.Fprintf(env.Out, "bond breakage queue entry: %s\n", ev); err != nil {
		env.logger().Debug("print_queue_entry write failed", "error", err)
	}
}
