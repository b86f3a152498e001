package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/bondbreak/internal/breakage"
	"github.com/roach88/bondbreak/internal/store"
)

// session is one CLI invocation's view of the database: a subsystem whose
// chain, pending queue and step clock are restored from the store, and
// saved back by save.
type session struct {
	store *store.Store
	sub   *breakage.Subsystem
}

// openSession opens the database and restores a subsystem from it.
// Handler output (print_queue_entry) is written to out.
func openSession(ctx context.Context, opts *RootOptions, out io.Writer) (*session, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	sub, err := restore(ctx, st, opts, out)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &session{store: st, sub: sub}, nil
}

func restore(ctx context.Context, st *store.Store, opts *RootOptions, out io.Writer) (*breakage.Subsystem, error) {
	bondTypes, err := st.BondTypes(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read bond types", err)
	}
	lastStep, err := st.LastStep(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read flush journal", err)
	}

	subOpts := []breakage.Option{
		breakage.WithLogger(opts.logger()),
		breakage.WithOutput(out),
		breakage.WithBondTypes(breakage.NewBondTypes(bondTypes...)),
		breakage.WithClock(breakage.NewClockAt(lastStep)),
	}
	if opts.StepTokens != nil {
		subOpts = append(subOpts, breakage.WithStepTokens(opts.StepTokens))
	}
	sub := breakage.New(st, subOpts...)

	names, err := st.LoadChain(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read handler chain", err)
	}
	if err := sub.AddHandlers(names...); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to restore handler chain", err)
	}

	pending, err := st.ReadPending(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read pending events", err)
	}
	for _, ev := range pending {
		sub.Enqueue(ev)
	}

	return sub, nil
}

// save persists the chain and the pending queue.
func (s *session) save(ctx context.Context) error {
	if err := s.store.SaveChain(ctx, s.sub.ActiveHandlersByName()); err != nil {
		return WrapExitError(ExitCommandError, "failed to save handler chain", err)
	}
	if err := s.store.ReplacePending(ctx, s.sub.Pending()); err != nil {
		return WrapExitError(ExitCommandError, "failed to save pending events", err)
	}
	return nil
}

func (s *session) Close() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
