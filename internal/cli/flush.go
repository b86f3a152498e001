package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bondbreak/internal/topology"
)

// NewFlushCommand creates the flush command.
func NewFlushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Apply the handler chain to every pending event",
		Long: `Run every pending event through the active handler chain, in enqueue
order, then clear the queue. The flush is journaled with topology hashes
taken before and after.

Handler runtime errors (e.g. a collision break between particles that are
not virtual sites) are reported but do not stop the flush.

Diagnostic handler output goes to stdout, or to stderr with --format json.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlush(rootOpts, cmd)
		},
	}
}

func runFlush(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	out := cmd.OutOrStdout()
	if formatter.Format == "json" {
		out = formatter.GetErrWriter()
	}

	s, err := openSession(ctx, opts, out)
	if err != nil {
		return err
	}
	defer s.Close()

	hashBefore, err := topology.Hash(ctx, s.store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash topology", err)
	}

	report := s.sub.Flush(ctx)

	hashAfter, err := topology.Hash(ctx, s.store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash topology", err)
	}

	rec := report.Record(hashBefore, hashAfter)
	if err := s.store.WriteFlush(ctx, rec); err != nil {
		return WrapExitError(ExitCommandError, "failed to journal flush", err)
	}
	if err := s.save(ctx); err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(rec)
	}

	lines := []string{fmt.Sprintf("step %d: %d event(s), %d dispatch(es), %d error(s)",
		rec.Step, len(rec.Events), rec.Dispatches, len(rec.Errors))}
	for _, e := range rec.Errors {
		lines = append(lines, fmt.Sprintf("  %s: %s", e.Code, e.Message))
	}
	return formatter.Success(lines)
}
