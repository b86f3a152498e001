package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/bondbreak/internal/breakage"
	"github.com/roach88/bondbreak/internal/ir"
)

// BreakOptions holds flags for the break command.
type BreakOptions struct {
	*RootOptions
	Overstretch bool
}

// BreakResult is the JSON payload of the break command.
type BreakResult struct {
	Queued  bool          `json:"queued"`
	Event   ir.BreakEvent `json:"event"`
	Pending int           `json:"pending"`
}

// NewBreakCommand creates the break command.
func NewBreakCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BreakOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "break <type> <id1> <id2>",
		Short: "Queue a bond break event",
		Long: `Queue a break of the bond of the given type between two particles.
Nothing changes in the topology until the next flush.

With --overstretch the event is treated as an overstretched bond reported by
force code: it is queued only if the bond type is breakable.

Examples:
  bondbreak break 0 1 2
  bondbreak break 4 10 20 --overstretch`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBreak(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Overstretch, "overstretch", false, "only queue if the bond type is breakable")

	return cmd
}

func runBreak(opts *BreakOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	ev, err := parseBreakEvent(args)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E001", err.Error())
	}

	s, err := openSession(ctx, opts.RootOptions, io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Overstretch {
		if !s.sub.ReportOverstretch(ev) {
			return formatter.Fail(ExitFailure, string(breakage.ErrCodeUnbreakableBond),
				fmt.Sprintf("bond type %d is not breakable", ev.Type))
		}
	} else {
		s.sub.Enqueue(ev)
	}

	if err := s.save(ctx); err != nil {
		return err
	}

	result := BreakResult{Queued: true, Event: ev, Pending: s.sub.QueueLen()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("queued %s (%d pending)", ev, result.Pending))
}

func parseBreakEvent(args []string) (ir.BreakEvent, error) {
	var vals [3]int64
	for i, name := range []string{"type", "id1", "id2"} {
		v, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil {
			return ir.BreakEvent{}, fmt.Errorf("invalid %s %q: must be an integer", name, args[i])
		}
		vals[i] = v
	}
	return ir.BreakEvent{
		Type: ir.BondType(vals[0]),
		ID1:  ir.ParticleID(vals[1]),
		ID2:  ir.ParticleID(vals[2]),
	}, nil
}
