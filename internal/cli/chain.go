package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bondbreak/internal/breakage"
)

// ChainStatus is the JSON payload of the chain commands.
type ChainStatus struct {
	Status   string   `json:"status"`
	Handlers []string `json:"handlers"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active handler chain",
		Long: `Print the active handler chain in order, or "off" when it is empty.

Example:
  bondbreak status
  bondbreak status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(rootOpts, cmd, func(*breakage.Subsystem) (bool, error) {
				return false, nil
			})
		},
	}
}

// NewOffCommand creates the off command.
func NewOffCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "off",
		Short: "Disable bond breakage",
		Long: `Clear the active handler chain. Pending events are still drained by the
next flush, without any handler seeing them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(rootOpts, cmd, func(sub *breakage.Subsystem) (bool, error) {
				sub.ClearHandlers()
				return true, nil
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <handler>...",
		Short: "Append handlers to the chain",
		Long: `Append handlers to the end of the active chain, in argument order.

An unknown name aborts the rest of the batch. Handlers named before it
stay added.

Examples:
  bondbreak add break_simple_pair_bond
  bondbreak add print_queue_entry break_collision_bond`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(rootOpts, cmd, func(sub *breakage.Subsystem) (bool, error) {
				return true, sub.AddHandlers(args...)
			})
		},
	}
}

// NewHandlersCommand creates the handlers command.
func NewHandlersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "handlers",
		Short:         "List available handler names",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			names := breakage.DefaultRegistry().Names()
			if formatter.Format == "json" {
				return formatter.Success(map[string]any{"handlers": names})
			}
			return formatter.Success(names)
		},
	}
}

// runChain applies mutate to the restored chain, saves it when mutate says
// so, and prints the resulting status. A mutate error is reported after
// saving, so partial batches persist.
func runChain(opts *RootOptions, cmd *cobra.Command, mutate func(*breakage.Subsystem) (bool, error)) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts, io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	changed, mutateErr := mutate(s.sub)
	if changed {
		if err := s.save(ctx); err != nil {
			return err
		}
	}
	if mutateErr != nil {
		return chainError(formatter, mutateErr)
	}

	if formatter.Format == "json" {
		return formatter.Success(ChainStatus{
			Status:   s.sub.Status(),
			Handlers: s.sub.ActiveHandlersByName(),
		})
	}
	return formatter.Success(s.sub.Status())
}

func chainError(formatter *OutputFormatter, err error) error {
	var rerr *breakage.RuntimeError
	if errors.As(err, &rerr) {
		return formatter.Fail(ExitCommandError, string(rerr.Code), rerr.Message)
	}
	return formatter.Fail(ExitCommandError, "E001", err.Error())
}
