package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bondbreak/internal/ir"
	"github.com/roach88/bondbreak/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the flush journal",
		Long: `List journaled flushes, oldest first: the step number and token, the
chain that ran, the events processed and any runtime errors.

Examples:
  bondbreak history
  bondbreak history --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N flushes (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, "E001", "--limit must not be negative")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	records, err := st.ReadFlushes(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read flush journal", err)
	}

	if formatter.Format == "json" {
		if records == nil {
			records = []ir.FlushRecord{}
		}
		return formatter.Success(map[string]any{"flushes": records})
	}

	if len(records) == 0 {
		return formatter.Success("No flushes recorded.")
	}
	return formatter.Success(historyLines(records))
}

func historyLines(records []ir.FlushRecord) []string {
	var lines []string
	for _, rec := range records {
		chain := "off"
		if len(rec.Handlers) > 0 {
			chain = strings.Join(rec.Handlers, " ")
		}
		lines = append(lines, fmt.Sprintf("step %d token=%s chain=[%s] events=%d dispatches=%d errors=%d",
			rec.Step, rec.Token, chain, len(rec.Events), rec.Dispatches, len(rec.Errors)))
		for _, ev := range rec.Events {
			lines = append(lines, "  "+ev.String())
		}
		for _, e := range rec.Errors {
			lines = append(lines, fmt.Sprintf("  ! %s: %s", e.Code, e.Message))
		}
		if rec.HashBefore != rec.HashAfter {
			lines = append(lines, "  topology changed")
		}
	}
	return lines
}
