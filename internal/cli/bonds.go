package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bondbreak/internal/ir"
	"github.com/roach88/bondbreak/internal/store"
)

// BondsResult is the JSON payload of the bonds command.
type BondsResult struct {
	Bonds []ir.Bond `json:"bonds"`
	Hash  string    `json:"hash"`
}

// NewBondsCommand creates the bonds command.
func NewBondsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bonds",
		Short: "List the bonds in the topology",
		Long: `List every stored bond as owner, type and partner, followed by the
topology hash.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBonds(rootOpts, cmd)
		},
	}
}

func runBonds(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	bonds, err := st.Bonds(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list bonds", err)
	}
	hash, err := ir.TopologyHash(bonds)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash topology", err)
	}

	if formatter.Format == "json" {
		if bonds == nil {
			bonds = []ir.Bond{}
		}
		return formatter.Success(BondsResult{Bonds: bonds, Hash: hash})
	}

	lines := make([]string, 0, len(bonds)+1)
	for _, b := range bonds {
		lines = append(lines, fmt.Sprintf("owner=%d type=%d partner=%d", b.Owner, b.Type, b.Partner))
	}
	lines = append(lines, "hash="+hash)
	return formatter.Success(lines)
}
