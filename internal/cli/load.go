package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bondbreak/internal/breakage"
	"github.com/roach88/bondbreak/internal/compiler"
	"github.com/roach88/bondbreak/internal/ir"
	"github.com/roach88/bondbreak/internal/store"
)

// LoadOptions holds flags for the load and validate commands.
type LoadOptions struct {
	*RootOptions
	System string // system name, required when the path defines several
}

// LoadResult is the JSON payload of the load command.
type LoadResult struct {
	System    string   `json:"system"`
	BondTypes int      `json:"bond_types"`
	Particles int      `json:"particles"`
	Bonds     int      `json:"bonds"`
	Handlers  []string `json:"handlers,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	System string                     `json:"system,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Import a CUE system definition into the database",
		Long: `Compile a CUE system definition (a .cue file or a directory of them),
validate it, and import its bond types, particles, bonds and initial
handler chain into the database.

Examples:
  bondbreak load ./systems/dimer.cue
  bondbreak load ./systems --system collision`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd, true)
		},
	}

	cmd.Flags().StringVar(&opts.System, "system", "", "system to load when the path defines several")

	return cmd
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a CUE system definition without importing it",
		Long: `Compile and check a CUE system definition: duplicate ids, virtual site
back-references, bond endpoints, declared bond types and handler names.
Nothing is written to the database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd, false)
		},
	}

	cmd.Flags().StringVar(&opts.System, "system", "", "system to validate when the path defines several")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command, apply bool) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	systems, err := compiler.LoadSystems(path)
	if err != nil {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, err.Error())
	}

	sys, err := selectSystem(systems, opts.System)
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Found system %s: %d particle(s), %d bond(s)", sys.Name, len(sys.Particles), len(sys.Bonds))

	if errs := compiler.Validate(&sys, breakage.DefaultRegistry().Names()); len(errs) > 0 {
		return outputValidationErrors(formatter, sys.Name, errs)
	}

	if !apply {
		if formatter.Format == "json" {
			return formatter.Success(ValidationResult{Valid: true, System: sys.Name})
		}
		return formatter.Success(fmt.Sprintf("✓ system %s valid", sys.Name))
	}

	if err := importSystem(ctx, opts.Database, sys); err != nil {
		return err
	}

	result := LoadResult{
		System:    sys.Name,
		BondTypes: len(sys.BondTypes),
		Particles: len(sys.Particles),
		Bonds:     len(sys.Bonds),
		Handlers:  sys.Handlers,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	lines := []string{fmt.Sprintf("✓ loaded system %s: %d bond type(s), %d particle(s), %d bond(s)",
		result.System, result.BondTypes, result.Particles, result.Bonds)}
	if len(sys.Handlers) > 0 {
		lines = append(lines, "chain: "+strings.Join(sys.Handlers, " "))
	}
	return formatter.Success(lines)
}

func importSystem(ctx context.Context, dbPath string, sys ir.System) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.ImportSystem(ctx, sys); err != nil {
		return WrapExitError(ExitCommandError, "failed to import system "+sys.Name, err)
	}
	return nil
}

// selectSystem picks the named system, or the only one when name is empty.
func selectSystem(systems []ir.System, name string) (ir.System, error) {
	if name == "" {
		if len(systems) == 1 {
			return systems[0], nil
		}
		names := make([]string, len(systems))
		for i, s := range systems {
			names[i] = s.Name
		}
		return ir.System{}, fmt.Errorf("found %d systems (%s): choose one with --system", len(systems), strings.Join(names, ", "))
	}
	for _, s := range systems {
		if s.Name == name {
			return s, nil
		}
	}
	return ir.System{}, fmt.Errorf("system %q not found", name)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, system string, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				System: system,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "✗ system %s invalid\n", system)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
