package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool `json:"valid"`
	Operations int  `json:"operations"`
	Unknown    int  `json:"unknown"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.json|->",
		Short: "Validate operations against the schema without appending",
		Long: `Validate one operation or a JSON array of operations against the
operation schema. Nothing is written.

Operations with an unrecognized type pass validation and are counted as
unknown; the reducer skips them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	name, raw, err := readInput(arg, cmd.InOrStdin())
	if err != nil {
		return f.Fail(ExitCommandError, CodeInput, fmt.Sprintf("failed to read %s", arg), err.Error())
	}

	validator, err := schema.New()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	if err := validator.ValidateList(name, raw); err != nil {
		return f.Fail(ExitFailure, CodeValidation, err.Error(), validationDetails(err))
	}

	ops, err := op.DecodeList(raw)
	if err != nil {
		return f.Fail(ExitFailure, CodeValidation, err.Error(), nil)
	}
	result := ValidationResult{Valid: true, Operations: len(ops)}
	for _, o := range ops {
		if !o.Type.IsKnown() {
			result.Unknown++
		}
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d operation(s) valid", result.Operations)
		if result.Unknown > 0 {
			fmt.Fprintf(w, " (%d of unknown type)", result.Unknown)
		}
		fmt.Fprintln(w)
	})
}
