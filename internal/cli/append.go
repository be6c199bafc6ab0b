package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/trustlog/internal/ability"
	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/schema"
	"github.com/roach88/trustlog/internal/store"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Check bool // run the ability check before writing

	ids op.IDGenerator
}

// AppendedOperation reports where one operation landed.
type AppendedOperation struct {
	ID        op.OperationID `json:"id"`
	Type      op.Type        `json:"type"`
	Seq       int64          `json:"seq"`
	Duplicate bool           `json:"duplicate,omitempty"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts, ids: op.UUIDv7Generator{}}

	cmd := &cobra.Command{
		Use:   "append <file.json|->",
		Short: "Validate operations and append them to the log",
		Long: `Append one operation or a JSON array of operations to the log.

Operations are validated against the operation schema first. Operations
without an id are given a UUIDv7. Re-appending an identical operation is
a no-op; reusing an id with different content is rejected.

With --check, each operation must pass the ability check against the
current state (including earlier operations in the same input).

Exit codes:
  0 - All operations appended
  1 - Validation, ability check or id conflict failed; nothing written
  2 - Command error (unreadable input, database unavailable)

Examples:
  trustlog append ops.json --db ./trustlog.db
  cat op.json | trustlog append - --check`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "require every operation to pass the ability check")

	return cmd
}

func runAppend(opts *AppendOptions, arg string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	name, raw, err := readInput(arg, cmd.InOrStdin())
	if err != nil {
		return f.Fail(ExitCommandError, CodeInput, fmt.Sprintf("failed to read %s", arg), err.Error())
	}
	withIDs, err := assignIDs(raw, opts.ids)
	if err != nil {
		return f.Fail(ExitFailure, CodeInput, err.Error(), nil)
	}

	validator, err := schema.New()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	if err := validator.ValidateList(name, withIDs); err != nil {
		return f.Fail(ExitFailure, CodeValidation, err.Error(), validationDetails(err))
	}
	ops, err := op.DecodeList(withIDs)
	if err != nil {
		return f.Fail(ExitFailure, CodeValidation, err.Error(), nil)
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.Check {
		if err := checkAbilities(opts, st, ops, cmd); err != nil {
			return err
		}
	}

	results, err := st.AppendBatch(ctx, ops)
	if errors.Is(err, store.ErrConflict) {
		return f.Fail(ExitFailure, CodeConflict, err.Error(), nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, CodeStore, "failed to append", err.Error())
	}

	appended := make([]AppendedOperation, len(results))
	for i, r := range results {
		appended[i] = AppendedOperation{ID: r.ID, Type: ops[i].Type, Seq: r.Seq, Duplicate: r.Duplicate}
		opts.logger().Debug("operation appended", "operation_id", r.ID, "seq", r.Seq, "duplicate", r.Duplicate)
	}

	return f.Success(appended, func(w io.Writer) {
		for _, a := range appended {
			if a.Duplicate {
				fmt.Fprintf(w, "= %s %s already at seq %d\n", a.Type, a.ID, a.Seq)
				continue
			}
			fmt.Fprintf(w, "✓ %s %s at seq %d\n", a.Type, a.ID, a.Seq)
		}
	})
}

// checkAbilities folds ops one at a time on top of the stored log and
// rejects the first operation its creator may not create.
func checkAbilities(opts *AppendOptions, st *store.Store, ops []op.Operation, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	log, err := st.ReadAll(cmd.Context())
	if err != nil {
		return f.Fail(ExitCommandError, CodeStore, "failed to read log", err.Error())
	}
	pub := opts.newPublisher()
	pub.Rebuild(log)
	engine := ability.New(pub,
		ability.WithLogger(opts.logger()),
		ability.WithThresholds(opts.thresholds()),
	)

	for _, o := range ops {
		d, err := engine.Explain(o.Type, o.CreatorUID)
		if ability.IsMissingMember(err) {
			return f.Fail(ExitFailure, CodeDenied, fmt.Sprintf("operation %s: %v", o.ID, err), nil)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "ability check failed", err)
		}
		if !d.Allowed {
			msg := fmt.Sprintf("operation %s: %s not allowed for %s (%s)", o.ID, o.Type, o.CreatorUID, d.Rule)
			return f.Fail(ExitFailure, CodeDenied, msg, d)
		}
		pub.Apply([]op.Operation{o})
	}
	return nil
}

// validationDetails exposes a schema error's location in JSON output.
func validationDetails(err error) any {
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	details := map[string]any{
		"index":   ve.Index,
		"path":    ve.Path,
		"message": ve.Message,
	}
	if ve.Pos.IsValid() {
		details["line"] = ve.Pos.Line()
		details["column"] = ve.Pos.Column()
	}
	return details
}
