package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/trustlog/internal/ability"
	"github.com/roach88/trustlog/internal/op"
)

// NewCanCommand creates the can command.
func NewCanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "can <type> [member-id]",
		Short: "Check whether a member may create an operation",
		Long: `Evaluate the ability check for an operation type and print the rule
that decided it. Omit the member id to ask on behalf of someone who is
not a member yet.

Exit codes:
  0 - Allowed
  1 - Not allowed, or the member does not exist
  2 - Command error

Examples:
  trustlog can CREATE_MEMBER
  trustlog can FLAG_MEMBER alice --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id op.MemberID
			if len(args) == 2 {
				id = op.MemberID(args[1])
			}
			return runCan(rootOpts, op.Type(args[0]), id, cmd)
		},
	}

	return cmd
}

func runCan(opts *RootOptions, t op.Type, id op.MemberID, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	pub, err := loadPublisher(opts, cmd)
	if err != nil {
		return err
	}
	engine := ability.New(pub,
		ability.WithLogger(opts.logger()),
		ability.WithThresholds(opts.thresholds()),
	)

	d, err := engine.Explain(t, id)
	if ability.IsMissingMember(err) {
		return f.Fail(ExitFailure, CodeNotFound, err.Error(), nil)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "ability check failed", err)
	}

	var failure *CLIError
	if !d.Allowed {
		failure = &CLIError{Code: CodeDenied, Message: fmt.Sprintf("%s not allowed (%s)", t, d.Rule)}
	}
	return f.Result(d, failure, func(w io.Writer) {
		who := string(id)
		if who == "" {
			who = "a non-member"
		}
		mark, verb := "✓", "may"
		if !d.Allowed {
			mark, verb = "✗", "may not"
		}
		fmt.Fprintf(w, "%s %s %s create %s (rule %s, version %d)\n", mark, who, verb, t, d.Rule, d.Version)
	})
}
