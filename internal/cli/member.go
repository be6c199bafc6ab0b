package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/publisher"
	"github.com/roach88/trustlog/internal/store"
)

// MemberOptions holds flags for the member command.
type MemberOptions struct {
	*RootOptions
	History bool
}

// HistoryEntry is one operation created by a member.
type HistoryEntry struct {
	Seq  int64          `json:"seq"`
	ID   op.OperationID `json:"id"`
	Type op.Type        `json:"type"`
}

// NewMemberCommand creates the member command.
func NewMemberCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MemberOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "member <id>",
		Short: "Show a member derived from the log",
		Long: `Fold the log and print one member's derived state, including
whether it is in good standing and may flag others. With --history the
operations the member created are listed in log order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMember(opts, op.MemberID(args[0]), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.History, "history", false, "list operations created by the member")

	return cmd
}

func runMember(opts *MemberOptions, id op.MemberID, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	pub, err := rebuild(opts.RootOptions, st, cmd)
	if err != nil {
		return err
	}
	snap := pub.Current()
	m, ok := snap.Member(id)
	if !ok {
		return f.Fail(ExitFailure, CodeNotFound, fmt.Sprintf("member %s not found", id), map[string]any{"version": snap.Version})
	}

	thresholds := opts.thresholds()
	data := m.Canonical()
	data["good_standing"] = m.IsInGoodStanding()
	data["can_flag"] = m.CanFlag(thresholds)

	var history []HistoryEntry
	if opts.History {
		ops, err := st.ReadByCreator(cmd.Context(), id)
		if err != nil {
			return f.Fail(ExitCommandError, CodeStore, "failed to read member history", err.Error())
		}
		history = make([]HistoryEntry, 0, len(ops))
		for _, o := range ops {
			history = append(history, HistoryEntry{Seq: o.Seq, ID: o.ID, Type: o.Type})
		}
		data["history"] = history
	}

	return f.Success(data, func(w io.Writer) {
		outputMemberText(w, m, thresholds)
		if opts.History {
			fmt.Fprintf(w, "  History: %d operation(s)\n", len(history))
			for _, h := range history {
				fmt.Fprintf(w, "    seq %d %s %s\n", h.Seq, h.Type, h.ID)
			}
		}
	})
}

// loadPublisher folds the stored log into a fresh publisher.
func loadPublisher(opts *RootOptions, cmd *cobra.Command) (*publisher.Publisher, error) {
	st, err := opts.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return rebuild(opts, st, cmd)
}

func rebuild(opts *RootOptions, st *store.Store, cmd *cobra.Command) (*publisher.Publisher, error) {
	log, err := st.ReadAll(cmd.Context())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read log", err)
	}
	pub := opts.newPublisher()
	pub.Rebuild(log)
	return pub, nil
}

func outputMemberText(w io.Writer, m member.Member, t member.Thresholds) {
	fmt.Fprintf(w, "Member %s (%s, %q)\n", m.ID(), m.Username(), m.FullName())
	if m.InvitedBy() != "" {
		fmt.Fprintf(w, "  Invited by: %s (confirmed: %v)\n", m.InvitedBy(), m.InviteConfirmed())
	}
	fmt.Fprintf(w, "  Verified: %v (%d verifier(s): %s)\n", m.IsVerified(), m.VerifiedBy().Len(), strings.Join(m.VerifiedBy().Strings(), ", "))
	fmt.Fprintf(w, "  Good standing: %v\n", m.IsInGoodStanding())
	fmt.Fprintf(w, "  Can flag: %v (needs %d verifier(s))\n", m.CanFlag(t), t.ToFlag)
	if n := m.OperationsFlaggingThisMember().Len(); n > 0 {
		fmt.Fprintf(w, "  Open flags: %s\n", strings.Join(m.OperationsFlaggingThisMember().Strings(), ", "))
	}
	fmt.Fprintf(w, "  Trusts: %d, trusted by: %d, invited: %d\n", m.Trusts().Len(), m.TrustedBy().Len(), m.Invited().Len())
	fmt.Fprintf(w, "  Balance: %s (minted %s, donated %s)\n", m.Balance(), m.TotalMinted(), m.TotalDonated())
}
