package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/reducer"
)

// ReplayDrop describes one dropped operation.
type ReplayDrop struct {
	OperationID op.OperationID `json:"operation_id"`
	Type        op.Type        `json:"type"`
	Seq         int64          `json:"seq"`
	Code        string         `json:"code"`
	Message     string         `json:"message"`
}

// ReplayResult holds the replay result.
type ReplayResult struct {
	Operations    int            `json:"operations"`
	LastSeq       int64          `json:"last_seq"`
	Applied       int            `json:"applied"`
	Dropped       int            `json:"dropped"`
	DropsByCode   map[string]int `json:"drops_by_code"`
	Drops         []ReplayDrop   `json:"drops,omitempty"`
	Members       int            `json:"members"`
	Verified      int            `json:"verified"`
	GoodStanding  int            `json:"good_standing"`
	Flagged       int            `json:"flagged"`
	Invitations   int            `json:"invitations"`
	Digest        string         `json:"digest"`
	Deterministic bool           `json:"deterministic"`
	Incremental   bool           `json:"incremental"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Fold the whole log and verify determinism",
		Long: `Replay the operation log to verify determinism and report statistics.

The log is folded from scratch twice and the state digests compared. It
is then folded again one operation at a time; the result must match the
full fold.

Exit codes:
  0 - Folds agree
  1 - Determinism or incremental verification failed
  2 - Command error (database unavailable, etc.)

Examples:
  trustlog replay --db ./trustlog.db
  trustlog replay --db ./trustlog.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	log, err := st.ReadAll(cmd.Context())
	if err != nil {
		return f.Fail(ExitCommandError, CodeStore, "failed to read log", err.Error())
	}

	red := opts.newReducer()
	first, drops := red.Fold(member.Empty(), log)
	second := red.Reduce(log)

	pub := opts.newPublisher()
	for _, o := range log {
		pub.Apply([]op.Operation{o})
	}

	firstDigest, err := first.Digest()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest state", err)
	}
	secondDigest, err := second.Digest()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest state", err)
	}
	incDigest, err := pub.Current().Digest()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest state", err)
	}

	result := summarize(first, drops)
	result.Operations = len(log)
	result.Digest = firstDigest
	result.Deterministic = firstDigest == secondDigest
	result.Incremental = firstDigest == incDigest

	var failure *CLIError
	switch {
	case !result.Deterministic:
		failure = &CLIError{Code: CodeDeterminism, Message: "determinism verification failed"}
	case !result.Incremental:
		failure = &CLIError{Code: CodeDeterminism, Message: "incremental fold differs from full fold"}
	}

	return f.Result(result, failure, func(w io.Writer) {
		outputReplayText(w, result, opts.Verbose)
	})
}

// summarize collects statistics about a folded state.
func summarize(s member.State, drops []*reducer.DropError) ReplayResult {
	result := ReplayResult{
		LastSeq:     s.LastSeq(),
		Applied:     s.Applied(),
		Dropped:     s.Dropped(),
		DropsByCode: map[string]int{},
		Members:     s.MemberCount(),
		Invitations: len(s.InvitationTokens()),
	}
	for _, d := range drops {
		result.DropsByCode[string(d.Code)]++
		result.Drops = append(result.Drops, ReplayDrop{
			OperationID: d.OperationID,
			Type:        d.Type,
			Seq:         d.Seq,
			Code:        string(d.Code),
			Message:     d.Message,
		})
	}
	for _, id := range s.MemberIDs() {
		m, _ := s.Member(id)
		if m.IsVerified() {
			result.Verified++
		}
		if m.IsInGoodStanding() {
			result.GoodStanding++
		}
		if !m.OperationsFlaggingThisMember().IsEmpty() {
			result.Flagged++
		}
	}
	return result
}

func outputReplayText(w io.Writer, result ReplayResult, verbose bool) {
	fmt.Fprintf(w, "Replay Summary: %d operation(s), last seq %d\n", result.Operations, result.LastSeq)
	fmt.Fprintf(w, "  Applied: %d, Dropped: %d\n", result.Applied, result.Dropped)

	codes := make([]string, 0, len(result.DropsByCode))
	for code := range result.DropsByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "    %s: %d\n", code, result.DropsByCode[code])
	}
	if verbose {
		for _, d := range result.Drops {
			fmt.Fprintf(w, "    seq %d %s %s: %s\n", d.Seq, d.Type, d.OperationID, d.Message)
		}
	}

	fmt.Fprintf(w, "  Members: %d (verified %d, good standing %d, flagged %d)\n",
		result.Members, result.Verified, result.GoodStanding, result.Flagged)
	fmt.Fprintf(w, "  Invitations: %d\n", result.Invitations)
	fmt.Fprintf(w, "  Digest: %s\n", result.Digest)
	fmt.Fprintln(w)

	switch {
	case !result.Deterministic:
		fmt.Fprintln(w, "✗ Determinism verification failed")
	case !result.Incremental:
		fmt.Fprintln(w, "✗ Incremental fold differs from full fold")
	default:
		fmt.Fprintln(w, "✓ Replay verified deterministic")
	}
}
