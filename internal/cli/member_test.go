package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/testutil"
)

func verifiedNetwork(t *testing.T, opts *RootOptions) {
	t.Helper()
	log := testutil.NewLog().
		Create("alice").
		Create(testutil.Members("b", 5)...).
		Verify("alice", testutil.Members("b", 5)...).
		Append("alice", op.Mint{Type: op.MintBasicIncome, Amount: "10"})
	seedStore(t, opts.Database, log.Ops())
}

func TestMemberText(t *testing.T) {
	opts := newTestOptions(t, "text")
	verifiedNetwork(t, opts)

	out, err := execute(t, NewMemberCommand(opts), "alice")
	require.NoError(t, err)
	assert.Contains(t, out, `Member alice (alice, "alice")`)
	assert.Contains(t, out, "Verified: true (5 verifier(s): b1, b2, b3, b4, b5)")
	assert.Contains(t, out, "Good standing: true")
	assert.Contains(t, out, "Can flag: true (needs 5 verifier(s))")
	assert.Contains(t, out, "Balance: 10 (minted 10, donated 0)")
}

func TestMemberJSON(t *testing.T) {
	opts := newTestOptions(t, "json")
	verifiedNetwork(t, opts)

	out, err := execute(t, NewMemberCommand(opts), "b1")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "b1", resp.Data["id"])
	assert.Equal(t, false, resp.Data["is_verified"])
	assert.Equal(t, false, resp.Data["good_standing"])
	assert.Equal(t, false, resp.Data["can_flag"])
	assert.Equal(t, []any{"alice"}, resp.Data["verified"])
}

func TestMemberUsesConfiguredThresholds(t *testing.T) {
	opts := newTestOptions(t, "json")
	opts.Config.VerificationsRequiredToVerify = 6
	opts.Config.VerificationsRequiredToFlag = 5
	verifiedNetwork(t, opts)

	out, err := execute(t, NewMemberCommand(opts), "alice")
	require.NoError(t, err)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, false, resp.Data["is_verified"])
}

func TestMemberNotFound(t *testing.T) {
	opts := newTestOptions(t, "text")

	out, err := execute(t, NewMemberCommand(opts), "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_NOT_FOUND]: member ghost not found")
}

func TestMemberHistory(t *testing.T) {
	opts := newTestOptions(t, "text")
	verifiedNetwork(t, opts)

	out, err := execute(t, NewMemberCommand(opts), "alice", "--history")
	require.NoError(t, err)
	assert.Contains(t, out, "History: 2 operation(s)")
	assert.Contains(t, out, "seq 1 CREATE_MEMBER op-1")
	assert.Contains(t, out, "seq 12 MINT op-12")
	assert.NotContains(t, out, "VERIFY")
}
