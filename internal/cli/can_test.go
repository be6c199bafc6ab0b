package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustlog/internal/ability"
	"github.com/roach88/trustlog/internal/testutil"
)

func TestCanCreateMemberAsNonMember(t *testing.T) {
	out, err := execute(t, NewCanCommand(newTestOptions(t, "text")), "CREATE_MEMBER")
	require.NoError(t, err)
	assert.Equal(t, "✓ a non-member may create CREATE_MEMBER (rule not-yet-a-member, version 1)\n", out)
}

func TestCanAllowed(t *testing.T) {
	opts := newTestOptions(t, "json")
	verifiedNetwork(t, opts)

	out, err := execute(t, NewCanCommand(opts), "FLAG_MEMBER", "alice")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ability.Decision `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Allowed)
	assert.Equal(t, ability.RuleCanFlag, resp.Data.Rule)
}

func TestCanDenied(t *testing.T) {
	opts := newTestOptions(t, "text")
	seedStore(t, opts.Database, testutil.NewLog().Create("alice").Ops())

	out, err := execute(t, NewCanCommand(opts), "GIVE", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ alice may not create GIVE (rule good-standing")
}

func TestCanMissingMember(t *testing.T) {
	out, err := execute(t, NewCanCommand(newTestOptions(t, "json")), "TRUST", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
}

func TestCanUnknownType(t *testing.T) {
	opts := newTestOptions(t, "text")
	seedStore(t, opts.Database, testutil.NewLog().Create("alice").Ops())

	out, err := execute(t, NewCanCommand(opts), "ENDORSE_PROJECT", "alice")
	require.Error(t, err)
	assert.Contains(t, out, "rule unknown-type")
}

func TestCanArgs(t *testing.T) {
	_, err := execute(t, NewCanCommand(newTestOptions(t, "text")))
	require.Error(t, err)
	_, err = execute(t, NewCanCommand(newTestOptions(t, "text")), "A", "B", "C")
	require.Error(t, err)
}
