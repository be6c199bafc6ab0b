package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidOperations(t *testing.T) {
	path := writeFile(t, "ops.json", `[
		{"id": "c1", "creator_uid": "alice", "type": "CREATE_MEMBER", "data": {"username": "alice", "full_name": "Alice"}},
		{"id": "x1", "creator_uid": "alice", "type": "ENDORSE_PROJECT", "data": {"project": "garden"}}
	]`)

	out, err := execute(t, NewValidateCommand(newTestOptions(t, "text")), path)
	require.NoError(t, err)
	assert.Equal(t, "✓ 2 operation(s) valid (1 of unknown type)\n", out)
}

func TestValidateValidOperationsJSON(t *testing.T) {
	path := writeFile(t, "op.json", `{"id": "v1", "creator_uid": "bob", "type": "VERIFY", "data": {"to_uid": "alice"}}`)

	out, err := execute(t, NewValidateCommand(newTestOptions(t, "json")), path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ValidationResult{Valid: true, Operations: 1}, resp.Data)
}

func TestValidateReportsSchemaViolation(t *testing.T) {
	path := writeFile(t, "ops.json", `[
		{"id": "c1", "creator_uid": "alice", "type": "CREATE_MEMBER", "data": {"username": "alice", "full_name": "Alice"}},
		{"id": "v1", "creator_uid": "bob", "type": "VERIFY", "data": {}}
	]`)

	out, err := execute(t, NewValidateCommand(newTestOptions(t, "json")), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidation, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "operation[1]")

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), details["index"])
}

func TestValidateFromStdin(t *testing.T) {
	out, err := executeWithInput(t, NewValidateCommand(newTestOptions(t, "text")),
		`{"id": "t1", "creator_uid": "a", "type": "TRUST", "data": {"to_uid": "b"}}`, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 operation(s) valid")
}

func TestValidateMissingFile(t *testing.T) {
	out, err := execute(t, NewValidateCommand(newTestOptions(t, "text")), "/does/not/exist.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_INPUT]")
}
