package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustlog/internal/op"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
log:
  - id: first
    creator_uid: alice
    type: CREATE_MEMBER
    created_at: "2024-01-01T00:00:00Z"
    data:
      username: alice
      full_name: Alice
  - creator_uid: alice
    type: MINT
    data:
      type: BASIC_INCOME
      amount: "10"
assertions:
  - type: exists
    member: alice
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Len(t, scenario.Log, 2)
	require.Len(t, scenario.Assertions, 1)
	assert.True(t, scenario.Assertions[0].Expected())

	ops, err := scenario.Operations()
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, op.OperationID("first"), ops[0].ID)
	assert.Equal(t, op.OperationID("op-2"), ops[1].ID)
	assert.False(t, ops[0].CreatedAt.IsZero())
	assert.Equal(t, op.Mint{Type: op.MintBasicIncome, Amount: "10"}, ops[1].Data)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\nflow: []\nassertions: [{type: exists, member: a}]\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: y\nassertions: [{type: exists, member: a}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nassertions: [{type: exists, member: a}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no assertions",
			content: "name: x\ndescription: y\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "bad thresholds",
			content: "name: x\ndescription: y\nthresholds: {to_flag: -1}\nassertions: [{type: exists, member: a}]\n",
			wantErr: "thresholds",
		},
		{
			name:    "bad envelope",
			content: "name: x\ndescription: y\nlog: [{type: VERIFY, data: {to_uid: a}}]\nassertions: [{type: exists, member: a}]\n",
			wantErr: "log[0]",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: y\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "member required",
			content: "name: x\ndescription: y\nassertions: [{type: is_verified}]\n",
			wantErr: "member is required for is_verified",
		},
		{
			name:    "op_type required",
			content: "name: x\ndescription: y\nassertions: [{type: can_create}]\n",
			wantErr: "op_type is required for can_create",
		},
		{
			name:    "count required",
			content: "name: x\ndescription: y\nassertions: [{type: flag_count, member: a}]\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "bad amount",
			content: "name: x\ndescription: y\nassertions: [{type: balance, member: a, amount: lots}]\n",
			wantErr: "parse amount",
		},
		{
			name:    "operation required",
			content: "name: x\ndescription: y\nassertions: [{type: dropped}]\n",
			wantErr: "operation is required for dropped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMemberThresholds(t *testing.T) {
	s := &Scenario{}
	assert.Equal(t, 1, s.MemberThresholds().ToVerify)
	assert.Equal(t, 5, s.MemberThresholds().ToFlag)

	s.Thresholds = &ThresholdsSpec{ToFlag: 2}
	assert.Equal(t, 1, s.MemberThresholds().ToVerify)
	assert.Equal(t, 2, s.MemberThresholds().ToFlag)
}

func TestLoadScenarios_SortedAndBothExtensions(t *testing.T) {
	dir := t.TempDir()
	body := "description: d\nassertions: [{type: exists, member: a}]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("name: b\n"+body), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: a\n"+body), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\n"), 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
