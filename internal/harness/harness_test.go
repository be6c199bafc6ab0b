package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustlog/internal/reducer"
)

func TestRun_ShippedScenariosPass(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.NotEmpty(t, result.Digest)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"new_member_unverified", "unknown_type_ignored"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "flag_resolved.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := New().Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expectations
description: "Every assertion here is false"
log:
  - { creator_uid: alice, type: CREATE_MEMBER, data: { username: alice, full_name: Alice } }
assertions:
  - type: is_verified
    member: alice
  - type: verified_by_count
    member: alice
    count: 3
  - type: dropped
    operation: op-1
  - type: balance
    member: nobody
    amount: "1"
  - type: missing_member
    op_type: TRUST
    member: alice
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "Expected: true")
	assert.Contains(t, result.Errors[1], "Expected: 3")
	assert.Contains(t, result.Errors[2], "Actual: applied")
	assert.Contains(t, result.Errors[3], "no such member")
	assert.Contains(t, result.Errors[4], "missing member error")
}

func TestRun_DroppedWithWrongCode(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_code
description: "The drop code does not match"
log:
  - { creator_uid: ghost, type: TRUST, data: { to_uid: alice } }
assertions:
  - type: dropped
    operation: op-1
    code: UNKNOWN_TYPE
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "dropped with MISSING_MEMBER")

	require.Len(t, result.Drops, 1)
	assert.Equal(t, reducer.DropMissingMember, result.Drops[0].Code)
	assert.Equal(t, int64(1), result.Drops[0].Seq)
}

func TestRun_ThresholdsOverride(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: low_flag_threshold
description: "One verifier is enough to flag when the threshold is one"
thresholds:
  to_flag: 1
log:
  - { creator_uid: a, type: CREATE_MEMBER, data: { username: a, full_name: A } }
  - { creator_uid: b, type: CREATE_MEMBER, data: { username: b, full_name: B } }
  - { creator_uid: b, type: VERIFY, data: { to_uid: a } }
assertions:
  - type: can_flag
    member: a
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ConflictingDuplicateIDIsAnError(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: conflicting_ids
description: "Two different operations share an id"
log:
  - { id: x, creator_uid: a, type: CREATE_MEMBER, data: { username: a, full_name: A } }
  - { id: x, creator_uid: b, type: CREATE_MEMBER, data: { username: b, full_name: B } }
assertions:
  - type: exists
    member: a
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append log")
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{Type: AssertBalance, Subject: "alice", Expected: "7.5", Actual: "10"}
	assert.Equal(t, "Assertion failed: balance (alice)\n  Expected: 7.5\n  Actual: 10", err.Error())
}
