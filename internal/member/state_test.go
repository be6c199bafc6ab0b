package member

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustlog/internal/op"
)

func TestEditDoesNotModifyOriginal(t *testing.T) {
	b := Empty().Edit()
	b.PutMember(newAlice())
	b.Observe(1, true)
	s1 := b.Freeze()

	b2 := s1.Edit()
	b2.PutMember(New(Profile{ID: "bob", CreatedAt: t0}))
	b2.PutInvitation(Invitation{Token: "tok", OperationID: "op-1", Inviter: "alice"})
	b2.Observe(2, true)
	s2 := b2.Freeze()

	assert.Equal(t, 1, s1.MemberCount())
	assert.Equal(t, int64(1), s1.LastSeq())
	_, ok := s1.Invitation("tok")
	assert.False(t, ok)

	assert.Equal(t, []op.MemberID{"alice", "bob"}, s2.MemberIDs())
	assert.Equal(t, int64(2), s2.LastSeq())
	assert.Equal(t, 2, s2.Applied())
}

func TestObserveUnsequencedAndDropped(t *testing.T) {
	b := Empty().Edit()
	b.Observe(3, true)
	b.Observe(0, true)
	b.Observe(4, false)
	s := b.Freeze()

	assert.Equal(t, int64(4), s.LastSeq())
	assert.Equal(t, 2, s.Applied())
	assert.Equal(t, 1, s.Dropped())
}

func TestZeroStateIsEmpty(t *testing.T) {
	var s State
	_, ok := s.Member("alice")
	assert.False(t, ok)
	assert.Empty(t, s.MemberIDs())

	b := s.Edit()
	b.PutMember(newAlice())
	assert.True(t, b.Freeze().HasMember("alice"))
}

func TestDigestIsStructural(t *testing.T) {
	build := func(names ...op.MemberID) State {
		b := Empty().Edit()
		for _, n := range names {
			b.PutMember(New(Profile{ID: n, Username: string(n), CreatedAt: t0}))
		}
		return b.Freeze()
	}

	d1, err := build("alice", "bob").Digest()
	require.NoError(t, err)
	d2, err := build("bob", "alice").Digest()
	require.NoError(t, err)
	d3, err := build("alice").Digest()
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.Len(t, d1, 64)
}

func TestMemberCanonical(t *testing.T) {
	m := newAlice().Trust("bob")
	data, err := op.MarshalCanonical(m.Canonical())
	require.NoError(t, err)

	assert.Contains(t, string(data), `"trusts":["bob"]`)
	assert.Contains(t, string(data), `"invited_by":"bob"`)
	assert.Contains(t, string(data), `"balance":"0"`)
	assert.Contains(t, string(data), `"created_at":"2024-01-01T00:00:00Z"`)
}

func TestSnapshotEmbedsState(t *testing.T) {
	b := Empty().Edit()
	b.PutMember(newAlice())
	snap := NewSnapshot(b.Freeze(), 7, t0)

	assert.Equal(t, uint64(7), snap.Version)
	assert.True(t, snap.HasMember("alice"))
}
