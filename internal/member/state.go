package member

import (
	"maps"
	"slices"
	"time"

	"github.com/roach88/trustlog/internal/op"
)

// Invitation is an INVITE recorded under its token.
type Invitation struct {
	Token        string
	OperationID  op.OperationID
	Inviter      op.MemberID
	IsJointVideo bool
	CreatedAt    time.Time
	ClaimedBy    op.MemberID
}

// Claimed reports whether a member has joined with this invitation.
func (i Invitation) Claimed() bool {
	return i.ClaimedBy != ""
}

// State is the result of folding a log prefix.
//
// State is immutable: every accessor returns values, and changes go through
// a Builder obtained from Edit. The zero State is the empty state.
type State struct {
	members     map[op.MemberID]Member
	invitations map[string]Invitation
	lastSeq     int64
	applied     int
	dropped     int
}

// Empty returns the state of an empty log.
func Empty() State {
	return State{
		members:     map[op.MemberID]Member{},
		invitations: map[string]Invitation{},
	}
}

// Member looks up a member by id.
func (s State) Member(id op.MemberID) (Member, bool) {
	m, ok := s.members[id]
	return m, ok
}

// HasMember reports whether id names an existing member.
func (s State) HasMember(id op.MemberID) bool {
	_, ok := s.members[id]
	return ok
}

// MemberIDs returns all member ids in sorted order.
func (s State) MemberIDs() []op.MemberID {
	return slices.Sorted(maps.Keys(s.members))
}

// MemberCount returns the number of members.
func (s State) MemberCount() int {
	return len(s.members)
}

// Invitation looks up an invitation by token.
func (s State) Invitation(token string) (Invitation, bool) {
	inv, ok := s.invitations[token]
	return inv, ok
}

// InvitationTokens returns all invitation tokens in sorted order.
func (s State) InvitationTokens() []string {
	return slices.Sorted(maps.Keys(s.invitations))
}

// LastSeq is the highest store sequence folded into the state, or 0.
func (s State) LastSeq() int64 { return s.lastSeq }

// Applied is the number of operations that changed the state.
func (s State) Applied() int { return s.applied }

// Dropped is the number of operations that were skipped.
func (s State) Dropped() int { return s.dropped }

// Edit returns a Builder holding a private copy of the state.
// The receiver is not affected by anything done through the Builder.
func (s State) Edit() *Builder {
	b := &Builder{
		members:     maps.Clone(s.members),
		invitations: maps.Clone(s.invitations),
		lastSeq:     s.lastSeq,
		applied:     s.applied,
		dropped:     s.dropped,
	}
	if b.members == nil {
		b.members = map[op.MemberID]Member{}
	}
	if b.invitations == nil {
		b.invitations = map[string]Invitation{}
	}
	return b
}

// Builder accumulates changes to a copy of a State.
// A Builder must not be used after Freeze.
type Builder struct {
	members     map[op.MemberID]Member
	invitations map[string]Invitation
	lastSeq     int64
	applied     int
	dropped     int
}

// Member looks up a member in the pending state.
func (b *Builder) Member(id op.MemberID) (Member, bool) {
	m, ok := b.members[id]
	return m, ok
}

// PutMember inserts or replaces a member.
func (b *Builder) PutMember(m Member) {
	b.members[m.ID()] = m
}

// Invitation looks up an invitation in the pending state.
func (b *Builder) Invitation(token string) (Invitation, bool) {
	inv, ok := b.invitations[token]
	return inv, ok
}

// PutInvitation inserts or replaces an invitation.
func (b *Builder) PutInvitation(inv Invitation) {
	b.invitations[inv.Token] = inv
}

// Observe records that the operation at seq was processed.
// Unsequenced operations (seq 0) leave LastSeq unchanged.
func (b *Builder) Observe(seq int64, applied bool) {
	if seq > b.lastSeq {
		b.lastSeq = seq
	}
	if applied {
		b.applied++
	} else {
		b.dropped++
	}
}

// Freeze returns the built State.
func (b *Builder) Freeze() State {
	s := State{
		members:     b.members,
		invitations: b.invitations,
		lastSeq:     b.lastSeq,
		applied:     b.applied,
		dropped:     b.dropped,
	}
	b.members = nil
	b.invitations = nil
	return s
}
