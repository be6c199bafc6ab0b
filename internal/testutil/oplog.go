package testutil

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/trustlog/internal/op"
)

// LogBuilder scripts an operation log for tests.
//
// Operations get ids "op-1", "op-2", ..., matching seq values, and a
// created_at one second after the previous operation. Two builders fed the
// same calls produce identical logs.
type LogBuilder struct {
	clock *DeterministicClock
	ops   []op.Operation
}

// NewLog creates an empty LogBuilder.
func NewLog() *LogBuilder {
	return &LogBuilder{clock: NewDeterministicClock()}
}

// Append adds an operation with the given creator and payload.
func (l *LogBuilder) Append(creator op.MemberID, p op.Payload) *LogBuilder {
	seq := l.clock.Next()
	l.ops = append(l.ops, op.Operation{
		ID:         op.OperationID(fmt.Sprintf("op-%d", seq)),
		CreatorUID: creator,
		Type:       p.OpType(),
		Data:       p,
		CreatedAt:  l.clock.Now(),
		Seq:        seq,
	})
	return l
}

// Create adds a CREATE_MEMBER for each id, using the id as username.
func (l *LogBuilder) Create(ids ...op.MemberID) *LogBuilder {
	for _, id := range ids {
		l.Append(id, op.CreateMember{FullName: string(id), Username: string(id)})
	}
	return l
}

// Verify adds VERIFY operations from each verifier to target.
func (l *LogBuilder) Verify(target op.MemberID, verifiers ...op.MemberID) *LogBuilder {
	for _, v := range verifiers {
		l.Append(v, op.Verify{ToUID: target})
	}
	return l
}

// Flag adds a FLAG_MEMBER and returns its operation id.
func (l *LogBuilder) Flag(creator, target op.MemberID, reason string) op.OperationID {
	l.Append(creator, op.FlagMember{ToUID: target, Reason: reason})
	return l.LastID()
}

// Resolve adds a RESOLVE_FLAG_MEMBER for flagID.
func (l *LogBuilder) Resolve(creator, target op.MemberID, flagID op.OperationID) *LogBuilder {
	return l.Append(creator, op.ResolveFlagMember{ToUID: target, FlagOperationID: flagID})
}

// Unknown adds an operation with an unrecognized type tag.
func (l *LogBuilder) Unknown(creator op.MemberID, tag string) *LogBuilder {
	return l.Append(creator, op.Unknown{Tag: op.Type(tag), Raw: json.RawMessage(`{}`)})
}

// LastID returns the id of the most recent operation.
func (l *LogBuilder) LastID() op.OperationID {
	if len(l.ops) == 0 {
		return ""
	}
	return l.ops[len(l.ops)-1].ID
}

// Ops returns a copy of the log built so far.
func (l *LogBuilder) Ops() []op.Operation {
	return slices.Clone(l.ops)
}

// At returns the created_at timestamp of the operation with the given seq.
func At(seq int64) time.Time {
	return Epoch.Add(time.Duration(seq) * time.Second)
}

// Members returns ids named prefix1..prefixN.
func Members(prefix string, n int) []op.MemberID {
	ids := make([]op.MemberID, n)
	for i := range ids {
		ids[i] = op.MemberID(fmt.Sprintf("%s%d", prefix, i+1))
	}
	return ids
}
