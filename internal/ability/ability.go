// Package ability answers whether a member may currently create an
// operation of a given type.
//
// Every query reads one published snapshot and nothing else. The answers
// are advisory: the service that accepts operations has the final say.
package ability

import (
	"log/slog"
	"time"

	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
)

// SnapshotSource supplies the latest published snapshot.
// Implemented by publisher.Publisher.
type SnapshotSource interface {
	Current() *member.Snapshot
}

// Rule names reported by Explain.
const (
	RuleNotYetMember   = "not-yet-a-member"
	RuleExistingMember = "existing-member"
	RuleGoodStanding   = "good-standing"
	RuleCanFlag        = "can-flag"
	RuleNoMember       = "no-member"
	RuleUnknownType    = "unknown-type"
)

// Decision is the outcome of an ability check.
type Decision struct {
	Type     op.Type     `json:"type"`
	MemberID op.MemberID `json:"member_id,omitempty"`
	Allowed  bool        `json:"allowed"`
	Rule     string      `json:"rule"`
	Version  uint64      `json:"version"`
}

// Engine evaluates abilities against a SnapshotSource.
type Engine struct {
	source     SnapshotSource
	thresholds member.Thresholds
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for unknown-type warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithThresholds sets the thresholds used by CanFlag.
func WithThresholds(t member.Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// New creates an Engine reading from source.
func New(source SnapshotSource, opts ...Option) *Engine {
	e := &Engine{
		source:     source,
		thresholds: member.DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsInGoodStanding reports whether id is verified and not flagged.
// An empty id yields false.
func (e *Engine) IsInGoodStanding(id op.MemberID) (bool, error) {
	if id == "" {
		return false, nil
	}
	m, err := lookup(e.snapshot(), id)
	if err != nil {
		return false, err
	}
	return m.IsInGoodStanding(), nil
}

// CanFlag reports whether id may flag other members.
// An empty id yields false.
func (e *Engine) CanFlag(id op.MemberID) (bool, error) {
	if id == "" {
		return false, nil
	}
	m, err := lookup(e.snapshot(), id)
	if err != nil {
		return false, err
	}
	return m.CanFlag(e.thresholds), nil
}

// CanCreateOperation reports whether id may create an operation of type t.
// An empty id means the caller is not a member yet.
func (e *Engine) CanCreateOperation(t op.Type, id op.MemberID) (bool, error) {
	d, err := e.Explain(t, id)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Explain is CanCreateOperation with the deciding rule attached.
func (e *Engine) Explain(t op.Type, id op.MemberID) (Decision, error) {
	snap := e.snapshot()
	d := Decision{Type: t, MemberID: id, Version: snap.Version}

	perm, ok := permissions[t]
	if ok && perm.allow == nil {
		d.Rule = perm.rule
		d.Allowed = id == "" || !snap.HasMember(id)
		return d, nil
	}

	var m member.Member
	if id != "" {
		var err error
		if m, err = lookup(snap, id); err != nil {
			return Decision{}, err
		}
	}
	switch {
	case !ok:
		e.logger.Warn("ability check for unknown operation type", "type", t, "member_id", id)
		d.Rule = RuleUnknownType
	case id == "":
		d.Rule = RuleNoMember
	default:
		d.Rule = perm.rule
		d.Allowed = perm.allow(m, e.thresholds)
	}
	return d, nil
}

func (e *Engine) snapshot() *member.Snapshot {
	if e.source != nil {
		if s := e.source.Current(); s != nil {
			return s
		}
	}
	return member.NewSnapshot(member.Empty(), 0, time.Time{})
}

func lookup(snap *member.Snapshot, id op.MemberID) (member.Member, error) {
	m, ok := snap.Member(id)
	if !ok {
		return member.Member{}, &MissingMemberError{ID: id, Version: snap.Version}
	}
	return m, nil
}
