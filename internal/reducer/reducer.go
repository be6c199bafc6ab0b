package reducer

import (
	"log/slog"

	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
)

// Reducer folds operations into a member.State.
//
// A Reducer holds only configuration and is safe for concurrent use.
type Reducer struct {
	logger     *slog.Logger
	thresholds member.Thresholds
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithLogger sets the logger used for drop warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reducer) {
		r.logger = logger
	}
}

// WithThresholds sets the verification thresholds.
//
// Default: member.DefaultThresholds() (verify at 1, flag at 5).
func WithThresholds(t member.Thresholds) Option {
	return func(r *Reducer) {
		r.thresholds = t
	}
}

// New creates a Reducer.
func New(opts ...Option) *Reducer {
	r := &Reducer{
		logger:     slog.Default(),
		thresholds: member.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Thresholds returns the thresholds the reducer verifies members with.
func (r *Reducer) Thresholds() member.Thresholds {
	return r.thresholds
}

// Reduce folds log from the empty state, strictly in slice order.
func (r *Reducer) Reduce(log []op.Operation) member.State {
	s, _ := r.Fold(member.Empty(), log)
	return s
}

// ApplyOne folds a single operation into s. s is never modified.
func (r *Reducer) ApplyOne(s member.State, o op.Operation) member.State {
	next, _ := r.Fold(s, []op.Operation{o})
	return next
}

// Fold applies ops to a private copy of s and returns the result together
// with every operation it dropped. s is never modified.
func (r *Reducer) Fold(s member.State, ops []op.Operation) (member.State, []*DropError) {
	b := s.Edit()
	var drops []*DropError
	for _, o := range ops {
		if d := r.apply(b, o); d != nil {
			r.logger.Warn("operation dropped",
				"code", d.Code,
				"operation_id", d.OperationID,
				"type", d.Type,
				"seq", d.Seq,
				"reason", d.Message,
			)
			drops = append(drops, d)
			b.Observe(o.Seq, false)
			continue
		}
		touch(b, o)
		b.Observe(o.Seq, true)
	}
	return b.Freeze(), drops
}

func (r *Reducer) apply(b *member.Builder, o op.Operation) *DropError {
	switch p := o.Data.(type) {
	case op.Unknown:
		return drop(o, DropUnknownType, "unrecognized operation type %q", o.Type)
	case op.Malformed:
		return drop(o, DropInvalidPayload, "%s", p.Reason)
	case nil:
		return drop(o, DropInvalidPayload, "missing payload")
	}
	fn, ok := transitions[o.Type]
	if !ok {
		return drop(o, DropUnknownType, "unrecognized operation type %q", o.Type)
	}
	if o.Data.OpType() != o.Type {
		return drop(o, DropInvalidPayload, "payload is %s, operation is %s", o.Data.OpType(), o.Type)
	}
	return fn(r, b, o)
}

// touch records the operation time on its creator.
func touch(b *member.Builder, o op.Operation) {
	if o.CreatedAt.IsZero() {
		return
	}
	if m, ok := b.Member(o.CreatorUID); ok {
		b.PutMember(m.Touch(o.CreatedAt))
	}
}

// Reduce folds log with default thresholds and slog.Default.
func Reduce(log []op.Operation) member.State {
	return New().Reduce(log)
}

// ApplyOne folds o into s with default thresholds and slog.Default.
func ApplyOne(s member.State, o op.Operation) member.State {
	return New().ApplyOne(s, o)
}
