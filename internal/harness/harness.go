package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/trustlog/internal/ability"
	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/publisher"
	"github.com/roach88/trustlog/internal/reducer"
	"github.com/roach88/trustlog/internal/store"
	"github.com/roach88/trustlog/internal/testutil"
)

// Harness runs scenarios.
type Harness struct {
	logger *slog.Logger
	clock  *testutil.DeterministicClock
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the reducer and publishers.
// Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:  testutil.NewDeterministicClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and returns the result.
//
// Each scenario is appended to a fresh in-memory store and read back, so
// operations carry the sequence numbers the store assigns. The log is then
// folded from scratch and one operation at a time; a digest mismatch
// between the two folds fails the scenario. An error is returned only
// when the scenario cannot be executed at all.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	ops, err := scenario.Operations()
	if err != nil {
		return nil, fmt.Errorf("decode log: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if _, err := st.AppendBatch(ctx, ops); err != nil {
		return nil, fmt.Errorf("append log: %w", err)
	}
	stored, err := st.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	thresholds := scenario.MemberThresholds()
	red := reducer.New(
		reducer.WithLogger(h.logger),
		reducer.WithThresholds(thresholds),
	)

	h.clock.Reset()
	full := publisher.New(
		publisher.WithReducer(red),
		publisher.WithLogger(h.logger),
		publisher.WithClock(h.clock.Now),
	)
	snap, _ := full.Rebuild(stored)

	incremental := publisher.New(
		publisher.WithReducer(red),
		publisher.WithLogger(h.logger),
		publisher.WithClock(h.clock.Now),
	)
	var drops []*reducer.DropError
	for _, o := range stored {
		h.clock.Next()
		_, d := incremental.Apply([]op.Operation{o})
		drops = append(drops, d...)
	}

	result := NewResult()
	result.Snapshot = snap
	result.Drops = drops

	fullDigest, err := snap.Digest()
	if err != nil {
		return nil, fmt.Errorf("digest full fold: %w", err)
	}
	incDigest, err := incremental.Current().Digest()
	if err != nil {
		return nil, fmt.Errorf("digest incremental fold: %w", err)
	}
	result.Digest = fullDigest
	if fullDigest != incDigest {
		result.AddError(fmt.Sprintf("full and incremental folds disagree: %s != %s", fullDigest, incDigest))
	}

	dropped := make(map[op.OperationID]bool, len(drops))
	for _, d := range drops {
		dropped[d.OperationID] = true
	}
	applied := make(map[op.OperationID]bool, len(stored))
	for _, o := range stored {
		if !dropped[o.ID] {
			applied[o.ID] = true
		}
	}

	out := outcome{
		snap:    snap,
		engine:  ability.New(full, ability.WithLogger(h.logger), ability.WithThresholds(thresholds)),
		drops:   drops,
		applied: applied,
	}
	for i, a := range scenario.Assertions {
		if err := evaluate(a, out); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}
