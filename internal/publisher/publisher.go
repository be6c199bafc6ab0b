// Package publisher owns the current member snapshot.
//
// A Publisher folds operations into a new State and publishes it as an
// immutable, versioned Snapshot through an atomic pointer. Readers call
// Current and never block; writers are serialized.
//
// Thread-safety model:
//   - Current(), Subscribe(): safe from any goroutine, never block on folds
//   - Apply(), Rebuild(): safe from any goroutine, serialized internally
//   - Run(): one call per Publisher
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/reducer"
)

// LogSource delivers the operation log.
//
// Fetch returns the whole log in order. Subscribe calls onAppend, in log
// order, with operations whose Seq is greater than afterSeq until ctx is
// done or the source ends; it must not call onAppend concurrently.
type LogSource interface {
	Fetch(ctx context.Context) ([]op.Operation, error)
	Subscribe(ctx context.Context, afterSeq int64, onAppend func([]op.Operation)) error
}

// Publisher holds the current snapshot.
type Publisher struct {
	reducer *reducer.Reducer
	logger  *slog.Logger
	now     func() time.Time
	metrics *metrics

	current atomic.Pointer[member.Snapshot]
	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[chan uint64]struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithReducer sets the reducer used for folds.
func WithReducer(r *reducer.Reducer) Option {
	return func(p *Publisher) {
		p.reducer = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock sets the function stamping PublishedAt. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithRegisterer registers the publisher's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Publisher) {
		p.metrics = newMetrics(reg)
	}
}

// New creates a Publisher whose current snapshot is the empty state at
// version 0.
func New(opts ...Option) *Publisher {
	p := &Publisher{
		logger: slog.Default(),
		now:    time.Now,
		subs:   make(map[chan uint64]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reducer == nil {
		p.reducer = reducer.New(reducer.WithLogger(p.logger))
	}
	if p.metrics == nil {
		p.metrics = newMetrics(nil)
	}
	p.current.Store(member.NewSnapshot(member.Empty(), 0, p.now()))
	return p
}

// Current returns the latest published snapshot. It never returns nil.
func (p *Publisher) Current() *member.Snapshot {
	return p.current.Load()
}

// Apply folds ops into the current snapshot and publishes the result.
//
// Operations with Seq > 0 that are not beyond the current LastSeq have
// already been folded and are skipped. If nothing is left, the current
// snapshot is returned and no new version is published.
func (p *Publisher) Apply(ops []op.Operation) (*member.Snapshot, []*reducer.DropError) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	cur := p.current.Load()
	fresh := make([]op.Operation, 0, len(ops))
	for _, o := range ops {
		if o.Seq > 0 && o.Seq <= cur.LastSeq() {
			p.logger.Debug("skipping redelivered operation", "operation_id", o.ID, "seq", o.Seq, "last_seq", cur.LastSeq())
			continue
		}
		fresh = append(fresh, o)
	}
	if len(fresh) == 0 {
		return cur, nil
	}

	start := time.Now()
	next, drops := p.reducer.Fold(cur.State, fresh)
	p.metrics.recordFold(foldIncremental, time.Since(start).Seconds(), len(fresh)-len(drops), drops)

	return p.publishLocked(cur, next), drops
}

// Rebuild folds log from scratch and publishes the result.
//
// The fold runs without holding the writer lock. If a snapshot with a
// higher LastSeq was published in the meantime, the rebuilt state is
// discarded and Rebuild reports false.
func (p *Publisher) Rebuild(log []op.Operation) (*member.Snapshot, bool) {
	start := time.Now()
	next, drops := p.reducer.Fold(member.Empty(), log)
	elapsed := time.Since(start).Seconds()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	cur := p.current.Load()
	if cur.LastSeq() > next.LastSeq() {
		p.metrics.discarded.Inc()
		p.logger.Info("discarding superseded rebuild",
			"rebuilt_last_seq", next.LastSeq(),
			"current_last_seq", cur.LastSeq(),
			"current_version", cur.Version,
		)
		return cur, false
	}
	p.metrics.recordFold(foldFull, elapsed, next.Applied(), drops)
	return p.publishLocked(cur, next), true
}

// publishLocked stores next as the version after cur. Caller holds writeMu.
func (p *Publisher) publishLocked(cur *member.Snapshot, next member.State) *member.Snapshot {
	snap := member.NewSnapshot(next, cur.Version+1, p.now())
	p.current.Store(snap)
	p.metrics.version.Set(float64(snap.Version))
	p.logger.Debug("snapshot published",
		"version", snap.Version,
		"last_seq", snap.LastSeq(),
		"members", snap.MemberCount(),
	)
	p.notify(snap.Version)
	return snap
}

// Subscribe returns a channel that receives the version of each published
// snapshot, and a function that ends the subscription.
//
// The channel holds one pending version. A slow reader sees only the most
// recent version it missed, never a stale one.
func (p *Publisher) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	p.subsMu.Lock()
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.subsMu.Lock()
			delete(p.subs, ch)
			p.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (p *Publisher) notify(version uint64) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- version:
			continue
		default:
		}
		// Replace the pending, older version.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- version:
		default:
		}
	}
}

// WaitFor blocks until cond holds for the current snapshot and returns
// that snapshot.
func (p *Publisher) WaitFor(ctx context.Context, cond func(*member.Snapshot) bool) (*member.Snapshot, error) {
	versions, cancel := p.Subscribe()
	defer cancel()
	for {
		if snap := p.Current(); cond(snap) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-versions:
		}
	}
}

// Run rebuilds from src and then folds every batch src delivers until ctx
// is cancelled or src ends.
//
// Deliveries are queued and folded by a single goroutine, so the source
// callback never waits on a fold. Cancellation is a clean shutdown and
// returns nil.
func (p *Publisher) Run(ctx context.Context, src LogSource) error {
	log, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch log: %w", err)
	}
	snap, _ := p.Rebuild(log)
	p.logger.Info("publisher started",
		"version", snap.Version,
		"last_seq", snap.LastSeq(),
		"members", snap.MemberCount(),
	)

	q := newBatchQueue()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer q.Close()
		if err := src.Subscribe(gctx, snap.LastSeq(), func(ops []op.Operation) {
			q.Enqueue(ops)
		}); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return p.drain(gctx, q)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	p.logger.Info("publisher stopped", "version", p.Current().Version)
	return nil
}

// drain folds queued batches in FIFO order. It is the only writer while
// Run is active.
func (p *Publisher) drain(ctx context.Context, q *batchQueue) error {
	for {
		if ops, ok := q.TryDequeue(); ok {
			snap, _ := p.Apply(ops)
			p.logger.Debug("batch folded",
				"operations", len(ops),
				"version", snap.Version,
				"pending", q.Len(),
			)
			continue
		}
		if q.Drained() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.Wait():
		}
	}
}
