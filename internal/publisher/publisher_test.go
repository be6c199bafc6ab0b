package publisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
	"github.com/roach88/trustlog/internal/reducer"
	"github.com/roach88/trustlog/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPublisher(opts ...Option) *Publisher {
	base := []Option{
		WithLogger(discardLogger()),
		WithReducer(reducer.New(reducer.WithLogger(discardLogger()))),
		WithClock(func() time.Time { return testutil.Epoch }),
	}
	return New(append(base, opts...)...)
}

func digest(t *testing.T, s member.State) string {
	t.Helper()
	d, err := s.Digest()
	require.NoError(t, err)
	return d
}

func sampleLog() []op.Operation {
	verifiers := testutil.Members("B", 5)
	l := testutil.NewLog().Create("A", "C").Create(verifiers...).
		Verify("A", verifiers...).
		Verify("C", verifiers...)
	flag := l.Flag("C", "A", "r")
	return l.Resolve("C", "A", flag).Unknown("A", "FUTURE").Ops()
}

func TestNewPublishesEmptySnapshot(t *testing.T) {
	p := newTestPublisher()
	snap := p.Current()

	require.NotNil(t, snap)
	assert.Equal(t, uint64(0), snap.Version)
	assert.Equal(t, 0, snap.MemberCount())
	assert.Equal(t, testutil.Epoch, snap.PublishedAt)
}

func TestApplyPublishesNewVersion(t *testing.T) {
	p := newTestPublisher()
	log := sampleLog()

	first := p.Current()
	snap, drops := p.Apply(log[:2])
	assert.Empty(t, drops)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Same(t, snap, p.Current())
	assert.Equal(t, 0, first.MemberCount(), "published snapshots never change")

	snap, drops = p.Apply(log[2:])
	require.Len(t, drops, 1)
	assert.Equal(t, reducer.DropUnknownType, drops[0].Code)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, digest(t, reducer.New(reducer.WithLogger(discardLogger())).Reduce(log)), digest(t, snap.State))
}

func TestApplySkipsRedeliveredOperations(t *testing.T) {
	p := newTestPublisher()
	log := sampleLog()

	p.Apply(log[:5])
	before := p.Current()

	snap, drops := p.Apply(log[2:5])
	assert.Nil(t, drops)
	assert.Same(t, before, snap, "nothing new must not publish a version")

	snap, _ = p.Apply(log[3:7])
	assert.Equal(t, before.Version+1, snap.Version)
	assert.Equal(t, int64(7), snap.LastSeq())
	assert.Equal(t, 7, snap.Applied())
}

func TestApplyUnsequencedOperationsAreFolded(t *testing.T) {
	p := newTestPublisher()
	o := op.Operation{ID: "local", CreatorUID: "A", Type: op.TypeCreateMember, Data: op.CreateMember{Username: "a"}}

	snap, _ := p.Apply([]op.Operation{o})
	assert.True(t, snap.HasMember("A"))
	assert.Equal(t, int64(0), snap.LastSeq())
}

func TestRebuildMatchesIncremental(t *testing.T) {
	log := sampleLog()

	inc := newTestPublisher()
	for _, o := range log {
		inc.Apply([]op.Operation{o})
	}
	full := newTestPublisher()
	snap, ok := full.Rebuild(log)
	require.True(t, ok)

	assert.Equal(t, digest(t, inc.Current().State), digest(t, snap.State))
	assert.Equal(t, uint64(1), snap.Version)
}

func TestRebuildDiscardsSupersededFold(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := newTestPublisher(WithRegisterer(reg))
	log := sampleLog()

	newer, _ := p.Apply(log)
	snap, ok := p.Rebuild(log[:3])

	assert.False(t, ok)
	assert.Same(t, newer, snap)
	assert.Equal(t, float64(1), promtestutil.ToFloat64(p.metrics.discarded))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := newTestPublisher(WithRegisterer(reg))
	log := sampleLog()

	p.Apply(log)

	assert.Equal(t, float64(len(log)-1), promtestutil.ToFloat64(p.metrics.applied))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(p.metrics.dropped.WithLabelValues(string(reducer.DropUnknownType))))
	assert.Equal(t, float64(0), promtestutil.ToFloat64(p.metrics.dropped.WithLabelValues(string(reducer.DropMissingMember))))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(p.metrics.version))

	count, err := promtestutil.GatherAndCount(reg, "trustlog_publisher_fold_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubscribeCoalesces(t *testing.T) {
	p := newTestPublisher()
	versions, cancel := p.Subscribe()
	defer cancel()

	log := sampleLog()
	p.Apply(log[:1])
	p.Apply(log[1:2])
	p.Apply(log[2:3])

	select {
	case v := <-versions:
		assert.Equal(t, uint64(3), v)
	default:
		t.Fatal("expected a pending version")
	}
	select {
	case v := <-versions:
		t.Fatalf("unexpected extra version %d", v)
	default:
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	p := newTestPublisher()
	versions, cancel := p.Subscribe()
	cancel()
	cancel()

	_, open := <-versions
	assert.False(t, open)

	p.Apply(sampleLog()[:1]) // must not panic on a closed subscriber
}

func TestConcurrentReadersSeeCompleteSnapshots(t *testing.T) {
	p := newTestPublisher()
	log := sampleLog()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := p.Current()
				assert.Equal(t, snap.Applied()+snap.Dropped(), int(snap.LastSeq()))
			}
		}()
	}
	for _, o := range log {
		p.Apply([]op.Operation{o})
	}
	close(stop)
	wg.Wait()
}

// chanSource serves a fixed prefix from Fetch and then delivers batches
// sent on its channel.
type chanSource struct {
	fetched  []op.Operation
	fetchErr error
	batches  chan []op.Operation

	mu       sync.Mutex
	afterSeq int64
}

func (s *chanSource) Fetch(context.Context) ([]op.Operation, error) {
	return s.fetched, s.fetchErr
}

func (s *chanSource) Subscribe(ctx context.Context, afterSeq int64, onAppend func([]op.Operation)) error {
	s.mu.Lock()
	s.afterSeq = afterSeq
	s.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-s.batches:
			if !ok {
				return nil
			}
			onAppend(b)
		}
	}
}

func TestRunFoldsDeliveries(t *testing.T) {
	log := sampleLog()
	src := &chanSource{fetched: log[:4], batches: make(chan []op.Operation)}
	p := newTestPublisher()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, src) }()

	src.batches <- log[2:8] // overlaps the fetched prefix
	src.batches <- log[8:]

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	snap, err := p.WaitFor(waitCtx, func(s *member.Snapshot) bool {
		return s.LastSeq() == int64(len(log))
	})
	require.NoError(t, err)

	want := reducer.New(reducer.WithLogger(discardLogger())).Reduce(log)
	assert.Equal(t, digest(t, want), digest(t, snap.State))
	src.mu.Lock()
	assert.Equal(t, int64(4), src.afterSeq)
	src.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunReturnsWhenSourceEnds(t *testing.T) {
	log := sampleLog()
	src := &chanSource{fetched: log, batches: make(chan []op.Operation)}
	close(src.batches)

	p := newTestPublisher()
	require.NoError(t, p.Run(context.Background(), src))
	assert.Equal(t, int64(len(log)), p.Current().LastSeq())
}

func TestRunFetchError(t *testing.T) {
	src := &chanSource{fetchErr: errors.New("disk gone")}
	err := newTestPublisher().Run(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch log")
}

func TestBatchQueueFIFO(t *testing.T) {
	q := newBatchQueue()
	a := []op.Operation{{ID: "a"}}
	b := []op.Operation{{ID: "b"}}
	require.True(t, q.Enqueue(a))
	require.True(t, q.Enqueue(b))
	assert.Equal(t, 2, q.Len())

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, a, got)

	q.Close()
	assert.False(t, q.Enqueue(a))
	assert.False(t, q.Drained())

	got, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, b, got)
	assert.True(t, q.Drained())
}
