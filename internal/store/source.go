package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/trustlog/internal/op"
)

// Defaults for Source.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPageSize     = 200
)

// Source exposes the store as a log source for the snapshot publisher.
// New operations are discovered by polling.
type Source struct {
	store    *Store
	interval time.Duration
	pageSize int
	logger   *slog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithPollInterval sets how often Subscribe checks for new operations.
func WithPollInterval(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithPageSize sets how many operations are read per query.
func WithPageSize(n int) SourceOption {
	return func(s *Source) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithSourceLogger sets the logger.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource creates a Source over st.
func NewSource(st *Store, opts ...SourceOption) *Source {
	s := &Source{
		store:    st,
		interval: DefaultPollInterval,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the whole log, read page by page.
func (s *Source) Fetch(ctx context.Context) ([]op.Operation, error) {
	all := []op.Operation{}
	var after int64
	for {
		page, err := s.store.ReadAfter(ctx, after, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch after seq %d: %w", after, err)
		}
		all = append(all, page...)
		if len(page) < s.pageSize {
			return all, nil
		}
		after = page[len(page)-1].Seq
	}
}

// Subscribe polls for operations beyond afterSeq and hands each page to
// onAppend in log order. It returns ctx.Err() when ctx is done.
//
// A failed poll is logged and retried on the next tick.
func (s *Source) Subscribe(ctx context.Context, afterSeq int64, onAppend func([]op.Operation)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	after := afterSeq
	for {
		for {
			page, err := s.store.ReadAfter(ctx, after, s.pageSize)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("poll operation log", "after_seq", after, "error", err)
				break
			}
			if len(page) == 0 {
				break
			}
			onAppend(page)
			after = page[len(page)-1].Seq
			if len(page) < s.pageSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
