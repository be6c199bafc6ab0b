package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/trustlog/internal/op"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// appendAll appends ops and fails the test on error.
func appendAll(t *testing.T, s *Store, ops []op.Operation) []AppendResult {
	t.Helper()
	res, err := s.AppendBatch(context.Background(), ops)
	if err != nil {
		t.Fatalf("AppendBatch() failed: %v", err)
	}
	return res
}
