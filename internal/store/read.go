package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/trustlog/internal/op"
)

// ErrNotFound is returned when an operation id is not in the log.
var ErrNotFound = errors.New("operation not found")

// ReadAll returns the whole log ordered by seq.
// Returns an empty slice (not nil) for an empty log.
func (s *Store) ReadAll(ctx context.Context) ([]op.Operation, error) {
	return s.query(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		ORDER BY seq ASC
	`)
}

// ReadAfter returns up to limit operations with seq greater than afterSeq,
// ordered by seq. A limit <= 0 means no limit.
func (s *Store) ReadAfter(ctx context.Context, afterSeq int64, limit int) ([]op.Operation, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.query(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, limit)
}

// ReadByCreator returns every operation created by id, ordered by seq.
func (s *Store) ReadByCreator(ctx context.Context, id op.MemberID) ([]op.Operation, error) {
	return s.query(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE creator_uid = ?
		ORDER BY seq ASC
	`, string(id))
}

// ReadOperation retrieves a single operation by id.
// Returns ErrNotFound if it is not stored.
func (s *Store) ReadOperation(ctx context.Context, id op.OperationID) (op.Operation, error) {
	o, err := scanOperation(s.db.QueryRowContext(ctx, `
		SELECT `+operationColumns+`
		FROM operations
		WHERE id = ?
	`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return op.Operation{}, fmt.Errorf("read operation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return op.Operation{}, fmt.Errorf("read operation %s: %w", id, err)
	}
	return o, nil
}

// LastSeq returns the highest seq in the log, or 0 when it is empty.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM operations`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Count returns the number of stored operations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]op.Operation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []op.Operation{}
	for rows.Next() {
		o, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}
