package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/trustlog/internal/op"
)

// ErrConflict is returned when an operation id is already stored with
// different content.
var ErrConflict = errors.New("operation id already stored with different content")

// AppendResult reports where an operation landed in the log.
type AppendResult struct {
	ID  op.OperationID
	Seq int64

	// Duplicate is true when the identical operation was already stored.
	Duplicate bool
}

// Append adds one operation to the end of the log.
// The store assigns the seq; o.Seq is ignored.
func (s *Store) Append(ctx context.Context, o op.Operation) (AppendResult, error) {
	results, err := s.AppendBatch(ctx, []op.Operation{o})
	if err != nil {
		return AppendResult{}, err
	}
	return results[0], nil
}

// AppendBatch adds operations to the log in slice order, atomically.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: an operation already
// stored with the same content hash is reported as Duplicate. If any
// operation conflicts, nothing in the batch is written.
func (s *Store) AppendBatch(ctx context.Context, ops []op.Operation) ([]AppendResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append: begin: %w", err)
	}
	defer tx.Rollback()

	results := make([]AppendResult, 0, len(ops))
	for _, o := range ops {
		res, err := appendTx(ctx, tx, o)
		if err != nil {
			return nil, fmt.Errorf("append %s: %w", o.ID, err)
		}
		results = append(results, res)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append: commit: %w", err)
	}
	return results, nil
}

func appendTx(ctx context.Context, tx *sql.Tx, o op.Operation) (AppendResult, error) {
	if o.ID == "" || o.CreatorUID == "" || o.Type == "" {
		return AppendResult{}, fmt.Errorf("id, creator_uid and type are required")
	}
	r, err := toRow(o)
	if err != nil {
		return AppendResult{}, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO operations (id, creator_uid, type, data, created_at, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.id, r.creatorUID, r.typ, r.data, r.createdAt, r.contentHash)
	if err != nil {
		return AppendResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return AppendResult{}, err
	}
	if n == 1 {
		seq, err := res.LastInsertId()
		if err != nil {
			return AppendResult{}, err
		}
		return AppendResult{ID: o.ID, Seq: seq}, nil
	}

	var (
		seq  int64
		hash string
	)
	if err := tx.QueryRowContext(ctx,
		`SELECT seq, content_hash FROM operations WHERE id = ?`, r.id,
	).Scan(&seq, &hash); err != nil {
		return AppendResult{}, err
	}
	if hash != r.contentHash {
		return AppendResult{}, ErrConflict
	}
	return AppendResult{ID: o.ID, Seq: seq, Duplicate: true}, nil
}
