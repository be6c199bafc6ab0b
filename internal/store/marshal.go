package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/trustlog/internal/op"
)

// operationColumns is the column list every read selects, in scan order.
const operationColumns = "seq, id, creator_uid, type, data, created_at"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// row is the stored shape of one operation.
type row struct {
	id          string
	creatorUID  string
	typ         string
	data        string
	createdAt   string
	contentHash string
}

func toRow(o op.Operation) (row, error) {
	data, err := o.DataJSON()
	if err != nil {
		return row{}, err
	}
	hash, err := op.ContentHash(o)
	if err != nil {
		return row{}, err
	}
	r := row{
		id:          string(o.ID),
		creatorUID:  string(o.CreatorUID),
		typ:         string(o.Type),
		data:        string(data),
		contentHash: hash,
	}
	if !o.CreatedAt.IsZero() {
		r.createdAt = o.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return r, nil
}

// scanOperation reads one row selected with operationColumns.
// The payload is decoded leniently: a stored payload that no longer fits
// its type comes back as op.Malformed rather than an error.
func scanOperation(s rowScanner) (op.Operation, error) {
	var (
		seq                          int64
		id, creator, typ, data, when string
	)
	if err := s.Scan(&seq, &id, &creator, &typ, &data, &when); err != nil {
		return op.Operation{}, err
	}
	o := op.Operation{
		ID:         op.OperationID(id),
		CreatorUID: op.MemberID(creator),
		Type:       op.Type(typ),
		Data:       op.DecodePayload(op.Type(typ), json.RawMessage(data)),
		Seq:        seq,
	}
	if when != "" {
		t, err := time.Parse(time.RFC3339Nano, when)
		if err != nil {
			return op.Operation{}, fmt.Errorf("operation %s: created_at %q: %w", id, when, err)
		}
		o.CreatedAt = t
	}
	return o, nil
}
