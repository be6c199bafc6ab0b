package harness

import (
	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/reducer"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the folds agree and every assertion holds.
	Pass bool `json:"pass"`

	// Errors holds one message per failure. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Digest is the digest of the final state.
	Digest string `json:"digest"`

	// Snapshot is the snapshot produced by the full fold.
	Snapshot *member.Snapshot `json:"-"`

	// Drops lists every operation the incremental fold dropped, in order.
	Drops []*reducer.DropError `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
