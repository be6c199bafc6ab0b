package op

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces operation ids for locally authored operations.
type IDGenerator interface {
	Generate() OperationID
}

// UUIDv7Generator generates time-sortable UUIDv7 operation ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() OperationID {
	return OperationID(uuid.Must(uuid.NewV7()).String())
}

// SequentialGenerator returns prefix-1, prefix-2, ... for tests and
// golden output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialGenerator creates a generator whose ids start at prefix-1.
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	if prefix == "" {
		prefix = "op"
	}
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialGenerator) Generate() OperationID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return OperationID(fmt.Sprintf("%s-%d", g.prefix, g.n))
}
