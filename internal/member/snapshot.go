package member

import "time"

// Snapshot is a published State.
//
// Version increases by one on every publish; PublishedAt is wall-clock
// time from the publisher's clock. Snapshots are never modified after
// publication.
type Snapshot struct {
	State
	Version     uint64
	PublishedAt time.Time
}

// NewSnapshot wraps s as version v.
func NewSnapshot(s State, v uint64, at time.Time) *Snapshot {
	return &Snapshot{State: s, Version: v, PublishedAt: at}
}
