// Package statebackend implements C9: keyed + operator state with
// snapshot/restore (§4.7), plus the two transports SPEC_FULL §4.8 (C15)
// adds on top of the interface — in-memory (default) and Redis-backed.
package statebackend

import (
	"context"
	"time"
)

// Backend is the single-writer state interface the stream processor
// depends on; concurrent access is the caller's responsibility (§4.7,
// §5). A checkpoint is a logical snapshot identifier; restore replaces
// the entire backend atomically.
type Backend interface {
	Get(ctx context.Context, key, name string) ([]byte, bool, error)
	Put(ctx context.Context, key, name string, value []byte) error
	Clear(ctx context.Context, key, name string) error
	Checkpoint(ctx context.Context) (string, error)
	Restore(ctx context.Context, id string) error
	// Sweep evicts entries the caller marks stale by supplying a
	// predicate keyed by (key, name); used by the stream processor's
	// periodic sweep (§4.5 step 6, SPEC_FULL §4.9).
	Sweep(ctx context.Context, olderThan time.Duration, isStale func(key, name string, value []byte) bool) (int, error)
}
