package statebackend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crlsmrls/modsentry/internal/modsentryerr"
)

type entry struct {
	value    []byte
	updated  time.Time
}

// MemoryBackend is the default, single-process Backend, used by Flow
// B in tests and single-process deployments. Checkpointing is a deep
// copy of the keyed map, satisfying the "consistent cut" requirement
// of §5 without quiescing the processor.
type MemoryBackend struct {
	mu          sync.Mutex
	data        map[string]entry // "key\x00name" -> entry
	checkpoints map[string]map[string]entry
	seq         int
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data:        make(map[string]entry),
		checkpoints: make(map[string]map[string]entry),
	}
}

func compositeKey(key, name string) string {
	return key + "\x00" + name
}

func (b *MemoryBackend) Get(_ context.Context, key, name string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.data[compositeKey(key, name)]
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (b *MemoryBackend) Put(_ context.Context, key, name string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[compositeKey(key, name)] = entry{value: value, updated: time.Now()}
	return nil
}

func (b *MemoryBackend) Clear(_ context.Context, key, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, compositeKey(key, name))
	return nil
}

// Checkpoint deep-copies the current keyed map under a new snapshot id.
func (b *MemoryBackend) Checkpoint(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := fmt.Sprintf("chkpt-%d", b.seq)

	snapshot := make(map[string]entry, len(b.data))
	for k, v := range b.data {
		snapshot[k] = v
	}
	b.checkpoints[id] = snapshot
	return id, nil
}

// Restore replaces the entire backend atomically from a prior checkpoint.
func (b *MemoryBackend) Restore(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot, ok := b.checkpoints[id]
	if !ok {
		return modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Restore", fmt.Errorf("unknown checkpoint %q", id))
	}

	restored := make(map[string]entry, len(snapshot))
	for k, v := range snapshot {
		restored[k] = v
	}
	b.data = restored
	return nil
}

// Sweep evicts entries older than olderThan for which isStale reports
// true, returning the number evicted.
func (b *MemoryBackend) Sweep(_ context.Context, olderThan time.Duration, isStale func(key, name string, value []byte) bool) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	evicted := 0
	for composite, e := range b.data {
		if e.updated.After(cutoff) {
			continue
		}
		key, name := splitComposite(composite)
		if isStale == nil || isStale(key, name, e.value) {
			delete(b.data, composite)
			evicted++
		}
	}
	return evicted, nil
}

func splitComposite(composite string) (key, name string) {
	for i := 0; i < len(composite); i++ {
		if composite[i] == 0 {
			return composite[:i], composite[i+1:]
		}
	}
	return composite, ""
}
