package statebackend

import (
	"context"
	"fmt"
	"time"

	"github.com/crlsmrls/modsentry/internal/modsentryerr"
	"github.com/redis/go-redis/v9"
)

// RedisBackend is the Redis-backed Backend transport (SPEC_FULL §4.8,
// C15): keys are namespaced "sb:{key}:{name}"; checkpoint copies the
// tracked key set into a "chkpt:{id}:" namespace, and restore replays
// that namespace back over the live keys.
type RedisBackend struct {
	client  redis.UniversalClient
	tracked map[string]bool // composite keys ever written, for checkpoint enumeration
	seq     int
}

// NewRedisBackend wraps an existing go-redis client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client, tracked: make(map[string]bool)}
}

func liveKey(key, name string) string {
	return fmt.Sprintf("sb:%s:%s", key, name)
}

func checkpointKey(id, key, name string) string {
	return fmt.Sprintf("chkpt:%s:%s:%s", id, key, name)
}

func (b *RedisBackend) Get(ctx context.Context, key, name string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, liveKey(key, name)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Get", err)
	}
	return val, true, nil
}

func (b *RedisBackend) Put(ctx context.Context, key, name string, value []byte) error {
	if err := b.client.Set(ctx, liveKey(key, name), value, 0).Err(); err != nil {
		return modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Put", err)
	}
	b.tracked[liveKey(key, name)] = true
	return nil
}

func (b *RedisBackend) Clear(ctx context.Context, key, name string) error {
	if err := b.client.Del(ctx, liveKey(key, name)).Err(); err != nil {
		return modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Clear", err)
	}
	delete(b.tracked, liveKey(key, name))
	return nil
}

// Checkpoint copies every tracked live key into a fresh chkpt:{id}:
// namespace.
func (b *RedisBackend) Checkpoint(ctx context.Context) (string, error) {
	b.seq++
	id := fmt.Sprintf("chkpt-%d", b.seq)

	for k := range b.tracked {
		val, err := b.client.Get(ctx, k).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return "", modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Checkpoint", err)
		}
		dst := "chkpt:" + id + ":" + k[len("sb:"):]
		if err := b.client.Set(ctx, dst, val, 0).Err(); err != nil {
			return "", modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Checkpoint", err)
		}
	}
	return id, nil
}

// Restore replays a checkpoint namespace back over the live keys.
func (b *RedisBackend) Restore(ctx context.Context, id string) error {
	prefix := "chkpt:" + id + ":"
	iter := b.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		src := iter.Val()
		val, err := b.client.Get(ctx, src).Bytes()
		if err != nil {
			return modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Restore", err)
		}
		dst := "sb:" + src[len(prefix):]
		if err := b.client.Set(ctx, dst, val, 0).Err(); err != nil {
			return modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Restore", err)
		}
		b.tracked[dst] = true
	}
	if err := iter.Err(); err != nil {
		return modsentryerr.New(modsentryerr.StateUnavailable, "statebackend.Restore", err)
	}
	return nil
}

// Sweep evicts tracked keys for which isStale reports true. Redis does
// not track last-write time for plain SET keys and this transport
// records none, so olderThan is not consulted: staleness is decided by
// isStale alone, and tracked keys that no longer exist are dropped.
func (b *RedisBackend) Sweep(ctx context.Context, olderThan time.Duration, isStale func(key, name string, value []byte) bool) (int, error) {
	evicted := 0
	for composite := range b.tracked {
		// composite is "sb:{key}:{name}"
		rest := composite[len("sb:"):]
		key, name := splitLiveComposite(rest)

		val, ok, err := b.Get(ctx, key, name)
		if err != nil {
			return evicted, err
		}
		if !ok {
			delete(b.tracked, composite)
			continue
		}
		if isStale != nil && isStale(key, name, val) {
			if err := b.Clear(ctx, key, name); err != nil {
				return evicted, err
			}
			evicted++
		}
	}
	return evicted, nil
}

func splitLiveComposite(rest string) (key, name string) {
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			return rest[:i], rest[i+1:]
		}
	}
	return rest, ""
}
