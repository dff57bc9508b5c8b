// Package redislock provides a TTL-bounded, ownership-checked mutual
// exclusion primitive on top of a shared redis instance. A lock may only be
// released by the identifier that acquired it; an expired lock is
// indistinguishable from a never-acquired one.
package redislock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const retryInterval = 100 * time.Millisecond

// Reserved key namespaces for session-level and artifact-level exclusion.
const (
	playlistLockPrefix    = "playlist_lock:"
	previewFileLockPrefix = "preview_file_annotations_lock:"
)

func PlaylistKey(playlistId string) string {
	return playlistLockPrefix + playlistId
}

func PreviewFileKey(previewFileId string) string {
	return previewFileLockPrefix + previewFileId
}

// Policy decides what WithLock does when the lock cannot be obtained
// (backend unreachable or waitTimeout elapsed).
type Policy int

const (
	// FailOpen runs the critical section without exclusion.
	FailOpen Policy = iota
	// FailClosed skips the critical section entirely.
	FailClosed
)

// Lease identifies a held lock. The identifier is a fresh random token per
// acquisition, so a lease can never release a lock re-acquired by someone
// else after TTL expiry.
type Lease struct {
	Key        string
	Identifier string
}

type Locker struct {
	rc            *redis.Client
	releaseScript *redis.Script
}

func New(rc *redis.Client) *Locker {
	return &Locker{
		rc: rc,
		releaseScript: redis.NewScript(`
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			end
			return 0
		`),
	}
}

// Acquire attempts a set-if-absent on key with expiry ttl, retrying every
// 100ms until waitTimeout elapses. It returns ok=false if the lock could not
// be obtained in time, if the backend is unreachable, or if ctx is done.
func (l *Locker) Acquire(ctx context.Context, key string, ttl, waitTimeout time.Duration) (Lease, bool) {
	identifier := uuid.NewString()
	deadline := time.Now().Add(waitTimeout)

	for {
		ok, err := l.rc.SetNX(ctx, key, identifier, ttl).Result()
		if err != nil {
			// backend unreachable: report failure immediately, the
			// caller's policy decides what happens next
			return Lease{}, false
		}
		if ok {
			return Lease{Key: key, Identifier: identifier}, true
		}

		if time.Now().After(deadline) {
			return Lease{}, false
		}

		select {
		case <-ctx.Done():
			return Lease{}, false
		case <-time.After(retryInterval):
		}
	}
}

// Release deletes the lock only if it is still held by lease's identifier.
// The check and delete run as a single server-side script so the lock cannot
// be released after expiring and being re-acquired by another owner. Backend
// errors are swallowed: the lock self-heals via TTL.
func (l *Locker) Release(ctx context.Context, lease Lease) {
	if lease.Key == "" || lease.Identifier == "" {
		return
	}

	_ = l.releaseScript.Run(ctx, l.rc, []string{lease.Key}, lease.Identifier).Err()
}

// WithLock acquires key, runs fn and releases the lock on every exit path.
// The returned bool reports whether fn ran under actual exclusion. With
// FailClosed, fn is not run at all when the lock is unavailable.
func (l *Locker) WithLock(ctx context.Context, key string, ttl, waitTimeout time.Duration, policy Policy, fn func(ctx context.Context) error) (bool, error) {
	lease, acquired := l.Acquire(ctx, key, ttl, waitTimeout)
	if !acquired {
		if policy == FailClosed {
			return false, nil
		}
		return false, fn(ctx)
	}
	defer l.Release(ctx, lease)

	return true, fn(ctx)
}
