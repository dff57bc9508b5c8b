package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rc), mr
}

func TestAcquireAndRelease(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	lease, ok := l.Acquire(ctx, "playlist_lock:p1", 30*time.Second, time.Second)
	require.True(t, ok)
	assert.Equal(t, "playlist_lock:p1", lease.Key)
	assert.NotEmpty(t, lease.Identifier)
	assert.True(t, mr.Exists("playlist_lock:p1"))

	l.Release(ctx, lease)
	assert.False(t, mr.Exists("playlist_lock:p1"))
}

func TestAcquireMutualExclusion(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	_, ok := l.Acquire(ctx, "k", 30*time.Second, time.Second)
	require.True(t, ok)

	// second acquisition times out while the lock is held
	_, ok = l.Acquire(ctx, "k", 30*time.Second, 250*time.Millisecond)
	assert.False(t, ok)
}

func TestAcquireAfterRelease(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	lease, ok := l.Acquire(ctx, "k", 30*time.Second, time.Second)
	require.True(t, ok)

	acquired := make(chan bool)
	go func() {
		_, ok := l.Acquire(ctx, "k", 30*time.Second, 5*time.Second)
		acquired <- ok
	}()

	time.Sleep(150 * time.Millisecond)
	l.Release(ctx, lease)

	select {
	case ok := <-acquired:
		assert.True(t, ok, "waiter must obtain the lock once the holder releases")
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never obtained the lock")
	}
}

func TestReleaseByWrongOwnerIsNoop(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	lease, ok := l.Acquire(ctx, "k", 30*time.Second, time.Second)
	require.True(t, ok)

	l.Release(ctx, Lease{Key: "k", Identifier: "someone-else"})
	assert.True(t, mr.Exists("k"), "lock must remain held by the original owner")

	l.Release(ctx, lease)
	assert.False(t, mr.Exists("k"))
}

func TestTTLExpiryFreesTheLock(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	stale, ok := l.Acquire(ctx, "k", time.Second, time.Second)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	fresh, ok := l.Acquire(ctx, "k", 30*time.Second, time.Second)
	require.True(t, ok, "an expired lock is indistinguishable from a never-acquired one")

	// the stale lease can no longer release the re-acquired lock
	l.Release(ctx, stale)
	assert.True(t, mr.Exists("k"))

	l.Release(ctx, fresh)
	assert.False(t, mr.Exists("k"))
}

func TestAcquireBackendUnreachable(t *testing.T) {
	l, mr := newTestLocker(t)
	mr.Close()

	start := time.Now()
	_, ok := l.Acquire(context.Background(), "k", 30*time.Second, 10*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second, "unreachable backend must fail immediately")
}

func TestWithLockRunsUnderExclusion(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	ran := false
	locked, err := l.WithLock(ctx, "k", 30*time.Second, time.Second, FailClosed, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("k"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, locked)
	assert.True(t, ran)
	assert.False(t, mr.Exists("k"), "lock must be released on exit")
}

func TestWithLockPolicies(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	_, ok := l.Acquire(ctx, "k", 30*time.Second, time.Second)
	require.True(t, ok)

	// FailClosed skips the critical section
	ran := false
	locked, err := l.WithLock(ctx, "k", 30*time.Second, 100*time.Millisecond, FailClosed, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, locked)
	assert.False(t, ran)

	// FailOpen runs it without exclusion
	locked, err = l.WithLock(ctx, "k", 30*time.Second, 100*time.Millisecond, FailOpen, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, locked)
	assert.True(t, ran)
}

func TestKeyNamespaces(t *testing.T) {
	assert.Equal(t, "playlist_lock:p1", PlaylistKey("p1"))
	assert.Equal(t, "preview_file_annotations_lock:f1", PreviewFileKey("f1"))
}
