package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

func TestStructureLock_TryLockUnlock(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewStructureLocker(client, logging.NewNopLogger(), WithLockTTL(time.Second))
	ctx := context.Background()

	lock := locker.ForStructure(7)
	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("signprot:lock:structure:7"))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("signprot:lock:structure:7"))
}

func TestStructureLock_Contention(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewStructureLocker(client, logging.NewNopLogger())
	ctx := context.Background()

	first := locker.ForStructure(7)
	second := locker.ForStructure(7)
	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	err = second.Unlock(ctx)
	assert.Equal(t, ErrLockNotHeld, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))

	// other structures are independent
	ok, err = locker.ForStructure(8).TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, first.Unlock(ctx))
	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStructureLock_Extend(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewStructureLocker(client, logging.NewNopLogger(), WithLockTTL(time.Second))
	ctx := context.Background()

	lock := locker.ForStructure(9)
	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("signprot:lock:structure:9"))

	mr.FastForward(2 * time.Minute)
	ok, err = lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStructureLock_LeaseExpiresWithoutWatchdog(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewStructureLocker(client, logging.NewNopLogger(), WithLockTTL(time.Second))
	ctx := context.Background()

	first := locker.ForStructure(42)
	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = locker.ForStructure(42).TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "an unrenewed lease expires")
	assert.Equal(t, ErrLockNotHeld, first.Unlock(ctx))
}

func TestStructureLock_WatchdogHoldsLeasePastTTL(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewStructureLocker(client, logging.NewNopLogger(), WithLockTTL(300*time.Millisecond), WithWatchdog(true))
	ctx := context.Background()

	first := locker.ForStructure(42)
	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// each round lets the watchdog renew, then burns 2/3 of the lease
	for i := 0; i < 4; i++ {
		time.Sleep(150 * time.Millisecond)
		mr.FastForward(200 * time.Millisecond)
	}

	ok, err = locker.ForStructure(42).TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a second builder must not take a structure still being built")
	require.NoError(t, first.Unlock(ctx))
	assert.False(t, mr.Exists("signprot:lock:structure:42"))
}
