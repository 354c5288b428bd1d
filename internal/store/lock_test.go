//go:build unix

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.barfi")
	ctx := context.Background()

	first, err := Lock(ctx, path, time.Second)
	require.NoError(t, err)
	assert.Equal(t, path+LockSuffix, first.Path())

	// flock locks belong to the open file description, so a second open in
	// the same process contends like another process would.
	_, err = Lock(ctx, path, 150*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock(), "double unlock is a no-op")

	second, err := Lock(ctx, path, time.Second)
	require.NoError(t, err)
	require.NoError(t, second.Unlock())
}

func TestLockWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.barfi")
	ctx := context.Background()

	first, err := Lock(ctx, path, time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		first.Unlock()
	}()

	second, err := Lock(ctx, path, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, second.Unlock())
}

func TestLockCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.barfi")

	held, err := Lock(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer held.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Lock(ctx, path, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
