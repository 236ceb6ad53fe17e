package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFingerprintIsDeterministic(t *testing.T) {
	a, err := TokenFingerprint("some-raw-token")
	require.NoError(t, err)
	b, err := TokenFingerprint("some-raw-token")
	require.NoError(t, err)
	c, err := TokenFingerprint("another-token")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "some-raw-token")
}

func TestMemoryStoreBlacklist(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	revoked, err := store.IsBlacklisted(ctx, "fp-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Blacklist(ctx, "fp-1", time.Now().Add(time.Hour)))

	revoked, err = store.IsBlacklisted(ctx, "fp-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryStoreBlacklistEntriesLapse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Blacklist(ctx, "fp-1", current.Add(time.Minute)))

	revoked, err := store.IsBlacklisted(ctx, "fp-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Once the token would have expired on its own, the blacklist entry
	// no longer matters and is dropped on lookup.
	current = current.Add(2 * time.Minute)

	revoked, err = store.IsBlacklisted(ctx, "fp-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Empty(t, store.blacklist)
}

func TestMemoryStoreBlacklistingExpiredTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	require.NoError(t, store.Blacklist(ctx, "fp-1", time.Now().Add(-time.Minute)))
	assert.Empty(t, store.blacklist)
}

func TestMemoryStoreRotateRefresh(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, store.RegisterRefresh(ctx, "fp-old", "acc-1", exp))

	require.NoError(t, store.RotateRefresh(ctx, "fp-old", "fp-new", "acc-1", exp))

	t.Run("old fingerprint is single use", func(t *testing.T) {
		err := store.RotateRefresh(ctx, "fp-old", "fp-other", "acc-1", exp)
		assert.ErrorContains(t, err, "not registered")
	})

	t.Run("new fingerprint rotates", func(t *testing.T) {
		assert.NoError(t, store.RotateRefresh(ctx, "fp-new", "fp-newer", "acc-1", exp))
	})
}

func TestMemoryStoreRotateUnknownFingerprint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	err := store.RotateRefresh(ctx, "never-registered", "fp-new", "acc-1", time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestMemoryStoreRotateExpiredEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.RegisterRefresh(ctx, "fp-old", "acc-1", current.Add(time.Minute)))

	current = current.Add(2 * time.Minute)

	err := store.RotateRefresh(ctx, "fp-old", "fp-new", "acc-1", current.Add(time.Hour))
	assert.Error(t, err)
}

func TestMemoryStoreRemoveRefresh(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, store.RegisterRefresh(ctx, "fp-1", "acc-1", exp))
	require.NoError(t, store.RemoveRefresh(ctx, "fp-1"))

	assert.Error(t, store.RemoveRefresh(ctx, "fp-1"))
	assert.Empty(t, store.byAccount)
}

func TestMemoryStoreRevokeAccountDropsWholeChain(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, store.RegisterRefresh(ctx, "fp-1", "acc-1", exp))
	require.NoError(t, store.RegisterRefresh(ctx, "fp-2", "acc-1", exp))
	require.NoError(t, store.RegisterRefresh(ctx, "fp-3", "acc-2", exp))

	require.NoError(t, store.RevokeAccount(ctx, "acc-1"))

	assert.Error(t, store.RotateRefresh(ctx, "fp-1", "fp-x", "acc-1", exp))
	assert.Error(t, store.RotateRefresh(ctx, "fp-2", "fp-y", "acc-1", exp))

	// Other accounts are untouched.
	assert.NoError(t, store.RotateRefresh(ctx, "fp-3", "fp-z", "acc-2", exp))
}

func TestMemoryStoreSweepDropsLapsedRefreshEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.RegisterRefresh(ctx, "fp-short", "acc-1", current.Add(time.Minute)))
	require.NoError(t, store.RegisterRefresh(ctx, "fp-long", "acc-1", current.Add(time.Hour)))

	// Advance past both the entry's expiry and the sweep throttle.
	current = current.Add(5 * time.Minute)

	require.NoError(t, store.RegisterRefresh(ctx, "fp-trigger", "acc-2", current.Add(time.Hour)))

	assert.NotContains(t, store.refresh, "fp-short")
	assert.Contains(t, store.refresh, "fp-long")
}
