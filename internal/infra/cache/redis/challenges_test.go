package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "stayly/internal/domain/auth"
)

func newTestStore(t *testing.T) (*ChallengeStore, *miniredis.Miniredis, time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	now := time.Date(2030, time.May, 1, 9, 0, 0, 0, time.UTC)
	store := NewChallengeStore(client)
	store.Now = func() time.Time { return now }
	return store, mr, now
}

func newChallenge(t *testing.T, email string, now time.Time) *domainauth.Challenge {
	t.Helper()
	c, err := domainauth.NewChallenge(domainauth.NewChallengeParams{
		Email: email, CodeHash: "hash", WantsHost: true, TTL: 10 * time.Minute, Now: now,
	})
	require.NoError(t, err)
	return c
}

func TestChallengeStoreRoundTrip(t *testing.T) {
	store, mr, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newChallenge(t, "ana@example.com", now)))
	assert.True(t, mr.Exists("stayly:otp:ana@example.com"))
	assert.Equal(t, 10*time.Minute, mr.TTL("stayly:otp:ana@example.com"))

	got, err := store.Get(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "hash", got.CodeHash)
	assert.True(t, got.WantsHost)
	assert.Zero(t, got.Attempts)
	assert.True(t, got.ExpiresAt.Equal(now.Add(10*time.Minute)))
}

func TestChallengeStoreMissingAndExpired(t *testing.T) {
	store, mr, now := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domainauth.ErrChallengeNotFound)

	require.NoError(t, store.Save(ctx, newChallenge(t, "ana@example.com", now)))
	mr.FastForward(11 * time.Minute)
	_, err = store.Get(ctx, "ana@example.com")
	assert.ErrorIs(t, err, domainauth.ErrChallengeNotFound)

	expired := newChallenge(t, "old@example.com", now.Add(-time.Hour))
	require.NoError(t, store.Save(ctx, expired))
	assert.False(t, mr.Exists("stayly:otp:old@example.com"))
}

func TestChallengeStoreCountsFailures(t *testing.T) {
	store, mr, now := newTestStore(t)
	ctx := context.Background()

	_, err := store.RegisterFailure(ctx, "ana@example.com")
	assert.ErrorIs(t, err, domainauth.ErrChallengeNotFound)
	assert.False(t, mr.Exists("stayly:otp:ana@example.com:attempts"))

	require.NoError(t, store.Save(ctx, newChallenge(t, "ana@example.com", now)))
	for want := 1; want <= 3; want++ {
		n, err := store.RegisterFailure(ctx, "ana@example.com")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	got, err := store.Get(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, 10*time.Minute, mr.TTL("stayly:otp:ana@example.com:attempts"))

	require.NoError(t, store.Save(ctx, newChallenge(t, "ana@example.com", now)))
	got, err = store.Get(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Zero(t, got.Attempts, "a new code resets the count")
}

func TestChallengeStoreConcurrentFailuresAreAllCounted(t *testing.T) {
	store, _, now := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newChallenge(t, "ana@example.com", now)))

	const workers = 12
	var wg sync.WaitGroup
	seen := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := store.RegisterFailure(ctx, "ana@example.com")
			assert.NoError(t, err)
			seen[i] = n
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, seen)
}

func TestChallengeStoreDelete(t *testing.T) {
	store, mr, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newChallenge(t, "ana@example.com", now)))
	_, err := store.RegisterFailure(ctx, "ana@example.com")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "ana@example.com"))
	assert.False(t, mr.Exists("stayly:otp:ana@example.com"))
	assert.False(t, mr.Exists("stayly:otp:ana@example.com:attempts"))
	require.NoError(t, store.Ping(ctx))
}
