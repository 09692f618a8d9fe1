package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID       uint   `json:"id"`
	Nickname string `json:"nickname"`
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *profile) func() error {
		return func() error {
			calls++
			*dest = profile{ID: 3, Nickname: "mina"}
			return nil
		}
	}

	var first profile
	require.NoError(t, Aside(ctx, ProfileKey(3), &first, ProfileTTL, fetch(&first)))
	var second profile
	require.NoError(t, Aside(ctx, ProfileKey(3), &second, ProfileTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "mina", second.Nickname)
	assert.True(t, mr.Exists("user:profile:3"))

	InvalidateProfile(ctx, 3)
	assert.False(t, mr.Exists("user:profile:3"))
}

func TestAside_NoClientAlwaysFetches(t *testing.T) {
	SetClient(nil)
	calls := 0
	var p profile
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "k", &p, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_PropagatesFetchError(t *testing.T) {
	useMiniredis(t)
	boom := errors.New("db down")
	var p profile
	err := Aside(context.Background(), "k", &p, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestAside_CorruptEntryFallsThrough(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set("user:profile:9", "{not json"))

	var p profile
	err := Aside(context.Background(), ProfileKey(9), &p, time.Minute, func() error {
		p = profile{ID: 9}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(9), p.ID)
}

func TestFeedPageKeyChangesAfterInvalidate(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()

	before := FeedPageKey(ctx, 1, 20, 0)
	InvalidateFeed(ctx)
	after := FeedPageKey(ctx, 1, 20, 0)

	assert.Equal(t, "posts:feed:0:1:20:0", before)
	assert.Equal(t, "posts:feed:1:1:20:0", after)
}
