package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix = "user:profile:%d"
	FeedGenKey       = "posts:feed:gen"
	FeedPageFormat   = "posts:feed:%d:%d:%d:%d"
)

const (
	ProfileTTL  = 5 * time.Minute
	FeedPageTTL = 30 * time.Second
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

// FeedPageKey is scoped to the current feed generation so a single INCR
// invalidates every cached page.
func FeedPageKey(ctx context.Context, viewerID uint, limit, offset int) string {
	var gen int64
	if client != nil {
		if v, err := client.Get(ctx, FeedGenKey).Int64(); err == nil {
			gen = v
		}
	}
	return fmt.Sprintf(FeedPageFormat, gen, viewerID, limit, offset)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateProfile(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ProfileKey(id))
	}
	Invalidate(ctx, keys...)
}

// InvalidateFeed drops every cached feed page.
func InvalidateFeed(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, FeedGenKey)
	}
}
