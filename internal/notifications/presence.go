package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"hongdating/internal/middleware"
	"hongdating/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix   = "ws:last_seen:"
	defaultPresenceTTL  = 90 * time.Second
	defaultOfflineGrace = 5 * time.Second
	presenceCallTimeout = 2 * time.Second
)

// Presence tracks which users have an open socket on any instance. Local
// counts answer for this process; a Redis last-seen key with a TTL answers
// for the others and is refreshed by pongs.
type Presence struct {
	rdb *redis.Client

	mu     sync.RWMutex
	counts map[uint]int

	ttl   time.Duration
	grace time.Duration
}

// NewPresence creates a Presence. rdb may be nil.
func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{
		rdb:    rdb,
		counts: make(map[uint]int),
		ttl:    defaultPresenceTTL,
		grace:  defaultOfflineGrace,
	}
}

func presenceKey(userID uint) string {
	return presenceKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// Register counts one more connection for userID.
func (p *Presence) Register(ctx context.Context, userID uint) {
	p.mu.Lock()
	p.counts[userID]++
	p.mu.Unlock()
	p.Touch(ctx, userID)
}

// Touch refreshes the shared last-seen key.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p == nil || p.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, presenceCallTimeout)
	defer cancel()
	if err := p.rdb.SetEx(ctx, presenceKey(userID), strconv.FormatInt(time.Now().Unix(), 10), p.ttl).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("presence").Inc()
		middleware.Logger.Debug("presence touch failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
}

// Unregister drops one connection. When the last local connection goes,
// the shared key is shortened to the offline grace window so another
// instance's pongs can still keep it alive.
func (p *Presence) Unregister(ctx context.Context, userID uint) {
	p.mu.Lock()
	n := p.counts[userID] - 1
	if n > 0 {
		p.counts[userID] = n
		p.mu.Unlock()
		return
	}
	delete(p.counts, userID)
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, presenceCallTimeout)
	defer cancel()
	if err := p.rdb.Expire(ctx, presenceKey(userID), p.grace).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("presence").Inc()
	}
}

// IsOnline reports whether userID has a socket open anywhere.
func (p *Presence) IsOnline(ctx context.Context, userID uint) bool {
	p.mu.RLock()
	local := p.counts[userID] > 0
	p.mu.RUnlock()
	if local || p.rdb == nil {
		return local
	}
	ctx, cancel := context.WithTimeout(ctx, presenceCallTimeout)
	defer cancel()
	exists, err := p.rdb.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("presence").Inc()
		return false
	}
	return exists > 0
}
