// Package featureflags evaluates static flags from config with runtime
// overrides shared through Redis.
package featureflags

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"hongdating/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// OverridesKey is the Redis hash holding runtime flag values.
const OverridesKey = "app:flags"

// Maintenance gates every non-admin API route.
const Maintenance = "maintenance"

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "maintenance=off,new_feed=25%"
type Manager struct {
	flags map[string]string

	rdb       *redis.Client
	mu        sync.RWMutex
	overrides map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := normalize(parts[0])
		value := normalize(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out, overrides: make(map[string]string)}
}

// WithRedis enables runtime overrides stored under OverridesKey.
func (m *Manager) WithRedis(rdb *redis.Client) *Manager {
	m.rdb = rdb
	return m
}

func (m *Manager) value(name string) (string, bool) {
	name = normalize(name)
	m.mu.RLock()
	v, ok := m.overrides[name]
	m.mu.RUnlock()
	if ok {
		return v, true
	}
	v, ok = m.flags[name]
	return v, ok
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%)
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.value(name)
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	if strings.HasSuffix(value, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
		if err != nil || pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		if userID == 0 {
			return false
		}
		return rolloutBucket(name, userID) < pct
	}

	return false
}

// InMaintenance reports whether the maintenance flag is on.
func (m *Manager) InMaintenance() bool {
	return m.Enabled(Maintenance, 0)
}

// Set stores a runtime override. Without Redis it only affects this process.
func (m *Manager) Set(ctx context.Context, name, value string) error {
	name, value = normalize(name), normalize(value)
	if name == "" || value == "" {
		return fmt.Errorf("flag name and value are required")
	}
	if m.rdb != nil {
		if err := m.rdb.HSet(ctx, OverridesKey, name, value).Err(); err != nil {
			return fmt.Errorf("store flag override: %w", err)
		}
	}
	m.mu.Lock()
	m.overrides[name] = value
	m.mu.Unlock()
	return nil
}

// Refresh reloads overrides from Redis.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.rdb == nil {
		return nil
	}
	values, err := m.rdb.HGetAll(ctx, OverridesKey).Result()
	if err != nil {
		return err
	}
	next := make(map[string]string, len(values))
	for k, v := range values {
		next[normalize(k)] = normalize(v)
	}
	m.mu.Lock()
	m.overrides = next
	m.mu.Unlock()
	return nil
}

// StartRefresher reloads overrides every interval until ctx is done.
func (m *Manager) StartRefresher(ctx context.Context, interval time.Duration) {
	if m.rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Refresh(ctx); err != nil {
					middleware.Logger.Warn("feature flag refresh failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Raw returns a copy of configured flags with overrides applied.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	m.mu.RLock()
	for k, v := range m.overrides {
		out[k] = v
	}
	m.mu.RUnlock()
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	raw := m.Raw()
	out := make(map[string]bool, len(raw))
	for name := range raw {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
