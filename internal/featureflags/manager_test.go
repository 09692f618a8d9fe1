package featureflags

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	assert.True(t, m.Enabled("always", 1))
	assert.False(t, m.Enabled("never", 1))

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", 0))
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off ")

	raw := m.Raw()
	require.Len(t, raw, 3)
	assert.Equal(t, "on", raw["x"])
	assert.Equal(t, "20%", raw["y"])
	assert.Len(t, m.Snapshot(123), 3)

	var nilManager *Manager
	assert.False(t, nilManager.Enabled("x", 1))
}

func TestOverridesSharedThroughRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	ctx := context.Background()

	admin := NewManager("").WithRedis(rdb)
	server := NewManager("maintenance=off").WithRedis(rdb)
	assert.False(t, server.InMaintenance())

	require.NoError(t, admin.Set(ctx, "Maintenance", "ON"))
	assert.Equal(t, "on", mr.HGet(OverridesKey, "maintenance"))
	assert.True(t, admin.InMaintenance())

	assert.False(t, server.InMaintenance(), "not refreshed yet")
	require.NoError(t, server.Refresh(ctx))
	assert.True(t, server.InMaintenance())
	assert.Equal(t, "on", server.Raw()["maintenance"])

	mr.HDel(OverridesKey, "maintenance")
	require.NoError(t, server.Refresh(ctx))
	assert.False(t, server.InMaintenance())
}

func TestSetWithoutRedisIsLocal(t *testing.T) {
	m := NewManager("")
	require.NoError(t, m.Set(context.Background(), Maintenance, "on"))
	assert.True(t, m.InMaintenance())
	assert.NoError(t, m.Refresh(context.Background()))
	assert.True(t, m.InMaintenance())
	assert.Error(t, m.Set(context.Background(), "", "on"))
}
