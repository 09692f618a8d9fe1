package database

import (
	"context"
	"fmt"
	"testing"
	"testing/fstest"
	"time"

	"hongdating/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:db_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init", all[0].Name)
	assert.Contains(t, all[0].UpScript, "CREATE TABLE IF NOT EXISTS chat_rooms")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS users")
	assert.Equal(t, "000001_init", all[0].String())
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations_RequiresDownScript(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000001_a.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(fsys)
	assert.ErrorContains(t, err, "down migration")
}

func TestLoadMigrations_SortsAndRejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000002_b.up.sql":   {Data: []byte("SELECT 2;")},
		"migrations/000002_b.down.sql": {Data: []byte("SELECT 2;")},
		"migrations/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"migrations/000001_a.down.sql": {Data: []byte("SELECT 1;")},
	}
	set, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, 1, set[0].Version)
	assert.Equal(t, 2, set[1].Version)

	fsys["migrations/2_dup.up.sql"] = &fstest.MapFile{Data: []byte("SELECT 3;")}
	fsys["migrations/2_dup.down.sql"] = &fstest.MapFile{Data: []byte("SELECT 3;")}
	_, err = LoadMigrations(fsys)
	assert.ErrorContains(t, err, "version 2")
}

func TestRunMigrationSetAndRollback(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	set := []Migration{
		{Version: 1, Name: "widgets", UpScript: "CREATE TABLE widgets (id INTEGER PRIMARY KEY);", DownScript: "DROP TABLE widgets;"},
		{Version: 2, Name: "gadgets", UpScript: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY);", DownScript: "DROP TABLE gadgets;"},
	}

	require.NoError(t, runMigrationSet(ctx, db, set))
	// Re-running is a no-op.
	require.NoError(t, runMigrationSet(ctx, db, set))

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.True(t, db.Migrator().HasTable("gadgets"))

	require.NoError(t, rollback(ctx, db, set, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))
	assert.Error(t, rollback(ctx, db, set, 2))

	// A version the code no longer knows about blocks further runs.
	err = runMigrationSet(ctx, db, set[1:])
	assert.ErrorContains(t, err, "000001")
}

func TestFailedMigrationIsNotRecorded(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	set := []Migration{{Version: 1, Name: "broken", UpScript: "CREATE TABLE (;", DownScript: ""}}

	assert.Error(t, runMigrationSet(ctx, db, set))
	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestPlanSchema(t *testing.T) {
	cases := []struct {
		mode, env       string
		allow           bool
		runSQL, runAuto bool
		wantErr         bool
	}{
		{"", "development", false, true, true, false},
		{"hybrid", "production", false, true, false, false},
		{"sql", "development", false, true, false, false},
		{"auto", "development", false, false, true, false},
		{"auto", "production", false, false, false, true},
		{"auto", "staging", true, false, true, false},
		{"bogus", "development", false, false, false, true},
	}
	for _, tc := range cases {
		cfg := &config.Config{DBSchemaMode: tc.mode, Env: tc.env, DBAutoMigrateAllowDestructive: tc.allow}
		plan, err := PlanSchema(cfg)
		if tc.wantErr {
			assert.Error(t, err, "%s/%s", tc.mode, tc.env)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.runSQL, plan.SQL, "%s/%s", tc.mode, tc.env)
		assert.Equal(t, tc.runAuto, plan.Auto, "%s/%s", tc.mode, tc.env)
	}
}

func TestGetSchemaStatus(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	status, err := GetSchemaStatus(ctx, db, &config.Config{DBSchemaMode: SchemaModeAuto, Env: "development"})
	require.NoError(t, err)
	assert.Equal(t, SchemaModeAuto, status.Mode)
	assert.False(t, status.SQL)
	assert.Empty(t, status.Pending)

	status, err = GetSchemaStatus(ctx, db, &config.Config{Env: "production"})
	require.NoError(t, err)
	assert.Equal(t, SchemaModeHybrid, status.Mode)
	assert.True(t, status.SQL)
	assert.False(t, status.Auto)
	assert.Empty(t, status.Applied)
	assert.Len(t, status.Pending, len(GetMigrations()))
}

func TestPersistentModelsAutoMigrate(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))
	for _, table := range []string{"users", "message_requests", "chat_rooms", "messages", "posts", "reports", "daily_active_users", "icebreaker_answers"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("chat_rooms", "idx_room_pair"))
}

func TestConfigurePoolDefaults(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db, &config.Config{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestSQLVerb(t *testing.T) {
	assert.Equal(t, "select", sqlVerb(`SELECT * FROM "users"`))
	assert.Equal(t, "insert", sqlVerb("  INSERT INTO x"))
	assert.Equal(t, "other", sqlVerb("PRAGMA foreign_keys"))
	assert.Equal(t, "other", sqlVerb(""))
}
