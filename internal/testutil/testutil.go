// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"hongdating/internal/database"
	"hongdating/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns an isolated in-memory sqlite database with the full schema.
// The shared cache keeps every pooled connection on the same database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test_%d_%d?mode=memory&cache=shared&_busy_timeout=5000",
		time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection avoids sqlite table locks between a transaction and a
	// concurrent read on a second pooled connection.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewRedis starts miniredis and returns it with a connected client.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// UserOpt customizes a fixture user.
type UserOpt func(*models.User)

// WithGender sets the fixture's gender.
func WithGender(g string) UserOpt {
	return func(u *models.User) { u.Gender = g }
}

// WithInterests sets the fixture's interests.
func WithInterests(tags ...string) UserOpt {
	return func(u *models.User) { u.Interests = tags }
}

// Incomplete leaves the profile unfinished.
func Incomplete() UserOpt {
	return func(u *models.User) {
		u.ProfileCompleted = false
		u.NicknameKey = nil
	}
}

// Admin grants admin rights.
func Admin() UserOpt {
	return func(u *models.User) { u.IsAdmin = true }
}

// CreateUser inserts a completed profile named nickname.
func CreateUser(t testing.TB, db *gorm.DB, nickname string, opts ...UserOpt) *models.User {
	t.Helper()
	key := nickname
	u := &models.User{
		DeviceID:         uuid.NewString(),
		DeviceSecretHash: "x",
		Nickname:         nickname,
		NicknameKey:      &key,
		Gender:           models.GenderOther,
		Interests:        models.StringList{},
		ProfileCompleted: true,
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", nickname, err)
	}
	return u
}

// PNG returns an encoded w x h PNG.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
