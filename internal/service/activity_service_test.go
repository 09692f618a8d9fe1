package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hongdating/internal/featureflags"
	"hongdating/internal/models"
	"hongdating/internal/repository"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var activityNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestActivityService_Record(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	repo := repository.NewActivityRepository(db)
	ctx := context.Background()

	svc := NewActivityService(repo, rdb, time.UTC)
	svc.now = func() time.Time { return activityNow }

	require.NoError(t, svc.Record(ctx, 7))
	require.NoError(t, svc.Record(ctx, 7))
	require.NoError(t, svc.Record(ctx, 0))

	members, err := mr.Members("dau:2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, members)
	assert.Equal(t, dauKeyTTL, mr.TTL("dau:2026-03-02"))

	var rows []models.DailyActiveUser
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(7), rows[0].UserID)

	// Another instance sees the Redis set and skips the write.
	other := NewActivityService(repo, rdb, time.UTC)
	other.now = func() time.Time { return activityNow.Add(time.Hour) }
	require.NoError(t, other.Record(ctx, 7))
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].LastSeenAt.Equal(activityNow))

	// With Redis down the database is still written.
	mr.Close()
	require.NoError(t, other.Record(ctx, 8))
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 2)
}

// failingTouchRepo fails the first n Touch calls.
type failingTouchRepo struct {
	repository.ActivityRepository
	n int
}

func (r *failingTouchRepo) Touch(ctx context.Context, day string, userID uint, at time.Time) error {
	if r.n > 0 {
		r.n--
		return errors.New("database unavailable")
	}
	return r.ActivityRepository.Touch(ctx, day, userID, at)
}

func TestActivityService_RecordRetriesAfterDatabaseFailure(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	ctx := context.Background()

	svc := NewActivityService(&failingTouchRepo{ActivityRepository: repository.NewActivityRepository(db), n: 1}, rdb, time.UTC)
	svc.now = func() time.Time { return activityNow }

	require.Error(t, svc.Record(ctx, 7))
	assert.False(t, mr.Exists("dau:2026-03-02"), "failed write must not stay in the daily set")

	require.NoError(t, svc.Record(ctx, 7))
	var rows []models.DailyActiveUser
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(7), rows[0].UserID)

	members, err := mr.Members("dau:2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, members)
}

func TestActivityService_DailyStats(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewActivityRepository(db)
	ctx := context.Background()

	svc := NewActivityService(repo, nil, time.UTC)
	svc.now = func() time.Time { return activityNow }
	require.NoError(t, svc.Record(ctx, 1))
	require.NoError(t, svc.Record(ctx, 2))

	yesterday := activityNow.AddDate(0, 0, -1)
	require.NoError(t, repo.Touch(ctx, models.DayKey(yesterday, time.UTC), 1, yesterday))
	require.NoError(t, db.Create(&models.DailyMessageRequest{Day: "2026-03-02", SenderID: 1, Count: 2}).Error)
	require.NoError(t, db.Create(&models.DailyMessageRequest{Day: "2026-03-02", SenderID: 2, Count: 1}).Error)

	stats, err := svc.DailyStats(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.DailyStat{
		{Day: "2026-02-28"},
		{Day: "2026-03-01", ActiveUsers: 1},
		{Day: "2026-03-02", ActiveUsers: 2, RequestsSent: 3},
	}, stats)

	stats, err = svc.DailyStats(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, stats, DefaultStatsDays)
	stats, err = svc.DailyStats(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, stats, MaxStatsDays)
}

func TestFlagService(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "anna")
	flags := featureflags.NewManager("maintenance=off")
	svc := NewFlagService(repository.NewFlagRepository(db), flags, "", Notice{Version: "2026-03", Text: "Welcome back"})

	got, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.Set(ctx, user.ID, map[string]string{})
	assertCode(t, err, models.CodeValidation)
	_, err = svc.Set(ctx, user.ID, map[string]string{"theme": "dark"})
	assertCode(t, err, models.CodeValidation)
	_, err = svc.Set(ctx, user.ID, map[string]string{models.FlagSeenIntro: strings.Repeat("x", 65)})
	assertCode(t, err, models.CodeValidation)

	got, err = svc.Set(ctx, user.ID, map[string]string{models.FlagSeenIntro: "true", models.FlagSeenNoticeVersion: " 2026-03 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{models.FlagSeenIntro: "true", models.FlagSeenNoticeVersion: "2026-03"}, got)

	got, err = svc.Set(ctx, user.ID, map[string]string{models.FlagSeenIntro: "false"})
	require.NoError(t, err)
	assert.Equal(t, "false", got[models.FlagSeenIntro])
	assert.Len(t, got, 2)

	st := svc.Status()
	assert.False(t, st.Maintenance)
	assert.Empty(t, st.Message)
	assert.Equal(t, "Welcome back", st.Notice.Text)

	require.NoError(t, flags.Set(ctx, featureflags.Maintenance, "on"))
	st = svc.Status()
	assert.True(t, st.Maintenance)
	assert.Equal(t, "Service is under maintenance", st.Message)
	assert.True(t, svc.InMaintenance())
}

func TestPushService(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	anna := testutil.CreateUser(t, db, "anna")
	ben := testutil.CreateUser(t, db, "ben")
	repo := repository.NewPushRepository(db)
	svc := NewPushService(repo)

	_, err := svc.Subscribe(ctx, anna.ID, "blackberry", "tok")
	assertCode(t, err, models.CodeValidation)
	_, err = svc.Subscribe(ctx, anna.ID, "web", " ")
	assertCode(t, err, models.CodeValidation)
	_, err = svc.Subscribe(ctx, anna.ID, "web", strings.Repeat("t", 513))
	assertCode(t, err, models.CodeValidation)

	sub, err := svc.Subscribe(ctx, anna.ID, " Android ", "device-token")
	require.NoError(t, err)
	assert.Equal(t, "android", sub.Platform)

	// The same device signing into another account moves the token.
	_, err = svc.Subscribe(ctx, ben.ID, "android", "device-token")
	require.NoError(t, err)
	tokens, err := repo.Tokens(ctx, anna.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	tokens, err = repo.Tokens(ctx, ben.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"device-token"}, tokens)

	assertCode(t, svc.Unsubscribe(ctx, ben.ID, ""), models.CodeValidation)
	require.NoError(t, svc.Unsubscribe(ctx, ben.ID, "device-token"))
	tokens, err = repo.Tokens(ctx, ben.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
