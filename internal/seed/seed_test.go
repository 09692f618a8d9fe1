package seed

import (
	"context"
	"testing"

	"hongdating/internal/models"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestParseFixture_Default(t *testing.T) {
	f, err := LoadFixture("")
	require.NoError(t, err)
	assert.NotEmpty(t, f.Users)
	assert.NotEmpty(t, f.Interests)
	assert.NotEmpty(t, f.Openers)
}

func TestParseFixture_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no interests", "openers: [hi]\n"},
		{"no openers", "interests: [coffee]\n"},
		{"bad nickname", "interests: [a]\nopeners: [hi]\nusers:\n  - nickname: \"x\"\n    gender: male\n"},
		{"bad gender", "interests: [a]\nopeners: [hi]\nusers:\n  - nickname: mina\n    gender: robot\n"},
		{"duplicate interests", "interests: [a]\nopeners: [hi]\nusers:\n  - nickname: mina\n    gender: female\n    interests: [Jazz, jazz]\n"},
		{"not yaml", "users: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRun_CreatesConsistentData(t *testing.T) {
	db := testutil.NewDB(t)
	fixture, err := LoadFixture("")
	require.NoError(t, err)

	opts := Options{Users: 12, Posts: 8, Rooms: 4, PendingRequests: 3, MessagesPerRoom: 5}
	sum, err := NewSeeder(db, fixture, 42).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Len(t, sum.Users, len(fixture.Users)+opts.Users)
	assert.Equal(t, opts.Rooms+opts.PendingRequests, sum.Requests)
	assert.Equal(t, opts.Rooms, sum.Rooms)
	assert.Equal(t, opts.Rooms*opts.MessagesPerRoom, sum.Messages)
	assert.Equal(t, opts.Posts, sum.Posts)

	var admins int64
	require.NoError(t, db.Model(&models.User{}).Where("is_admin = ?", true).Count(&admins).Error)
	assert.EqualValues(t, 1, admins)

	// Every seeded account resumes with the shared secret.
	var u models.User
	require.NoError(t, db.First(&u).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.DeviceSecretHash), []byte(DeviceSecret)))

	var rooms []models.ChatRoom
	require.NoError(t, db.Find(&rooms).Error)
	for _, r := range rooms {
		assert.Less(t, r.UserAID, r.UserBID)
		assert.Equal(t, 1, r.UnreadA+r.UnreadB)
		require.NotNil(t, r.LastMessageAt)

		var req models.MessageRequest
		require.NoError(t, db.First(&req, r.RequestID).Error)
		assert.Equal(t, models.RequestStatusAccepted, req.Status)
	}

	var pending []models.MessageRequest
	require.NoError(t, db.Where("status = ?", models.RequestStatusPending).Find(&pending).Error)
	require.Len(t, pending, opts.PendingRequests)
	var total int64
	require.NoError(t, db.Model(&models.User{}).Select("COALESCE(SUM(pending_request_count), 0)").Scan(&total).Error)
	assert.EqualValues(t, opts.PendingRequests, total)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		var likes, comments int64
		require.NoError(t, db.Model(&models.PostReaction{}).
			Where("post_id = ? AND kind = ?", p.ID, models.ReactionLike).Count(&likes).Error)
		require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&comments).Error)
		assert.EqualValues(t, likes, p.LikeCount)
		assert.EqualValues(t, comments, p.CommentCount)
	}
}

func TestRun_RerunSkipsTakenNicknames(t *testing.T) {
	db := testutil.NewDB(t)
	fixture, err := LoadFixture("")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = NewSeeder(db, fixture, 1).Run(ctx, Options{Users: 3})
	require.NoError(t, err)
	second, err := NewSeeder(db, fixture, 2).Run(ctx, Options{Users: 3})
	require.NoError(t, err)
	assert.Len(t, second.Users, 3)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, len(fixture.Users)+6, count)
}

func TestClearAll(t *testing.T) {
	db := testutil.NewDB(t)
	fixture, err := LoadFixture("")
	require.NoError(t, err)
	s := NewSeeder(db, fixture, 7)

	_, err = s.Run(context.Background(), DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.ClearAll(context.Background()))

	for _, m := range []interface{}{&models.User{}, &models.Message{}, &models.Post{}, &models.MessageRequest{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}
