package repository

import (
	"context"
	"testing"

	"hongdating/internal/models"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	viewer := testutil.CreateUser(t, db, "viewer")
	alice := testutil.CreateUser(t, db, "alice", testutil.WithGender(models.GenderFemale), testutil.WithInterests("music", "hiking"))
	bob := testutil.CreateUser(t, db, "bob", testutil.WithGender(models.GenderMale), testutil.WithInterests("music"))
	testutil.CreateUser(t, db, "ghost", testutil.Incomplete())

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Nickname)
		assert.Equal(t, []string{"music", "hiking"}, []string(got.Interests))

		_, err = repo.GetByID(ctx, 9999)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	})

	t.Run("LookupsReturnNilWhenMissing", func(t *testing.T) {
		u, err := repo.GetByDeviceID(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, u)

		u, err = repo.GetByNicknameKey(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, alice.ID, u.ID)
	})

	t.Run("UpdateDuplicateNickname", func(t *testing.T) {
		u, err := repo.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		key := "alice"
		u.NicknameKey = &key
		err = repo.Update(ctx, u)
		assert.True(t, models.IsCode(err, models.CodeConflict))
	})

	t.Run("ListFeed", func(t *testing.T) {
		users, err := repo.ListFeed(ctx, FeedFilter{ViewerID: viewer.ID})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, bob.ID, users[0].ID)
		assert.Equal(t, alice.ID, users[1].ID)

		users, err = repo.ListFeed(ctx, FeedFilter{ViewerID: viewer.ID, Gender: models.GenderFemale})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)

		users, err = repo.ListFeed(ctx, FeedFilter{ViewerID: viewer.ID, Interest: "hiking"})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)

		users, err = repo.ListFeed(ctx, FeedFilter{ViewerID: viewer.ID, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)
	})

	t.Run("BlocksHideBothWays", func(t *testing.T) {
		require.NoError(t, repo.Block(ctx, bob.ID, viewer.ID))
		require.NoError(t, repo.Block(ctx, bob.ID, viewer.ID))

		blocked, err := repo.IsBlocked(ctx, viewer.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, blocked)

		users, err := repo.ListFeed(ctx, FeedFilter{ViewerID: viewer.ID})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)

		require.NoError(t, repo.Unblock(ctx, bob.ID, viewer.ID))
		blocked, err = repo.IsBlocked(ctx, viewer.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, blocked)
	})

	t.Run("ToggleReaction", func(t *testing.T) {
		added, err := repo.ToggleReaction(ctx, alice.ID, viewer.ID, "🔥")
		require.NoError(t, err)
		assert.True(t, added)

		reactions, err := repo.ListReactions(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, reactions, 1)
		assert.Equal(t, viewer.ID, reactions[0].ReactorID)

		added, err = repo.ToggleReaction(ctx, alice.ID, viewer.ID, "🔥")
		require.NoError(t, err)
		assert.False(t, added)

		reactions, err = repo.ListReactions(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, reactions)
	})

	t.Run("Admins", func(t *testing.T) {
		require.NoError(t, repo.SetAdmin(ctx, alice.ID, true))
		admins, err := repo.ListAdmins(ctx)
		require.NoError(t, err)
		require.Len(t, admins, 1)
		assert.Equal(t, alice.ID, admins[0].ID)

		err = repo.SetAdmin(ctx, 9999, true)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	})
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	users := NewUserRepository(db)
	requests := NewRequestRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	leaver := testutil.CreateUser(t, db, "leaver")
	partner := testutil.CreateUser(t, db, "partner")
	other := testutil.CreateUser(t, db, "other")

	// leaver <-> partner have a room; leaver has a pending request to other.
	req := &models.MessageRequest{SenderID: partner.ID, RecipientID: leaver.ID, Message: "hi"}
	require.NoError(t, requests.CreateWithQuota(ctx, req, "2026-01-01", 3))
	_, err := requests.Accept(ctx, req.ID, leaver.ID)
	require.NoError(t, err)
	require.NoError(t, requests.CreateWithQuota(ctx, &models.MessageRequest{SenderID: leaver.ID, RecipientID: other.ID, Message: "yo"}, "2026-01-01", 3))

	authorID := leaver.ID
	post := &models.Post{AuthorID: &authorID, Content: "bye"}
	require.NoError(t, posts.Create(ctx, post))
	otherID := other.ID
	theirs := &models.Post{AuthorID: &otherID, Content: "stay"}
	require.NoError(t, posts.Create(ctx, theirs))
	_, _, err = posts.ToggleReaction(ctx, theirs.ID, leaver.ID, models.ReactionLike)
	require.NoError(t, err)
	_, err = users.ToggleReaction(ctx, partner.ID, leaver.ID, "❤️")
	require.NoError(t, err)

	deleted, err := users.Delete(ctx, leaver.ID)
	require.NoError(t, err)
	require.Len(t, deleted.ClosedRooms, 1)
	assert.True(t, deleted.ClosedRooms[0].HasParticipant(partner.ID))
	require.Len(t, deleted.WithdrawnRequests, 1)
	assert.Equal(t, other.ID, deleted.WithdrawnRequests[0].RecipientID)
	assert.Equal(t, []uint{partner.ID}, deleted.ReactedUserIDs)

	_, err = users.GetByID(ctx, leaver.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	var count int64
	db.Model(&models.ChatRoom{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Message{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.MessageRequest{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.UserReaction{}).Count(&count)
	assert.Zero(t, count)

	o, err := users.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Zero(t, o.PendingRequestCount)

	kept, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.AuthorID)
	assert.Equal(t, models.DeletedUserName, kept.View("").Author.Nickname)

	liked, err := posts.GetByID(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Zero(t, liked.LikeCount)

	_, err = users.Delete(ctx, leaver.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
