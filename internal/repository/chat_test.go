package repository

import (
	"context"
	"fmt"
	"testing"

	"hongdating/internal/models"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openRoom accepts a fresh request from a to b and returns the room.
func openRoom(t *testing.T, db *gorm.DB, a, b *models.User, text string) *models.ChatRoom {
	t.Helper()
	reqs := NewRequestRepository(db)
	req := &models.MessageRequest{SenderID: a.ID, RecipientID: b.ID, Message: text}
	require.NoError(t, reqs.CreateWithQuota(context.Background(), req, testDay, 100))
	res, err := reqs.Accept(context.Background(), req.ID, b.ID)
	require.NoError(t, err)
	return res.Room
}

func TestChatRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	room := openRoom(t, db, alice, bob, "hi bob")
	quiet := &models.ChatRoom{UserAID: alice.ID, UserBID: carol.ID, RequestID: 999}
	require.NoError(t, db.Create(quiet).Error)

	t.Run("FindRoomBetween", func(t *testing.T) {
		got, err := repo.FindRoomBetween(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, room.ID, got.ID)

		got, err = repo.FindRoomBetween(ctx, bob.ID, carol.ID)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CreateMessageUpdatesRoom", func(t *testing.T) {
		msg, updated, err := repo.CreateMessage(ctx, room, bob.ID, "hey alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, msg.RecipientID)
		assert.Equal(t, "hey alice", updated.LastMessage)
		require.NotNil(t, updated.LastMessageSenderID)
		assert.Equal(t, bob.ID, *updated.LastMessageSenderID)
		assert.Equal(t, 1, updated.UnreadFor(alice.ID))
		assert.Equal(t, 1, updated.UnreadFor(bob.ID))

		_, _, err = repo.CreateMessage(ctx, room, carol.ID, "intruder")
		assert.True(t, models.IsCode(err, models.CodeForbidden))
	})

	t.Run("ListRoomsActiveFirst", func(t *testing.T) {
		rooms, err := repo.ListRooms(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, room.ID, rooms[0].ID)
		assert.Equal(t, quiet.ID, rooms[1].ID)

		view := rooms[0].ViewFor(alice.ID)
		assert.Equal(t, bob.ID, view.PartnerID)
		require.NotNil(t, view.Partner)
		assert.Equal(t, "bob", view.Partner.Nickname)
	})

	t.Run("MarkRead", func(t *testing.T) {
		prev, err := repo.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		flipped, updatedAt, err := repo.MarkRead(ctx, room.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), flipped)

		got, err := repo.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.Equal(updatedAt))
		assert.False(t, got.UpdatedAt.Before(prev.UpdatedAt))
		assert.Zero(t, got.UnreadFor(bob.ID))
		assert.Equal(t, 1, got.UnreadFor(alice.ID))

		flipped, _, err = repo.MarkRead(ctx, room.ID, bob.ID)
		require.NoError(t, err)
		assert.Zero(t, flipped)

		_, _, err = repo.MarkRead(ctx, room.ID, carol.ID)
		assert.True(t, models.IsCode(err, models.CodeForbidden))
	})

	t.Run("ListMessagesPaging", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, _, err := repo.CreateMessage(ctx, room, alice.ID, fmt.Sprintf("m%d", i))
			require.NoError(t, err)
		}
		latest, err := repo.ListMessages(ctx, room.ID, 3, 0)
		require.NoError(t, err)
		require.Len(t, latest, 3)
		assert.Equal(t, "m2", latest[0].Content)
		assert.Equal(t, "m4", latest[2].Content)

		older, err := repo.ListMessages(ctx, room.ID, 10, latest[0].ID)
		require.NoError(t, err)
		require.Len(t, older, 4)
		assert.Equal(t, "hi bob", older[0].Content)
		assert.Equal(t, "m1", older[3].Content)
	})

	t.Run("DeleteRoom", func(t *testing.T) {
		require.NoError(t, repo.DeleteRoom(ctx, room.ID))
		_, err := repo.GetRoom(ctx, room.ID)
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		msgs, err := repo.ListMessages(ctx, room.ID, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		assert.True(t, models.IsCode(repo.DeleteRoom(ctx, room.ID), models.CodeNotFound))
	})
}
