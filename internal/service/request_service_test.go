package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"hongdating/internal/models"
	"hongdating/internal/notifications"
	"hongdating/internal/push"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestService_SendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	ghost := testutil.CreateUser(t, f.db, "ghost", testutil.Incomplete())
	require.NoError(t, f.users.Block(ctx, bob.ID, alice.ID))
	carol := testutil.CreateUser(t, f.db, "carol")

	tests := []struct {
		name string
		in   SendRequestInput
		code string
	}{
		{"empty message", SendRequestInput{SenderID: alice.ID, RecipientID: carol.ID, Message: "   "}, models.CodeValidation},
		{"long message", SendRequestInput{SenderID: alice.ID, RecipientID: carol.ID, Message: strings.Repeat("a", 301)}, models.CodeValidation},
		{"self", SendRequestInput{SenderID: alice.ID, RecipientID: alice.ID, Message: "hi"}, models.CodeValidation},
		{"incomplete recipient", SendRequestInput{SenderID: alice.ID, RecipientID: ghost.ID, Message: "hi"}, models.CodeNotFound},
		{"blocked pair", SendRequestInput{SenderID: alice.ID, RecipientID: bob.ID, Message: "hi"}, models.CodeNotFound},
		{"incomplete sender", SendRequestInput{SenderID: ghost.ID, RecipientID: carol.ID, Message: "hi"}, models.CodeForbidden},
		{"missing recipient", SendRequestInput{SenderID: alice.ID, RecipientID: 999, Message: "hi"}, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.requests.Send(ctx, tt.in)
			assertCode(t, err, tt.code)
		})
	}
	assert.Empty(t, f.pub.users)
}

func TestRequestService_DailyLimitAndQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := testutil.CreateUser(t, f.db, "sender")

	for i, name := range []string{"r1", "r2", "r3"} {
		r := testutil.CreateUser(t, f.db, name)
		_, err := f.requests.Send(ctx, SendRequestInput{SenderID: sender.ID, RecipientID: r.ID, Message: "hello"})
		require.NoError(t, err, "send %d", i)
	}
	extra := testutil.CreateUser(t, f.db, "r4")
	_, err := f.requests.Send(ctx, SendRequestInput{SenderID: sender.ID, RecipientID: extra.ID, Message: "hello"})
	assertCode(t, err, models.CodeDailyLimit)
	assert.Equal(t, 429, models.StatusForError(err))

	q, err := f.requests.Quota(ctx, sender.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Limit)
	assert.Equal(t, 3, q.Used)
	assert.Equal(t, 0, q.Remaining)
	assert.True(t, q.ResetsAt.After(time.Now()))

	// A new day resets the allowance.
	f.requests.now = func() time.Time { return time.Now().UTC().Add(24 * time.Hour) }
	_, err = f.requests.Send(ctx, SendRequestInput{SenderID: sender.ID, RecipientID: extra.ID, Message: "hello"})
	require.NoError(t, err)
}

func TestRequestService_DuplicatePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "anna")
	b := testutil.CreateUser(t, f.db, "ben")

	_, err := f.requests.Send(ctx, SendRequestInput{SenderID: a.ID, RecipientID: b.ID, Message: "hi"})
	require.NoError(t, err)
	_, err = f.requests.Send(ctx, SendRequestInput{SenderID: b.ID, RecipientID: a.ID, Message: "hi back"})
	assertCode(t, err, models.CodeConflict)
}

func TestRequestService_AcceptFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "anna")
	b := testutil.CreateUser(t, f.db, "ben")

	view, err := f.requests.Send(ctx, SendRequestInput{SenderID: a.ID, RecipientID: b.ID, Message: "  coffee?  "})
	require.NoError(t, err)
	assert.Equal(t, "coffee?", view.Message)
	assert.Equal(t, models.RequestStatusPending, view.Status)

	received := f.pub.userEvents(b.ID, notifications.EventRequestReceived)
	require.Len(t, received, 1)
	assert.NotZero(t, received[0].Version)
	pushes := f.pusher.to(b.ID)
	require.Len(t, pushes, 1)
	assert.Equal(t, push.TypeRequestReceived, pushes[0].Data["type"])

	var recipient models.User
	require.NoError(t, f.db.First(&recipient, b.ID).Error)
	assert.Equal(t, 1, recipient.PendingRequestCount)

	_, err = f.requests.Accept(ctx, view.ID, a.ID)
	assertCode(t, err, models.CodeForbidden)

	res, err := f.requests.Accept(ctx, view.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, res.Request.Status)
	assert.Equal(t, a.ID, res.Room.PartnerID)
	assert.Equal(t, "coffee?", res.Room.LastMessage)
	assert.Equal(t, 1, res.Room.UnreadCount)

	for _, uid := range []uint{a.ID, b.ID} {
		evs := f.pub.userEvents(uid, notifications.EventRequestAccepted)
		require.Len(t, evs, 1, "user %d", uid)
	}
	accepted := f.pusher.to(a.ID)
	require.Len(t, accepted, 1)
	assert.Equal(t, push.TypeRequestAccepted, accepted[0].Data["type"])

	require.NoError(t, f.db.First(&recipient, b.ID).Error)
	assert.Equal(t, 0, recipient.PendingRequestCount)

	_, err = f.requests.Accept(ctx, view.ID, b.ID)
	assertCode(t, err, models.CodeConflict)
	_, err = f.requests.Reject(ctx, view.ID, b.ID)
	assertCode(t, err, models.CodeConflict)

	// The pair already has a room.
	_, err = f.requests.Send(ctx, SendRequestInput{SenderID: b.ID, RecipientID: a.ID, Message: "again"})
	assertCode(t, err, models.CodeConflict)
}

func TestRequestService_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, "anna")
	b := testutil.CreateUser(t, f.db, "ben")

	view, err := f.requests.Send(ctx, SendRequestInput{SenderID: a.ID, RecipientID: b.ID, Message: "hi"})
	require.NoError(t, err)

	rejected, err := f.requests.Reject(ctx, view.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	assert.NotNil(t, rejected.RespondedAt)
	require.Len(t, f.pub.userEvents(b.ID, notifications.EventRequestRejected), 1)
	assert.Empty(t, f.pub.userEvents(a.ID, notifications.EventRequestRejected))

	list, err := f.requests.ListReceived(ctx, b.ID, models.RequestStatusPending, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.requests.ListReceived(ctx, b.ID, "", 20, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	sent, err := f.requests.ListSent(ctx, a.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "ben", sent[0].Recipient.Nickname)

	_, err = f.requests.ListReceived(ctx, b.ID, "bogus", 20, 0)
	assertCode(t, err, models.CodeValidation)
}
