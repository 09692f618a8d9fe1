package server

import (
	"fmt"
	"net/http"
	"testing"

	"hongdating/internal/models"
	"hongdating/internal/service"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestToRoomFlow(t *testing.T) {
	env := newTestServer(t)
	anna := testutil.CreateUser(t, env.db, "anna")
	ben := testutil.CreateUser(t, env.db, "ben")
	annaTok, benTok := env.token(t, anna), env.token(t, ben)

	status, body := env.do(t, http.MethodPost, "/api/requests", annaTok, map[string]interface{}{
		"recipient_id": ben.ID,
		"message":      "coffee after class?",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	sent := decode[models.RequestView](t, body)
	assert.Equal(t, models.RequestStatusPending, sent.Status)

	status, body = env.do(t, http.MethodPost, "/api/requests", annaTok, map[string]interface{}{
		"recipient_id": ben.ID,
		"message":      "again",
	})
	assert.Equal(t, http.StatusConflict, status, string(body))

	status, body = env.do(t, http.MethodGet, "/api/requests/received", benTok, nil)
	require.Equal(t, http.StatusOK, status)
	received := decode[[]models.RequestView](t, body)
	require.Len(t, received, 1)
	assert.Equal(t, sent.ID, received[0].ID)

	status, body = env.do(t, http.MethodGet, "/api/requests/quota", annaTok, nil)
	require.Equal(t, http.StatusOK, status)
	quota := decode[models.RequestQuota](t, body)
	assert.Equal(t, 3, quota.Limit)
	assert.Equal(t, 1, quota.Used)

	// Only the recipient can answer.
	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/accept", sent.ID), annaTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%d/accept", sent.ID), benTok, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	accepted := decode[service.AcceptResult](t, body)
	assert.Equal(t, models.RequestStatusAccepted, accepted.Request.Status)
	roomID := accepted.Room.ID
	require.NotZero(t, roomID)

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/rooms/%d/messages", roomID), annaTok,
		map[string]string{"content": "see you at 3"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, http.MethodGet, "/api/inbox", benTok, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/api/rooms/%d/messages", roomID), benTok, nil)
	require.Equal(t, http.StatusOK, status)
	msgs := decode[[]models.Message](t, body)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "see you at 3", msgs[len(msgs)-1].Content)

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/rooms/%d/read", roomID), benTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Positive(t, decode[map[string]int64](t, body)["read"])

	stranger := testutil.CreateUser(t, env.db, "chris")
	status, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/rooms/%d/messages", roomID), env.token(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/rooms/%d", roomID), annaTok, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/rooms/%d", roomID), benTok, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSendRequest_DailyLimit(t *testing.T) {
	env := newTestServer(t)
	sender := testutil.CreateUser(t, env.db, "yuna")
	tok := env.token(t, sender)

	for i := 0; i < 3; i++ {
		r := testutil.CreateUser(t, env.db, fmt.Sprintf("target%d", i))
		status, body := env.do(t, http.MethodPost, "/api/requests", tok,
			map[string]interface{}{"recipient_id": r.ID, "message": "hi"})
		require.Equal(t, http.StatusCreated, status, string(body))
	}

	extra := testutil.CreateUser(t, env.db, "target3")
	status, body := env.do(t, http.MethodPost, "/api/requests", tok,
		map[string]interface{}{"recipient_id": extra.ID, "message": "hi"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, models.CodeDailyLimit, errorCode(t, body))
}

func TestHandlers_RejectBadInput(t *testing.T) {
	env := newTestServer(t)
	user := testutil.CreateUser(t, env.db, "dami")
	tok := env.token(t, user)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   string
	}{
		{"non-numeric request id", http.MethodPost, "/api/requests/abc/accept", nil, "Invalid ID"},
		{"zero room id", http.MethodGet, "/api/rooms/0", nil, "Invalid ID"},
		{"bad comment id", http.MethodDelete, "/api/posts/1/comments/x", nil, "Invalid comment ID"},
		{"missing body", http.MethodPost, "/api/requests", nil, "Invalid request body"},
		{"empty message", http.MethodPost, "/api/requests",
			map[string]interface{}{"recipient_id": 999, "message": ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, tt.method, tt.path, tok, tt.body)
			assert.Equal(t, http.StatusBadRequest, status, string(body))
			resp := decode[models.ErrorResponse](t, body)
			if tt.want != "" {
				assert.Equal(t, tt.want, resp.Error)
			}
		})
	}
}
