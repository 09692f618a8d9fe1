package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewaySender_RetriesAndDecodes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var body gatewayRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"a", "b"}, body.Tokens)
		assert.Equal(t, "room-9", body.Notification.Data["room_id"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sent":1,"invalid_tokens":["b"]}`))
	}))
	defer srv.Close()

	sender := NewGatewaySender(srv.URL, "key-1")
	res, err := sender.Send(context.Background(), []string{"a", "b"}, Notification{
		Title: "New message",
		Data:  map[string]string{"type": TypeMessage, "room_id": "room-9"},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []string{"b"}, res.InvalidTokens)

	res, err = sender.Send(context.Background(), nil, Notification{})
	assert.NoError(t, err)
	assert.Zero(t, res.Sent)
}

func TestGatewaySender_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewGatewaySender(srv.URL, "").Send(context.Background(), []string{"a"}, Notification{})
	assert.ErrorContains(t, err, "status 400")
}

type memTokens struct {
	mu      sync.Mutex
	tokens  map[uint][]string
	deleted []string
}

func (m *memTokens) Tokens(_ context.Context, userID uint) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[userID], nil
}

func (m *memTokens) DeleteTokens(_ context.Context, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, tokens...)
	return nil
}

type recordingSender struct {
	sent chan []string
}

func (s *recordingSender) Send(_ context.Context, tokens []string, _ Notification) (Result, error) {
	s.sent <- tokens
	return Result{Sent: 1, InvalidTokens: tokens[1:]}, nil
}

func TestDispatcher(t *testing.T) {
	store := &memTokens{tokens: map[uint][]string{7: {"good", "stale"}}}
	sender := &recordingSender{sent: make(chan []string, 1)}
	d := NewDispatcher(sender, store)
	d.Start(context.Background())
	defer d.Stop()

	d.Notify(8, Notification{Title: "nobody home"})
	d.Notify(7, Notification{Title: "hi"})

	select {
	case got := <-sender.sent:
		assert.Equal(t, []string{"good", "stale"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.deleted) == 1 && store.deleted[0] == "stale"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcher_StopWithoutStart(t *testing.T) {
	d := NewDispatcher(nil, &memTokens{})
	d.Stop()
	d.Stop()
}
