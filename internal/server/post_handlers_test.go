package server

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"hongdating/internal/models"
	"hongdating/internal/service"
	"hongdating/internal/storage"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) upload(t *testing.T, path, token, field, filename string, content []byte) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestPostLifecycle(t *testing.T) {
	env := newTestServer(t)
	author := testutil.CreateUser(t, env.db, "sora")
	reader := testutil.CreateUser(t, env.db, "minho")
	authorTok, readerTok := env.token(t, author), env.token(t, reader)

	status, body := env.upload(t, "/api/posts/images", authorTok, "image", "pic.png", testutil.PNG(8, 8))
	require.Equal(t, http.StatusCreated, status, string(body))
	img := decode[storage.Object](t, body)
	assert.True(t, storage.OwnedBy(img.Key, storage.PrefixPosts, author.ID))

	status, body = env.do(t, http.MethodPost, "/api/posts", authorTok, map[string]interface{}{
		"content":    "library is packed today",
		"image_keys": []string{img.Key},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	post := decode[models.PostView](t, body)
	require.Len(t, post.ImageURLs, 1)

	// Someone else's key is refused.
	status, _ = env.do(t, http.MethodPost, "/api/posts", readerTok, map[string]interface{}{
		"content":    "borrowed",
		"image_keys": []string{img.Key},
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/reactions", post.ID), readerTok,
		map[string]string{"kind": "like"})
	require.Equal(t, http.StatusOK, status, string(body))
	reaction := decode[service.ReactionResult](t, body)
	assert.Equal(t, 1, reaction.LikeCount)
	assert.Equal(t, "like", reaction.MyReaction)

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), readerTok,
		map[string]string{"body": "save me a seat"})
	require.Equal(t, http.StatusCreated, status, string(body))
	comment := decode[models.CommentView](t, body)

	status, _ = env.do(t, http.MethodPut, fmt.Sprintf("/api/posts/%d/comments/%d", post.ID, comment.ID), authorTok,
		map[string]string{"body": "hijacked"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), readerTok, nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[models.PostView](t, body)
	assert.Equal(t, 1, got.CommentCount)
	assert.Equal(t, "like", got.MyReaction)

	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), readerTok, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), authorTok, nil)
	require.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), readerTok, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUploadPostImage_RejectsNonImages(t *testing.T) {
	env := newTestServer(t)
	user := testutil.CreateUser(t, env.db, "gyu")
	tok := env.token(t, user)

	status, body := env.upload(t, "/api/posts/images", tok, "image", "notes.txt", []byte("plain text, not a picture"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, errorCode(t, body))

	status, body = env.upload(t, "/api/posts/images", tok, "wrong_field", "pic.png", testutil.PNG(4, 4))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeValidation, errorCode(t, body))
}

func TestModerationFlow(t *testing.T) {
	env := newTestServer(t)
	reporter := testutil.CreateUser(t, env.db, "eunji")
	target := testutil.CreateUser(t, env.db, "spammer")
	admin := testutil.CreateUser(t, env.db, "mod", testutil.Admin())
	tok, adminTok := env.token(t, reporter), env.token(t, admin)

	status, body := env.do(t, http.MethodPost, "/api/reports", tok, map[string]interface{}{
		"target_type": models.ReportTargetUser,
		"target_id":   target.ID,
		"reason":      "spam",
		"detail":      "sends the same link to everyone",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	report := decode[models.Report](t, body)
	assert.Equal(t, models.ReportStatusOpen, report.Status)

	status, _ = env.do(t, http.MethodPost, "/api/reports", tok, map[string]interface{}{
		"target_type": models.ReportTargetUser,
		"target_id":   target.ID,
		"reason":      "spam",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.do(t, http.MethodGet, "/api/admin/reports?status=open", adminTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Report](t, body), 1)

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/reports/%d/resolve", report.ID), adminTok,
		map[string]string{"status": models.ReportStatusResolved, "note": "warned"})
	require.Equal(t, http.StatusOK, status, string(body))
	resolved := decode[models.Report](t, body)
	assert.Equal(t, models.ReportStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, admin.ID, *resolved.ResolvedBy)

	status, body = env.do(t, http.MethodPost, "/api/complaints", tok, map[string]string{
		"category": "bug",
		"body":     "the feed does not load on my phone",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	complaint := decode[models.Complaint](t, body)

	status, body = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/complaints/%d/answer", complaint.ID), adminTok,
		map[string]string{"answer": "fixed in the next release"})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = env.do(t, http.MethodGet, "/api/complaints/me", tok, nil)
	require.Equal(t, http.StatusOK, status)
	mine := decode[[]models.Complaint](t, body)
	require.Len(t, mine, 1)
	assert.Equal(t, models.ComplaintStatusAnswered, mine[0].Status)
	assert.Equal(t, "fixed in the next release", mine[0].Answer)
}
