package content

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisoryhub/internal/domain/auth"
)

func setupRouter(env *testEnv, sess *auth.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(env.svc, 1<<20)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.Use(func(c *gin.Context) {
		if sess != nil {
			c.Set(auth.ContextSessionKey, sess)
		}
		c.Next()
	})
	RegisterPublicRoutes(v1, h)
	RegisterConsultantRoutes(v1, h)
	return r
}

type multipartFile struct {
	field, name, body string
}

func multipartRequest(t *testing.T, fields map[string]string, files ...multipartFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/content", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
	Error    struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_SubmitDuplicateResolve(t *testing.T) {
	env := newTestEnv(t)
	r := setupRouter(env, consultant)
	fields := map[string]string{"title": "Plan", "content_type": "Document"}

	w := serve(r, multipartRequest(t, fields, multipartFile{"file", "plan.pdf", "v1"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	var created struct {
		State string   `json:"state"`
		Item  ItemView `json:"item"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, string(StateDone), created.State)
	assert.Equal(t, "plan.pdf", created.Item.OriginalFilename)
	assert.Equal(t, "/api/v1/content/"+created.Item.ID+"/download", created.Item.DownloadURL)

	fields["title"] = "Plan v2"
	w = serve(r, multipartRequest(t, fields, multipartFile{"file", "plan.pdf", "v2"}))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "DUPLICATE_FILE", body.Error.Code)
	assert.Equal(t, "plan.pdf", body.Error.Details["key"])
	token, _ := body.Error.Details["pending_token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/content/pending/"+token, strings.NewReader(`{"resolution":"replace"}`))
	req.Header.Set("Content-Type", "application/json")
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "v2", env.readBlob(t, "content_files", "plan.pdf"))

	snap := env.snapshot(t)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Plan v2", snap.Items[0].Title)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/content/pending/"+token, strings.NewReader(`{"resolution":"replace"}`))
	req.Header.Set("Content-Type", "application/json")
	w = serve(r, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PENDING_NOT_FOUND", decode(t, w).Error.Code)
}

func TestHandler_TooManyPendingDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.svc.pending = NewPendingStore(time.Minute, 1)
	r := setupRouter(env, consultant)
	fields := map[string]string{"title": "Plan", "content_type": "Document"}

	w := serve(r, multipartRequest(t, fields, multipartFile{"file", "plan.pdf", "v1"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = serve(r, multipartRequest(t, fields, multipartFile{"file", "plan.pdf", "v2"}))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = serve(r, multipartRequest(t, fields, multipartFile{"file", "plan.pdf", "v3"}))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_PENDING", decode(t, w).Error.Code)
	assert.Equal(t, 1, env.svc.Pending().Len())
	assert.Equal(t, "v1", env.readBlob(t, "content_files", "plan.pdf"))
}

func TestHandler_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	r := setupRouter(env, consultant)

	w := serve(r, multipartRequest(t, map[string]string{"title": "Both", "content_type": "video", "external_url": "https://v.example.com"},
		multipartFile{"file", "a.mp4", "x"}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Details, "source")

	w = serve(r, multipartRequest(t, map[string]string{"title": "Bad flag", "content_type": "video", "is_premium": "maybe"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, env.snapshot(t).Items)
}

func TestHandler_SubmitForbiddenForClient(t *testing.T) {
	env := newTestEnv(t)
	r := setupRouter(env, client)

	w := serve(r, multipartRequest(t, map[string]string{"title": "x", "content_type": "video", "external_url": "https://v.example.com"}))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_DeleteRequiresConfirm(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem(t, Item{Title: "Old"})
	r := setupRouter(env, consultant)

	w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/v1/content/"+item.ID, nil))
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Equal(t, "CONFIRMATION_REQUIRED", decode(t, w).Error.Code)

	w = serve(r, httptest.NewRequest(http.MethodDelete, "/api/v1/content/"+item.ID+"?confirm=true", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodDelete, "/api/v1/content/"+item.ID+"?confirm=true", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListAnonymous(t *testing.T) {
	env := newTestEnv(t)
	cat := env.mustCategory(t, "Finance")
	env.seedItem(t, Item{Title: "paid", IsPremium: true, ContentType: TypeVideo}, cat)
	env.seedItem(t, Item{Title: "free", ContentType: TypeDocument})
	r := setupRouter(env, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/content?type=videos&category_ids="+cat, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var items []ItemView
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &items))
	require.Len(t, items, 1)
	assert.True(t, items[0].Locked)
	assert.Empty(t, items[0].ContentURL)
	assert.Equal(t, []string{cat}, items[0].CategoryIDs)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/content?type=podcasts", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/content/"+items[0].ID+"/download", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_DownloadAttachment(t *testing.T) {
	env := newTestEnv(t)
	r := setupRouter(env, consultant)

	w := serve(r, multipartRequest(t, map[string]string{"title": "Model", "content_type": "spreadsheet"},
		multipartFile{"file", "Q3 model.xlsx", "cells"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Item ItemView `json:"item"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/content/"+created.Item.ID+"/download", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cells", w.Body.String())
	assert.Equal(t, `attachment; filename="Q3 model.xlsx"`, w.Header().Get("Content-Disposition"))

	ext := env.seedItem(t, Item{Title: "link", ContentURL: "https://v.example.com/watch"})
	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/content/"+ext.ID+"/download", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://v.example.com/watch", w.Header().Get("Location"))
}
