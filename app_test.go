package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dramafeed/internal/config"
	"dramafeed/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testSecret = "ops-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type fakeTrimmer struct{}

func (fakeTrimmer) Trim(_ context.Context, _, out string, maxSeconds int) (float64, error) {
	return float64(maxSeconds) - 0.04, os.WriteFile(out, []byte("mp4"), 0o644)
}

type fakeFrames struct{}

func (fakeFrames) Extract(_ context.Context, _, out string, _ time.Duration) error {
	return os.WriteFile(out, []byte("jpg"), 0o644)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Environment:    gin.TestMode,
		Port:           "0",
		DatabaseDriver: config.DriverSQLite,
		SQLitePath:     filepath.Join(dir, "catalog.db"),
		StorageBackend: config.StorageLocal,
		MediaDir:       filepath.Join(dir, "artifacts"),
		ScratchDir:     t.TempDir(),
		AdminSecret:    testSecret,
		TitlePolicy:    config.TitlePolicyReject,
		SessionIdleTTL: time.Minute,
		Media: config.MediaConfig{
			Timeout:           time.Minute,
			ThumbnailOffset:   time.Second,
			MaxUploadBytes:    1 << 20,
			IngestConcurrency: 1,
		},
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

func newTestServer(t *testing.T) *app {
	t.Helper()
	a, err := newAppWithPipeline(context.Background(), testConfig(t), pipeline{
		trimmer: fakeTrimmer{},
		frames:  fakeFrames{},
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func serve(a *app, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func ingestRequest(t *testing.T, title string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "clip.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte("raw"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("genre", "Comedy"))
	require.NoError(t, mw.WriteField("description", "A twist."))
	require.NoError(t, mw.WriteField("duration", "90"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/episodes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.AdminSecretHeader, testSecret)
	return req
}

func TestHealth(t *testing.T) {
	a := newTestServer(t)

	w := serve(a, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["database"])
	assert.Equal(t, "local", body["storage"])
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAdminRoutesRequireCredentials(t *testing.T) {
	a := newTestServer(t)

	w := serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/admin/verify", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/verify", nil)
	req.Header.Set(middleware.AdminSecretHeader, testSecret)
	assert.Equal(t, http.StatusOK, serve(a, req).Code)
}

func TestIngestThenBrowseAndPlay(t *testing.T) {
	a := newTestServer(t)

	w := serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/playback", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"empty":true`)

	w = serve(a, ingestRequest(t, "Pilot"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/browse", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pilot")

	w = serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/episodes/1/media", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mp4", w.Body.String())
	assert.Empty(t, w.Header().Get("Content-Encoding"))

	w = serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "dramafeed_ingest_total"))
}

func TestNewAppRejectsBadUIConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.UIConfigPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := newAppWithPipeline(context.Background(), cfg, pipeline{trimmer: fakeTrimmer{}, frames: fakeFrames{}})
	assert.Error(t, err)
}
