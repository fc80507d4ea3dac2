package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/otodzorelashvili/Sea-Backend/internal/auth"
	"github.com/otodzorelashvili/Sea-Backend/internal/hub"
	"github.com/otodzorelashvili/Sea-Backend/internal/repository"
	"github.com/otodzorelashvili/Sea-Backend/internal/storage"
	"github.com/otodzorelashvili/Sea-Backend/internal/ws"
)

func newTestApp(t *testing.T, enforceAuth bool) (*fiber.App, *hub.Hub) {
	t.Helper()
	log := zap.NewNop().Sugar()
	h := hub.New()
	store := repository.NewMemoryStore()
	verifier := auth.NewHS256Verifier("test-secret")
	router := ws.NewRouter(h, store, verifier, enforceAuth, log)
	gw := ws.NewGateway(h, router, time.Second, time.Second, 65536, log)
	uploader, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	return NewServer(h, gw, verifier, uploader, enforceAuth, log), h
}

func TestHealthReportsCounts(t *testing.T) {
	req := require.New(t)
	app, h := newTestApp(t, false)

	s := hub.NewSession("")
	h.Register(s)
	h.Join("u1", s)

	resp, err := app.Test(newRequest("GET", "/v1/health", nil, ""))
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		OnlineUsers int    `json:"online_users"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Equal("healthy", body.Status)
	req.Equal(1, body.Connections)
	req.Equal(1, body.OnlineUsers)
}

func TestUploadStoresFile(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t, false)

	body, contentType := multipartFile(t, "photo.png", "image/png", []byte("fake-png-bytes"))
	r := newRequest("POST", "/v1/upload", body, contentType)
	resp, err := app.Test(r)
	req.NoError(err)
	req.Equal(http.StatusCreated, resp.StatusCode)

	var out struct {
		URL string `json:"url"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&out))
	req.Contains(out.URL, "/uploads/")
}

func TestUploadRejectsNonMedia(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t, false)

	body, contentType := multipartFile(t, "notes.txt", "text/plain", []byte("hello"))
	resp, err := app.Test(newRequest("POST", "/v1/upload", body, contentType))
	req.NoError(err)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestUploadMissingFile(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t, false)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())
	resp, err := app.Test(newRequest("POST", "/v1/upload", &buf, w.FormDataContentType()))
	req.NoError(err)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRequiresAuthWhenEnforced(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t, true)

	body, contentType := multipartFile(t, "photo.png", "image/png", []byte("fake-png-bytes"))
	resp, err := app.Test(newRequest("POST", "/v1/upload", body, contentType))
	req.NoError(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestWSRouteRequiresUpgrade(t *testing.T) {
	req := require.New(t)
	app, _ := newTestApp(t, false)

	resp, err := app.Test(newRequest("GET", "/v1/ws", nil, ""))
	req.NoError(err)
	req.Equal(http.StatusUpgradeRequired, resp.StatusCode)
}

func newRequest(method, target string, body *bytes.Buffer, contentType string) *http.Request {
	var r *http.Request
	if body == nil {
		r, _ = http.NewRequest(method, target, nil)
	} else {
		r, _ = http.NewRequest(method, target, body)
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func multipartFile(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
