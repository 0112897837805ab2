package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjenou/5000React/internal/projects"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = b
	m.types[key] = contentType
	return "https://cdn.example.com/" + key, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestHandler(store *memStore) *Handler {
	h := NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.UnixMilli(1717171717000) }
	return h
}

func post(h *Handler, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	return rec
}

func TestUploadStoresImage(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(store)

	body, ct := multipartBody(t, "facade view.png", "image/png", pngHeader)
	rec := post(h, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool              `json:"success"`
		Data    projects.ImageRef `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://cdn.example.com/1717171717000-facade_view.png", resp.Data.OriginalURL)
	assert.Equal(t, resp.Data.OriginalURL, resp.Data.ThumbnailURL)
	assert.Equal(t, "facade view.png", resp.Data.Alt)
	assert.Zero(t, resp.Data.Width)
	assert.Zero(t, resp.Data.Height)
	assert.Equal(t, pngHeader, store.objects["1717171717000-facade_view.png"])
}

func TestUploadSniffsGenericType(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(store)

	body, ct := multipartBody(t, "photo.bin", "application/octet-stream", pngHeader)
	rec := post(h, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", store.types["1717171717000-photo.bin"])
	assert.Equal(t, pngHeader, store.objects["1717171717000-photo.bin"])
}

func TestUploadRejections(t *testing.T) {
	h := newTestHandler(newMemStore())

	body, ct := multipartBody(t, "doc.pdf", "application/pdf", []byte("%PDF-1.4"))
	rec := post(h, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, "huge.jpg", "image/jpeg", bytes.Repeat([]byte{0xff}, MaxImageSize+1))
	rec = post(h, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	rec = post(h, &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h, bytes.NewBufferString("not multipart"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadStoreFailureIs500(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("bucket unavailable")
	h := newTestHandler(store)

	body, ct := multipartBody(t, "a.webp", "image/webp", []byte("RIFF0000WEBPVP8 "))
	rec := post(h, body, ct)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a.jpg", baseName(`C:\Users\me\a.jpg`))
	assert.Equal(t, "b.png", baseName("../../b.png"))
	assert.Equal(t, "upload", baseName(""))
}
