package asset

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="board.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndServe(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(dir)

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "image/png", pngBytes(t, 40, 20)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ID, "asset_"))
	assert.Equal(t, 40, resp.Width)
	assert.Equal(t, 20, resp.Height)
	assert.False(t, resp.Scaled)
	assert.Equal(t, "board.png", resp.Name)

	_, err := os.Stat(filepath.Join(dir, resp.ID+".png"))
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.Serve().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
}

func TestUploadRejects(t *testing.T) {
	h := NewHandler(t.TempDir())

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "image/gif", []byte("GIF89a")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "image/png", []byte("not a png")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFit(t *testing.T) {
	img, scaled := fit(image.NewRGBA(image.Rect(0, 0, 100, 50)), 200)
	assert.False(t, scaled)
	assert.Equal(t, 100, img.Bounds().Dx())

	img, scaled = fit(image.NewRGBA(image.Rect(0, 0, 400, 100)), 200)
	assert.True(t, scaled)
	assert.Equal(t, image.Rect(0, 0, 200, 50), img.Bounds())

	img, _ = fit(image.NewRGBA(image.Rect(0, 0, 10, 1000)), 100)
	assert.Equal(t, image.Rect(0, 0, 1, 100), img.Bounds())
}
