package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ramsoftware/website-backend/internal/realtime"
)

type fakeStorage struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeStorage) UploadMedia(_ context.Context, filename, contentType string, body io.Reader, _ int64) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	data, _ := io.ReadAll(body)
	key := "media/2025/03/" + filename
	f.uploaded = append(f.uploaded, key+"|"+contentType+"|"+string(data))
	return key, "https://cdn.example/" + key, nil
}

func (f *fakeStorage) MediaUploadURL(_ context.Context, filename, _ string) (string, string, error) {
	key := "media/2025/03/" + filename
	return key, "https://s3.example/" + key + "?sig=1", nil
}

func (f *fakeStorage) DeleteMedia(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakePublisher struct {
	events []string
}

func (p *fakePublisher) Publish(room, event string, _ interface{}) {
	p.events = append(p.events, room+"/"+event)
}

func router(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/media", h.Upload)
	r.POST("/api/media/upload-url", h.UploadURL)
	r.DELETE("/api/media/*key", h.Delete)
	return r
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	store := &fakeStorage{}
	pub := &fakePublisher{}
	r := router(NewHandler(store, pub, 900, nil))

	body, ct := multipartBody(t, "hero.png", "png-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d %s", w.Code, w.Body)
	}
	if len(store.uploaded) != 1 || store.uploaded[0] != "media/2025/03/hero.png|image/png|png-bytes" {
		t.Errorf("uploaded = %v", store.uploaded)
	}
	if len(pub.events) != 1 || pub.events[0] != realtime.RoomAdmin+"/"+realtime.EventMediaUploaded {
		t.Errorf("events = %v", pub.events)
	}

	body, ct = multipartBody(t, "run.exe", "MZ")
	req = httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("exe upload = %d", w.Code)
	}
}

func TestUploadFailures(t *testing.T) {
	r := router(NewHandler(nil, nil, 0, nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/media", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("no storage = %d", w.Code)
	}

	r = router(NewHandler(&fakeStorage{err: errors.New("s3 down")}, nil, 0, nil))
	body, ct := multipartBody(t, "logo.svg", "<svg/>")
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Errorf("s3 failure = %d", w.Code)
	}
}

func TestUploadURLAndDelete(t *testing.T) {
	store := &fakeStorage{}
	r := router(NewHandler(store, nil, 900, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/media/upload-url", strings.NewReader(`{"filename":"intro.mp4"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("upload-url = %d %s", w.Code, w.Body)
	}
	var env struct {
		Data UploadURLResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Data.ContentType != "video/mp4" || env.Data.ExpiresIn != 900 || env.Data.Key != "media/2025/03/intro.mp4" {
		t.Errorf("response = %+v", env.Data)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/media/media/2025/03/intro.mp4", nil))
	if w.Code != http.StatusOK || len(store.deleted) != 1 || store.deleted[0] != "media/2025/03/intro.mp4" {
		t.Errorf("delete = %d %v", w.Code, store.deleted)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/media/attachments/x/secret.pdf", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("foreign key delete = %d", w.Code)
	}
}
