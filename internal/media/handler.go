// Package media is the server side of the media resource: site images and
// videos uploaded from the back office to public object storage.
package media

import (
	"context"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/internal/middleware"
	"github.com/ramsoftware/website-backend/internal/realtime"
	"github.com/ramsoftware/website-backend/pkg/response"
	"github.com/ramsoftware/website-backend/pkg/storage"
)

// Storage is the object store used for media. *storage.S3 satisfies it.
type Storage interface {
	UploadMedia(ctx context.Context, filename, contentType string, body io.Reader, size int64) (key, url string, err error)
	MediaUploadURL(ctx context.Context, filename, contentType string) (key, url string, err error)
	DeleteMedia(ctx context.Context, key string) error
}

// Publisher pushes events to back-office clients.
type Publisher interface {
	Publish(room, event string, payload interface{})
}

// UploadURLRequest is the body for POST /api/media/upload-url.
type UploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// Item describes a stored media object.
type Item struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size,omitempty"`
	UploadedBy  string `json:"uploaded_by,omitempty"`
}

// UploadURLResponse is returned for direct browser uploads.
type UploadURLResponse struct {
	Key         string `json:"key"`
	UploadURL   string `json:"upload_url"`
	ContentType string `json:"content_type"`
	ExpiresIn   int    `json:"expires_in_seconds"`
}

// Handler handles media HTTP endpoints.
type Handler struct {
	storage Storage
	events  Publisher
	expires int
	logger  *zap.Logger
}

// NewHandler creates a media handler. A nil storage answers 503. events may
// be nil. expiresIn is the presigned URL lifetime reported to clients.
func NewHandler(store Storage, events Publisher, expiresIn int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{storage: store, events: events, expires: expiresIn, logger: logger}
}

// Upload handles POST /api/media (multipart form, field "file").
func (h *Handler) Upload(c *gin.Context) {
	if h.storage == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing or invalid file: "+err.Error())
		return
	}
	if fh.Size > storage.MaxMediaFileSize {
		response.BadRequest(c, "file too large; max 25MB")
		return
	}
	contentType, ok := storage.MediaContentType(fh.Filename)
	if !ok {
		response.BadRequest(c, "unsupported file type: "+fh.Filename)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "failed to read file")
		return
	}
	defer f.Close()

	key, url, err := h.storage.UploadMedia(c.Request.Context(), fh.Filename, contentType, f, fh.Size)
	if err != nil {
		h.logger.Error("media upload failed", zap.String("filename", fh.Filename), zap.Error(err))
		response.BadGateway(c, "failed to upload file")
		return
	}

	item := Item{
		Key:         key,
		URL:         url,
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		UploadedBy:  c.GetString(middleware.ContextUserEmail),
	}
	h.logger.Info("media uploaded", zap.String("key", key), zap.Int64("size", fh.Size))
	if h.events != nil {
		h.events.Publish(realtime.RoomAdmin, realtime.EventMediaUploaded, item)
	}
	response.Created(c, item)
}

// UploadURL handles POST /api/media/upload-url and returns a presigned PUT URL.
func (h *Handler) UploadURL(c *gin.Context) {
	if h.storage == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	contentType, ok := storage.MediaContentType(req.Filename)
	if !ok {
		response.BadRequest(c, "unsupported file type: "+req.Filename)
		return
	}
	key, url, err := h.storage.MediaUploadURL(c.Request.Context(), req.Filename, contentType)
	if err != nil {
		h.logger.Error("presign media upload failed", zap.Error(err))
		response.BadGateway(c, "failed to generate upload url")
		return
	}
	response.OK(c, UploadURLResponse{Key: key, UploadURL: url, ContentType: contentType, ExpiresIn: h.expires})
}

// Delete handles DELETE /api/media/*key.
func (h *Handler) Delete(c *gin.Context) {
	if h.storage == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !strings.HasPrefix(key, storage.FolderMedia+"/") || strings.Contains(key, "..") {
		response.BadRequest(c, "invalid media key")
		return
	}
	if err := h.storage.DeleteMedia(c.Request.Context(), key); err != nil {
		h.logger.Error("delete media failed", zap.String("key", key), zap.Error(err))
		response.BadGateway(c, "failed to delete file")
		return
	}
	response.OK(c, gin.H{"deleted": key})
}
