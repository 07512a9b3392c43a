package content

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/internal/middleware"
	"github.com/ramsoftware/website-backend/internal/realtime"
	"github.com/ramsoftware/website-backend/pkg/response"
)

const maxSectionBytes = 1 << 20

// Publisher pushes events to back-office clients.
type Publisher interface {
	Publish(room, event string, payload interface{})
}

// Handler handles content HTTP endpoints.
type Handler struct {
	store  Store
	events Publisher
	logger *zap.Logger
}

// NewHandler creates a content handler. events may be nil.
func NewHandler(store Store, events Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, events: events, logger: logger}
}

// List handles GET /api/content.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list content", zap.Error(err))
		response.Internal(c, "failed to list content")
		return
	}
	response.OK(c, list)
}

// Get handles GET /api/content/:section.
func (h *Handler) Get(c *gin.Context) {
	name := c.Param("section")
	if err := ValidateSection(name); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s, err := h.store.Get(c.Request.Context(), name)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("get content", zap.String("section", name), zap.Error(err))
		response.Internal(c, "failed to load content")
		return
	}
	response.OK(c, s)
}

// Save handles PUT /api/content/:section (admin). The body is the section's
// JSON object, stored as given.
func (h *Handler) Save(c *gin.Context) {
	name := c.Param("section")
	if err := ValidateSection(name); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSectionBytes+1))
	if err != nil {
		response.BadRequest(c, "failed to read body")
		return
	}
	if len(raw) > maxSectionBytes {
		response.BadRequest(c, "section data too large")
		return
	}
	if err := ValidateData(raw); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	s, err := h.store.Upsert(c.Request.Context(), name, json.RawMessage(raw), c.GetString(middleware.ContextUserEmail))
	if err != nil {
		h.logger.Error("save content", zap.String("section", name), zap.Error(err))
		response.Internal(c, "failed to save content")
		return
	}
	h.logger.Info("content saved", zap.String("section", name), zap.String("by", s.UpdatedBy))
	if h.events != nil {
		h.events.Publish(realtime.RoomAdmin, realtime.EventContentSaved, gin.H{"section": s.Name, "updated_by": s.UpdatedBy})
	}
	response.OK(c, s)
}
