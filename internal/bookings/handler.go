package bookings

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/internal/booking"
	"github.com/ramsoftware/website-backend/pkg/response"
)

// StatusRequest is the body for PUT /api/bookings/:id.
type StatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// Handler handles booking HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a bookings handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /api/bookings (public).
func (h *Handler) Create(c *gin.Context) {
	var req booking.Payload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	b, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, b)
}

// List handles GET /api/bookings?status= (admin).
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), Status(strings.ToLower(c.Query("status"))))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /api/bookings/:id (admin).
func (h *Handler) Get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, b)
}

// Attachments handles GET /api/bookings/:id/attachments (admin).
func (h *Handler) Attachments(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	links, err := h.svc.AttachmentURLs(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, links)
}

// UpdateStatus handles PUT /api/bookings/:id (admin).
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	b, err := h.svc.UpdateStatus(c.Request.Context(), id, Status(strings.ToLower(string(req.Status))))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, b)
}

// Delete handles DELETE /api/bookings/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": id})
}

func bookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrInvalidStatus):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("booking request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "booking request failed")
	}
}
