package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/internal/calendar"
	"github.com/ramsoftware/website-backend/internal/middleware"
	"github.com/ramsoftware/website-backend/pkg/response"
)

// Uploader stores attachment content and returns its object key.
// *storage.S3 satisfies it.
type Uploader interface {
	UploadAttachment(ctx context.Context, scope, filename, contentType string, body io.Reader, size int64) (string, error)
	DeleteAttachment(ctx context.Context, key string) error
}

// FieldsRequest is the body for PUT /booking/fields. Values are strings, or
// arrays of strings for checkbox groups.
type FieldsRequest struct {
	Fields map[string]json.RawMessage `json:"fields" binding:"required"`
}

// ToggleRequest is the body for POST /booking/fields/toggle.
type ToggleRequest struct {
	Name    string `json:"name" binding:"required"`
	Value   string `json:"value" binding:"required"`
	Checked bool   `json:"checked"`
}

// DateRequest is the body for POST /booking/calendar/select.
type DateRequest struct {
	Date string `json:"date" binding:"required"`
}

// TimeRequest is the body for POST /booking/calendar/time.
type TimeRequest struct {
	Time string `json:"time" binding:"required"`
}

// Handler serves the booking form over HTTP. Requests are scoped by the
// client id set by middleware.ClientID.
type Handler struct {
	sessions *Sessions
	uploader Uploader
	logger   *zap.Logger
}

// NewHandler creates a booking handler. uploader may be nil, in which case
// attachments are recorded without storing their content.
func NewHandler(sessions *Sessions, uploader Uploader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, uploader: uploader, logger: logger}
}

// Register mounts the booking routes on r.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/booking")
	g.GET("", h.GetState)
	g.DELETE("", h.CloseSession)
	g.PUT("/fields", h.SetFields)
	g.POST("/fields/toggle", h.ToggleField)
	g.POST("/advance", h.Advance)
	g.POST("/retreat", h.Retreat)
	g.POST("/step/:step", h.GoTo)
	g.GET("/calendar", h.GetCalendar)
	g.POST("/calendar/next", h.NextMonth)
	g.POST("/calendar/prev", h.PrevMonth)
	g.POST("/calendar/select", h.SelectDate)
	g.POST("/calendar/time", h.SelectTime)
	g.POST("/attachments", h.UploadAttachments)
	g.DELETE("/attachments/:index", h.RemoveAttachment)
	g.POST("/submit", h.Submit)
}

func (h *Handler) wizard(c *gin.Context) (*Wizard, string) {
	id := c.GetString(middleware.ContextClientID)
	return h.sessions.Get(c.Request.Context(), id), id
}

// GetState handles GET /booking.
func (h *Handler) GetState(c *gin.Context) {
	w, _ := h.wizard(c)
	response.OK(c, w.State())
}

// CloseSession handles DELETE /booking: final save and autosave teardown.
func (h *Handler) CloseSession(c *gin.Context) {
	id := c.GetString(middleware.ContextClientID)
	if err := h.sessions.Close(c.Request.Context(), id); err != nil {
		h.logger.Warn("close booking session", zap.String("client_id", id), zap.Error(err))
		response.Internal(c, "failed to save draft")
		return
	}
	response.NoContent(c)
}

// SetFields handles PUT /booking/fields. The fields are written together or
// not at all; each written field is then validated on its own and failures
// are returned as inline markers.
func (h *Handler) SetFields(c *gin.Context) {
	var req FieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	values := make(map[string]FieldValue, len(req.Fields))
	for name, raw := range req.Fields {
		v, err := decodeField(name, raw)
		if err != nil {
			h.writeError(c, err)
			return
		}
		values[name] = v
	}
	w, _ := h.wizard(c)
	if err := w.SetMany(values); err != nil {
		h.writeError(c, err)
		return
	}

	invalid := make([]*FieldError, 0)
	for _, name := range sortedNames(values) {
		var fe *FieldError
		if err := w.ValidateField(name); errors.As(err, &fe) {
			invalid = append(invalid, fe)
		}
	}
	response.OK(c, gin.H{"state": w.State(), "invalid": invalid})
}

func decodeField(name string, raw json.RawMessage) (FieldValue, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return FieldValue{List: list, IsList: true}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return FieldValue{}, fmt.Errorf("%w: %s must be a string or list of strings", ErrWrongFieldKind, name)
	}
	return FieldValue{Text: s}, nil
}

// ToggleField handles POST /booking/fields/toggle.
func (h *Handler) ToggleField(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	w, _ := h.wizard(c)
	if err := w.Toggle(req.Name, req.Value, req.Checked); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"name": req.Name, "values": w.List(req.Name)})
}

// Advance handles POST /booking/advance.
func (h *Handler) Advance(c *gin.Context) {
	w, _ := h.wizard(c)
	if _, err := w.Advance(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, w.State())
}

// Retreat handles POST /booking/retreat.
func (h *Handler) Retreat(c *gin.Context) {
	w, _ := h.wizard(c)
	w.Retreat(c.Request.Context())
	response.OK(c, w.State())
}

// GoTo handles POST /booking/step/:step.
func (h *Handler) GoTo(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		response.BadRequest(c, "invalid step")
		return
	}
	w, _ := h.wizard(c)
	if _, err := w.GoTo(c.Request.Context(), Step(n)); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, w.State())
}

// GetCalendar handles GET /booking/calendar.
func (h *Handler) GetCalendar(c *gin.Context) {
	w, _ := h.wizard(c)
	response.OK(c, w.Calendar())
}

// NextMonth handles POST /booking/calendar/next.
func (h *Handler) NextMonth(c *gin.Context) {
	w, _ := h.wizard(c)
	response.OK(c, w.NextMonth())
}

// PrevMonth handles POST /booking/calendar/prev.
func (h *Handler) PrevMonth(c *gin.Context) {
	w, _ := h.wizard(c)
	response.OK(c, w.PrevMonth())
}

// SelectDate handles POST /booking/calendar/select.
func (h *Handler) SelectDate(c *gin.Context) {
	var req DateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	w, _ := h.wizard(c)
	slots, err := w.SelectDate(req.Date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"selected_date": w.Get(FieldSelectedDate), "time_slots": slots})
}

// SelectTime handles POST /booking/calendar/time.
func (h *Handler) SelectTime(c *gin.Context) {
	var req TimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	w, _ := h.wizard(c)
	value, err := w.SelectTime(req.Time)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"selected_date": value})
}

// UploadAttachments handles POST /booking/attachments (multipart field "files").
// Accepted files are kept; each rejected file gets its own message.
func (h *Handler) UploadAttachments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		response.BadRequest(c, "missing files (form field: files)")
		return
	}
	w, clientID := h.wizard(c)

	rejected := make([]string, 0)
	for _, fh := range form.File["files"] {
		a := Attachment{Name: fh.Filename, Size: fh.Size, Type: fh.Header.Get("Content-Type")}
		if err := CheckAttachment(a); err != nil {
			rejected = append(rejected, err.Error())
			continue
		}
		if h.uploader != nil {
			key, err := h.store(c.Request.Context(), clientID, a, fh)
			if err != nil {
				h.logger.Error("attachment upload failed", zap.String("file", a.Name), zap.Error(err))
				rejected = append(rejected, a.Name+" could not be uploaded.")
				continue
			}
			a.Key = key
		}
		if _, errs := w.Attach(a); len(errs) > 0 {
			for _, e := range errs {
				rejected = append(rejected, e.Error())
			}
		}
	}
	response.OK(c, gin.H{"attachments": w.Attachments(), "rejected": rejected})
}

func (h *Handler) store(ctx context.Context, clientID string, a Attachment, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return h.uploader.UploadAttachment(ctx, clientID, a.Name, a.Type, f, a.Size)
}

// RemoveAttachment handles DELETE /booking/attachments/:index.
func (h *Handler) RemoveAttachment(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.BadRequest(c, "invalid index")
		return
	}
	w, _ := h.wizard(c)
	removed, err := w.RemoveAttachment(i)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if removed.Key != "" && h.uploader != nil {
		// The form no longer references the object; a failed delete only leaks it.
		if err := h.uploader.DeleteAttachment(c.Request.Context(), removed.Key); err != nil {
			h.logger.Warn("delete removed attachment", zap.String("key", removed.Key), zap.Error(err))
		}
	}
	response.OK(c, gin.H{"attachments": w.Attachments()})
}

// Submit handles POST /booking/submit. A populated honeypot is answered with
// 200 and submitted=false; nothing is sent.
func (h *Handler) Submit(c *gin.Context) {
	w, _ := h.wizard(c)
	p, err := w.Submit(c.Request.Context())
	if errors.Is(err, ErrHoneypot) {
		response.OK(c, gin.H{"submitted": false})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"submitted": true, "message": MsgSubmitted, "booking": p, "state": w.State()})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *ValidationError
	var aerr *AttachmentError
	switch {
	case errors.As(err, &verr):
		response.Invalid(c, Message(err), gin.H{"messages": verr.Messages(), "fields": verr.Fields})
	case errors.As(err, &aerr):
		response.BadRequest(c, aerr.Error())
	case errors.Is(err, ErrNoDate):
		response.BadRequest(c, MsgNoDate)
	case errors.Is(err, ErrSubmitFailed):
		response.BadGateway(c, MsgSubmitFailed)
	case errors.Is(err, ErrLastStep), errors.Is(err, ErrNotOnLastStep), errors.Is(err, ErrClosed):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrAttachmentMissing):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrReadOnlyField), errors.Is(err, ErrWrongFieldKind),
		errors.Is(err, ErrInvalidStep),
		errors.Is(err, calendar.ErrOtherMonth), errors.Is(err, calendar.ErrUnavailable),
		errors.Is(err, calendar.ErrNoDateSelected), errors.Is(err, calendar.ErrUnknownTimeSlot):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("booking request failed", zap.Error(err))
		response.BadRequest(c, err.Error())
	}
}
