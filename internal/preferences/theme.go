// Package preferences stores per-visitor display settings.
package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/internal/middleware"
	"github.com/ramsoftware/website-backend/pkg/kvstore"
	"github.com/ramsoftware/website-backend/pkg/response"
)

// KeyTheme is the storage key of the theme preference.
const KeyTheme = "theme"

// Theme is the colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ErrInvalidTheme is returned for values other than light and dark.
var ErrInvalidTheme = errors.New("theme must be light or dark")

// Toggled returns the other theme.
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Themes reads and writes the theme in a client-scoped store.
type Themes struct {
	store  kvstore.Store
	logger *zap.Logger
}

// NewThemes creates a theme accessor.
func NewThemes(store kvstore.Store, logger *zap.Logger) *Themes {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Themes{store: store, logger: logger}
}

// Get returns the stored theme, or light when none or an unknown value is stored.
func (t *Themes) Get(ctx context.Context) Theme {
	v, err := t.store.Get(ctx, KeyTheme)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			t.logger.Warn("read theme preference", zap.Error(err))
		}
		return ThemeLight
	}
	switch Theme(v) {
	case ThemeLight, ThemeDark:
		return Theme(v)
	}
	t.logger.Warn("discarding stored theme", zap.String("value", v))
	return ThemeLight
}

// Set stores theme.
func (t *Themes) Set(ctx context.Context, theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}
	if err := t.store.Set(ctx, KeyTheme, string(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// Toggle flips the theme and returns the new value.
func (t *Themes) Toggle(ctx context.Context) (Theme, error) {
	next := t.Get(ctx).Toggled()
	return next, t.Set(ctx, next)
}

// ThemeRequest is the body for PUT /preferences/theme.
type ThemeRequest struct {
	Theme Theme `json:"theme" binding:"required"`
}

// ThemeResponse carries the current theme.
type ThemeResponse struct {
	Theme Theme `json:"theme"`
}

// Handler serves the theme preference of the calling client.
type Handler struct {
	store  kvstore.Store
	logger *zap.Logger
}

// NewHandler creates a preferences handler. Values are scoped by the client
// id set by middleware.ClientID.
func NewHandler(store kvstore.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Register mounts the routes under /preferences.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/preferences")
	g.GET("/theme", h.GetTheme)
	g.PUT("/theme", h.SetTheme)
	g.POST("/theme/toggle", h.ToggleTheme)
}

func (h *Handler) themes(c *gin.Context) *Themes {
	return NewThemes(kvstore.NewScoped(h.store, c.GetString(middleware.ContextClientID)), h.logger)
}

// GetTheme handles GET /preferences/theme.
func (h *Handler) GetTheme(c *gin.Context) {
	response.OK(c, ThemeResponse{Theme: h.themes(c).Get(c.Request.Context())})
}

// SetTheme handles PUT /preferences/theme.
func (h *Handler) SetTheme(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.themes(c).Set(c.Request.Context(), req.Theme); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, ThemeResponse{Theme: req.Theme})
}

// ToggleTheme handles POST /preferences/theme/toggle.
func (h *Handler) ToggleTheme(c *gin.Context) {
	theme, err := h.themes(c).Toggle(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, ThemeResponse{Theme: theme})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidTheme) {
		response.BadRequest(c, err.Error())
		return
	}
	h.logger.Error("theme preference", zap.Error(err))
	response.Internal(c, "failed to save preference")
}
