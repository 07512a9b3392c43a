package roster

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/pkg/response"
)

// SelectRequest is the body for POST /admin/team/selection.
type SelectRequest struct {
	ID      int  `json:"id" binding:"required"`
	Checked bool `json:"checked"`
}

// SelectAllRequest is the body for POST /admin/team/selection/all.
type SelectAllRequest struct {
	Criteria
	Checked bool `json:"checked"`
}

// BulkRequest is the body for POST /admin/team/bulk.
type BulkRequest struct {
	Criteria
	Action  string `json:"action" binding:"required,oneof=delete set-active set-inactive set-viewer"`
	Confirm bool   `json:"confirm"`
}

// RoleRequest is the body for PUT /users/:id.
type RoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// View is the team screen for one set of filter criteria.
type View struct {
	Members     []Member `json:"members"`
	Stats       Stats    `json:"stats"`
	Departments []string `json:"departments"`
	Selection   []int    `json:"selection"`
	AllSelected bool     `json:"all_selected"`
}

// Handler serves the team-management endpoints.
type Handler struct {
	roster *Roster
	logger *zap.Logger
}

// NewHandler creates a roster handler.
func NewHandler(roster *Roster, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{roster: roster, logger: logger}
}

func (h *Handler) view(c Criteria) View {
	return View{
		Members:     h.roster.Filtered(c),
		Stats:       h.roster.Stats(),
		Departments: h.roster.Departments(),
		Selection:   h.roster.Selection(),
		AllSelected: h.roster.AllSelected(c),
	}
}

func memberID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid member id")
		return 0, false
	}
	return id, true
}

// List handles GET /admin/team?search=&role=&department=&status=.
func (h *Handler) List(c *gin.Context) {
	var crit Criteria
	if err := c.ShouldBindQuery(&crit); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	response.OK(c, h.view(crit))
}

// Create handles POST /admin/team.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.roster.Create(in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, m)
}

// Get handles GET /admin/team/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	m, err := h.roster.Get(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, m)
}

// Update handles PUT /admin/team/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.roster.Update(id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, m)
}

// Delete handles DELETE /admin/team/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	if err := h.roster.Delete(id); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateRole handles PUT /users/:id, the users resource of the site API.
func (h *Handler) UpdateRole(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.roster.SetRole(id, req.Role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, m)
}

// Select handles POST /admin/team/selection.
func (h *Handler) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.roster.Toggle(req.ID, req.Checked); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"selection": h.roster.Selection()})
}

// SelectAll handles POST /admin/team/selection/all.
func (h *Handler) SelectAll(c *gin.Context) {
	var req SelectAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.roster.SelectAll(req.Criteria, req.Checked)
	response.OK(c, h.view(req.Criteria))
}

// ClearSelection handles DELETE /admin/team/selection.
func (h *Handler) ClearSelection(c *gin.Context) {
	h.roster.ClearSelection()
	response.NoContent(c)
}

// Bulk handles POST /admin/team/bulk.
func (h *Handler) Bulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.roster.Bulk(req.Action, req.Criteria, req.Confirm)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"result": res, "view": h.view(req.Criteria)})
}

// Permissions handles GET /admin/permissions.
func (h *Handler) Permissions(c *gin.Context) {
	response.OK(c, gin.H{"roles": Roles(), "matrix": PermissionMatrix()})
}

// Activity handles GET /admin/activity?limit=.
func (h *Handler) Activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	response.OK(c, h.roster.Activity(limit))
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var ierr *InputError
	switch {
	case errors.As(err, &ierr):
		response.Invalid(c, ierr.Error(), ierr)
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrConfirmationRequired):
		response.Fail(c, http.StatusPreconditionRequired, err.Error())
	case errors.Is(err, ErrNoSelection), errors.Is(err, ErrUnknownAction):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("roster request failed", zap.Error(err))
		response.Internal(c, "roster update failed")
	}
}
