package roster

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(r *Roster) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(r, nil)
	router := gin.New()
	admin := router.Group("/admin")
	admin.GET("/team", h.List)
	admin.POST("/team", h.Create)
	admin.GET("/team/:id", h.Get)
	admin.PUT("/team/:id", h.Update)
	admin.DELETE("/team/:id", h.Delete)
	admin.POST("/team/selection", h.Select)
	admin.POST("/team/selection/all", h.SelectAll)
	admin.DELETE("/team/selection", h.ClearSelection)
	admin.POST("/team/bulk", h.Bulk)
	admin.GET("/permissions", h.Permissions)
	admin.GET("/activity", h.Activity)
	router.PUT("/api/users/:id", h.UpdateRole)
	return router
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func call(t *testing.T, router *gin.Engine, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, env
}

func TestHandlerListFilters(t *testing.T) {
	router := newTestRouter(New(SeedMembers(), Options{Now: fixedNow}))
	code, env := call(t, router, http.MethodGet, "/admin/team?search=sarah&role=all&department=all&status=all", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var v View
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatal(err)
	}
	if len(v.Members) != 1 || v.Members[0].ID != 1 || v.Stats.Total != 8 || len(v.Departments) != 6 {
		t.Errorf("view = %+v", v)
	}
}

func TestHandlerBulkFlow(t *testing.T) {
	r := New(SeedMembers(), Options{Now: fixedNow})
	router := newTestRouter(r)

	call(t, router, http.MethodPost, "/admin/team/selection/all", gin.H{"department": "Design", "checked": true})
	code, env := call(t, router, http.MethodPost, "/admin/team/bulk", gin.H{"action": "delete", "department": "Design"})
	if code != http.StatusPreconditionRequired {
		t.Fatalf("unconfirmed delete: %d %s", code, env.Error)
	}
	code, env = call(t, router, http.MethodPost, "/admin/team/bulk", gin.H{"action": "delete", "department": "Design", "confirm": true})
	if code != http.StatusOK {
		t.Fatalf("delete: %d %s", code, env.Error)
	}
	var out struct {
		Result BulkResult `json:"result"`
		View   View       `json:"view"`
	}
	json.Unmarshal(env.Data, &out)
	if out.Result.Count != 2 || len(out.View.Members) != 0 || len(out.View.Selection) != 0 {
		t.Errorf("bulk = %+v", out)
	}

	code, _ = call(t, router, http.MethodPost, "/admin/team/bulk", gin.H{"action": "promote"})
	if code != http.StatusBadRequest {
		t.Errorf("bad action: %d", code)
	}
}

func TestHandlerMemberCRUD(t *testing.T) {
	router := newTestRouter(New(SeedMembers(), Options{Now: fixedNow}))

	code, env := call(t, router, http.MethodPost, "/admin/team", gin.H{"name": "Nora", "email": "nora@ramsoftware.com", "role": "Admn"})
	if code != http.StatusBadRequest {
		t.Fatalf("bad role: %d", code)
	}
	code, env = call(t, router, http.MethodPost, "/admin/team", gin.H{"name": "Nora", "email": "nora@ramsoftware.com", "role": "Admin"})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %s", code, env.Error)
	}
	var m Member
	json.Unmarshal(env.Data, &m)
	if m.ID != 9 {
		t.Errorf("id = %d", m.ID)
	}

	if code, _ := call(t, router, http.MethodPut, "/api/users/9", gin.H{"role": "Editor"}); code != http.StatusOK {
		t.Errorf("role update: %d", code)
	}
	_, env = call(t, router, http.MethodGet, "/admin/team/9", nil)
	json.Unmarshal(env.Data, &m)
	if m.Role != RoleEditor {
		t.Errorf("role = %s", m.Role)
	}

	if code, _ := call(t, router, http.MethodDelete, "/admin/team/9", nil); code != http.StatusNoContent {
		t.Errorf("delete: %d", code)
	}
	if code, _ := call(t, router, http.MethodGet, "/admin/team/9", nil); code != http.StatusNotFound {
		t.Errorf("get deleted: %d", code)
	}
	if code, _ := call(t, router, http.MethodGet, "/admin/team/abc", nil); code != http.StatusBadRequest {
		t.Errorf("bad id: %d", code)
	}

	_, env = call(t, router, http.MethodGet, "/admin/activity?limit=2", nil)
	var log []Activity
	json.Unmarshal(env.Data, &log)
	if len(log) != 2 || log[0].Message != "Removed Nora" {
		t.Errorf("activity = %+v", log)
	}
}

func TestHandlerPermissions(t *testing.T) {
	router := newTestRouter(New(nil, Options{}))
	code, env := call(t, router, http.MethodGet, "/admin/permissions", nil)
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var out struct {
		Matrix struct {
			Rows []struct {
				Role   string   `json:"role"`
				Levels []string `json:"levels"`
				Access string   `json:"access"`
			} `json:"rows"`
		} `json:"matrix"`
	}
	json.Unmarshal(env.Data, &out)
	for _, row := range out.Matrix.Rows {
		if row.Role == RoleEditor && (row.Access != "Write Access" || row.Levels[2] != "Write") {
			t.Errorf("editor row = %+v", row)
		}
	}
}
