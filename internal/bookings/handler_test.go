package bookings

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func testRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, nil)
	r := gin.New()
	api := r.Group("/api")
	api.POST("/bookings", h.Create)
	api.GET("/bookings", h.List)
	api.GET("/bookings/:id", h.Get)
	api.PUT("/bookings/:id", h.UpdateStatus)
	api.DELETE("/bookings/:id", h.Delete)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (int, envelope) {
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
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w.Code, env
}

func TestHandlerLifecycle(t *testing.T) {
	svc, _, _, _ := newTestService()
	r := testRouter(svc)

	code, env := do(t, r, http.MethodPost, "/api/bookings", validPayload())
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("create = %d %+v", code, env)
	}
	var created Booking
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatal(err)
	}
	path := "/api/bookings/" + created.ID.String()

	code, env = do(t, r, http.MethodGet, "/api/bookings?status=pending", nil)
	var list []Booking
	_ = json.Unmarshal(env.Data, &list)
	if code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list = %d %s", code, env.Data)
	}

	code, env = do(t, r, http.MethodPut, path, map[string]string{"status": "Completed"})
	var updated Booking
	_ = json.Unmarshal(env.Data, &updated)
	if code != http.StatusOK || updated.Status != StatusCompleted {
		t.Fatalf("update = %d %s", code, env.Data)
	}

	if code, _ := do(t, r, http.MethodDelete, path, nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, path, nil); code != http.StatusNotFound {
		t.Errorf("get deleted = %d", code)
	}
}

func TestHandlerErrors(t *testing.T) {
	svc, _, _, _ := newTestService()
	r := testRouter(svc)

	bad := validPayload()
	bad.ServiceTypes = nil
	if code, env := do(t, r, http.MethodPost, "/api/bookings", bad); code != http.StatusBadRequest || env.Success {
		t.Errorf("invalid create = %d %+v", code, env)
	}
	if code, _ := do(t, r, http.MethodPut, "/api/bookings/not-a-uuid", map[string]string{"status": "confirmed"}); code != http.StatusBadRequest {
		t.Errorf("bad id = %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/bookings?status=archived", nil); code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d", code)
	}
	if code, _ := do(t, r, http.MethodPut, "/api/bookings/00000000-0000-0000-0000-000000000001", map[string]string{}); code != http.StatusBadRequest {
		t.Errorf("missing status = %d", code)
	}
}
