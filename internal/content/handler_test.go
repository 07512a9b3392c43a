package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ramsoftware/website-backend/internal/middleware"
	"github.com/ramsoftware/website-backend/internal/realtime"
)

type memStore struct {
	sections map[string]Section
}

func (m *memStore) List(context.Context) ([]Section, error) {
	list := []Section{}
	for _, s := range m.sections {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *memStore) Get(_ context.Context, name string) (*Section, error) {
	s, ok := m.sections[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memStore) Upsert(_ context.Context, name string, data json.RawMessage, by string) (*Section, error) {
	s := Section{Name: name, Data: data, UpdatedBy: by, UpdatedAt: time.Now()}
	m.sections[name] = s
	return &s, nil
}

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) Publish(room, event string, _ interface{}) {
	f.events = append(f.events, room+"/"+event)
}

func TestValidate(t *testing.T) {
	for _, name := range []string{"hero", "case-studies", "faq_2"} {
		if err := ValidateSection(name); err != nil {
			t.Errorf("ValidateSection(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"", "Hero", "../etc", "-x", strings.Repeat("a", 65)} {
		if err := ValidateSection(name); err == nil {
			t.Errorf("ValidateSection(%q) accepted", name)
		}
	}
	if err := ValidateData(json.RawMessage(` {"title":"Hi"}`)); err != nil {
		t.Error(err)
	}
	for _, raw := range []string{``, `[]`, `"x"`, `{"a":`} {
		if err := ValidateData(json.RawMessage(raw)); err == nil {
			t.Errorf("ValidateData(%q) accepted", raw)
		}
	}
}

func TestHandlerSaveAndGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memStore{sections: map[string]Section{}}
	pub := &fakePublisher{}
	h := NewHandler(store, pub, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserEmail, "admin@ramsoftware.com") })
	r.GET("/api/content", h.List)
	r.GET("/api/content/:section", h.Get)
	r.PUT("/api/content/:section", h.Save)

	req := httptest.NewRequest(http.MethodPut, "/api/content/hero", strings.NewReader(`{"title":"Build faster"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d %s", w.Code, w.Body)
	}
	if got := store.sections["hero"]; got.UpdatedBy != "admin@ramsoftware.com" || string(got.Data) != `{"title":"Build faster"}` {
		t.Errorf("stored = %+v", got)
	}
	if len(pub.events) != 1 || pub.events[0] != realtime.RoomAdmin+"/"+realtime.EventContentSaved {
		t.Errorf("events = %v", pub.events)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/content/hero", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Build faster") {
		t.Errorf("get = %d %s", w.Code, w.Body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/content/footer", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/content/hero", strings.NewReader(`[1,2]`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("array body = %d", w.Code)
	}
}
