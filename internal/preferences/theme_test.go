package preferences

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ramsoftware/website-backend/internal/middleware"
	"github.com/ramsoftware/website-backend/pkg/kvstore"
)

func TestThemesDefaultAndToggle(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	themes := NewThemes(store, nil)

	if got := themes.Get(ctx); got != ThemeLight {
		t.Fatalf("default = %s", got)
	}
	if got, err := themes.Toggle(ctx); err != nil || got != ThemeDark {
		t.Fatalf("toggle = %s, %v", got, err)
	}
	if v, _ := store.Get(ctx, KeyTheme); v != "dark" {
		t.Errorf("stored = %q", v)
	}
	if got, _ := themes.Toggle(ctx); got != ThemeLight {
		t.Errorf("second toggle = %s", got)
	}
	if err := themes.Set(ctx, "sepia"); err != ErrInvalidTheme {
		t.Errorf("set sepia = %v", err)
	}

	_ = store.Set(ctx, KeyTheme, "neon")
	if got := themes.Get(ctx); got != ThemeLight {
		t.Errorf("unknown stored value = %s", got)
	}
}

func TestHandlerScopesByClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := kvstore.NewMemory()
	r := gin.New()
	r.Use(middleware.ClientID())
	NewHandler(store, nil).Register(r)

	call := func(method, path, client, body string) (int, Theme) {
		t.Helper()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderClientID, client)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var env struct {
			Data ThemeResponse `json:"data"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &env)
		return w.Code, env.Data.Theme
	}

	if code, theme := call(http.MethodPost, "/preferences/theme/toggle", "a", ""); code != http.StatusOK || theme != ThemeDark {
		t.Fatalf("toggle = %d %s", code, theme)
	}
	if _, theme := call(http.MethodGet, "/preferences/theme", "a", ""); theme != ThemeDark {
		t.Errorf("a = %s", theme)
	}
	if _, theme := call(http.MethodGet, "/preferences/theme", "b", ""); theme != ThemeLight {
		t.Errorf("b = %s", theme)
	}
	if v, _ := store.Get(context.Background(), "a:theme"); v != "dark" {
		t.Errorf("stored key a:theme = %q", v)
	}
	if code, _ := call(http.MethodPut, "/preferences/theme", "b", `{"theme":"blue"}`); code != http.StatusBadRequest {
		t.Errorf("invalid theme = %d", code)
	}
	if code, theme := call(http.MethodPut, "/preferences/theme", "b", `{"theme":"dark"}`); code != http.StatusOK || theme != ThemeDark {
		t.Errorf("set = %d %s", code, theme)
	}
}
