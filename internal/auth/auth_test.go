package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short"); err != ErrPasswordTooShort {
		t.Errorf("short = %v", err)
	}
	if _, err := HashPassword(strings.Repeat("x", 73)); err != ErrPasswordTooLong {
		t.Errorf("long = %v", err)
	}
	h, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword("correct horse", h) || CheckPassword("wrong horse", h) {
		t.Error("CheckPassword mismatch")
	}
}

func TestJWTRoundTripAndExpiry(t *testing.T) {
	s := NewJWTService("secret", 1)
	token, err := s.Generate("admin@ramsoftware.com", RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.Validate(token)
	if err != nil || claims.Email != "admin@ramsoftware.com" || claims.Role != RoleAdmin {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	if _, err := NewJWTService("other", 1).Validate(token); err != ErrInvalidToken {
		t.Errorf("wrong secret = %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := s.Generate("admin@ramsoftware.com", RoleAdmin)
	if _, err := s.Validate(old); err != ErrInvalidToken {
		t.Errorf("expired = %v", err)
	}
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := HashPassword("letmein123")
	if err != nil {
		t.Fatal(err)
	}
	jwtSvc := NewJWTService("secret", 1)
	h := NewHandler([]Account{
		{Email: "Admin@RamSoftware.com", PasswordHash: hash},
		{Email: "nobody@ramsoftware.com"},
	}, jwtSvc, nil)
	r := gin.New()
	r.POST("/auth/login", h.Login)

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := login(`{"email":"admin@ramsoftware.com","password":"letmein123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body)
	}
	var env struct {
		Data TokenResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Data.Role != RoleAdmin {
		t.Errorf("role = %q", env.Data.Role)
	}
	if _, err := jwtSvc.Validate(env.Data.Token); err != nil {
		t.Errorf("issued token invalid: %v", err)
	}

	if w := login(`{"email":"admin@ramsoftware.com","password":"nope"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", w.Code)
	}
	if w := login(`{"email":"nobody@ramsoftware.com","password":"anything"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("account without hash = %d", w.Code)
	}
	if w := login(`{"email":"not-an-email"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", w.Code)
	}
}
