package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/pkg/response"
)

// RoleAdmin is the token role of back-office administrators.
const RoleAdmin = "admin"

// Account is a back-office login. PasswordHash is a bcrypt hash.
type Account struct {
	Email        string
	PasswordHash string
	Role         string
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	accounts map[string]Account
	jwt      *JWTService
	logger   *zap.Logger
}

// NewHandler creates an auth handler over a fixed set of accounts.
func NewHandler(accounts []Account, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	byEmail := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		if a.Email == "" || a.PasswordHash == "" {
			continue
		}
		if a.Role == "" {
			a.Role = RoleAdmin
		}
		byEmail[strings.ToLower(a.Email)] = a
	}
	return &Handler{accounts: byEmail, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	acct, ok := h.accounts[strings.ToLower(req.Email)]
	if !ok || !CheckPassword(req.Password, acct.PasswordHash) {
		h.logger.Info("login rejected", zap.String("email", req.Email))
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(acct.Email, acct.Role)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, Email: acct.Email, Role: acct.Role})
}
