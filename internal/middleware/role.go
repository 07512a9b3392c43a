package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ramsoftware/website-backend/pkg/response"
)

// RequireRole allows only callers whose token role is one of roles, compared
// case-insensitively. It must run after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = true
	}
	return func(c *gin.Context) {
		role, ok := CallerRole(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if !allowed[strings.ToLower(role)] {
			response.Forbidden(c, "insufficient permissions for role "+role)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CallerRole returns the role JWT stored for the request.
func CallerRole(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserRole)
	if !ok {
		return "", false
	}
	role, _ := v.(string)
	return role, role != ""
}
