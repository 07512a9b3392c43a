package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, " + HeaderClientID
)

type originPolicy struct {
	any     bool
	allowed map[string]bool
}

// allow returns the Access-Control-Allow-Origin value for origin, or "".
func (p originPolicy) allow(origin string) string {
	if p.any {
		return "*"
	}
	if origin != "" && p.allowed[origin] {
		return origin
	}
	return ""
}

func parseOrigins(s string) originPolicy {
	p := originPolicy{allowed: make(map[string]bool)}
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.any = true
		default:
			p.allowed[o] = true
		}
	}
	if len(p.allowed) == 0 {
		p.any = true
	}
	return p
}

// CORS answers preflight requests and sets CORS headers for the site pages.
// allowedOrigins is "*" or a comma-separated list; the client id header is
// both accepted and exposed.
func CORS(allowedOrigins string) gin.HandlerFunc {
	policy := parseOrigins(allowedOrigins)
	return func(c *gin.Context) {
		if allow := policy.allow(c.GetHeader("Origin")); allow != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			if allow != "*" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", HeaderClientID)
			h.Set("Access-Control-Max-Age", "86400")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
