package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderClientID identifies the browser or device that owns drafts and preferences.
	HeaderClientID = "X-Client-ID"
	// ContextClientID is the key for the client id in gin context.
	ContextClientID = "client_id"

	maxClientIDLength = 128
)

// ClientID reads X-Client-ID, issuing a new id (echoed in the response
// header) when the request has none or an unusable one.
func ClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderClientID)
		if id == "" || len(id) > maxClientIDLength {
			id = uuid.New().String()
		}
		c.Header(HeaderClientID, id)
		c.Set(ContextClientID, id)
		c.Next()
	}
}
