package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

// RequestID adds a unique request ID to each request and exposes the caller
// details to services through the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(httputil.HeaderXRequestID)
		if rid == "" {
			rid = uuid.New().String()
		}

		c.Set(httputil.ContextRequestID, rid)
		c.Header(httputil.HeaderXRequestID, rid)
		c.Request = c.Request.WithContext(httputil.WithClientInfo(c.Request.Context(), httputil.ClientInfo{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: rid,
		}))
		c.Next()
	}
}
