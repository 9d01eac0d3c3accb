package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/billing_backend/utils"
)

const CorrelationHeader = "X-Correlation-Id"

// CorrelationMiddleware attaches the caller's correlation id, or a fresh one,
// to the request context and echoes it on the response.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(CorrelationHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Header(CorrelationHeader, cid)
		c.Next()
	}
}
