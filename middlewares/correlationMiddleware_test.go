package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/stretchr/testify/assert"
)

func correlationRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationMiddleware())
	r.GET("/", func(c *gin.Context) {
		*seen, _ = utils.GetCorrelationIdFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestCorrelationIdIsKept(t *testing.T) {
	var seen string
	r := correlationRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(CorrelationHeader))
}

func TestCorrelationIdIsGenerated(t *testing.T) {
	var seen string
	r := correlationRouter(&seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get(CorrelationHeader))
}
