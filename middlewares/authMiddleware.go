package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
)

const bearerPrefix = "Bearer "

// AuthMiddleware resolves the tenant of the request from its bearer token.
// A missing or invalid token is rejected with 401. A valid token whose user
// has no shop, or whose shop does not exist, is rejected with 403.
func AuthMiddleware(store models.Store) gin.HandlerFunc {
	logger := config.GetLogger()
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if !strings.HasPrefix(auth, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		token := strings.TrimSpace(auth[len(bearerPrefix):])

		claims, err := utils.JwtClaims(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if claims.TenantId == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": utils.ErrNotOnboarded.Message})
			return
		}
		if _, err := store.GetTenant(c.Request.Context(), claims.TenantId); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": utils.ErrNotOnboarded.Message})
				return
			}
			config.LogError(logger, "AuthMiddleware.go", "AuthMiddleware", "GetTenant", claims.TenantId, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not resolve tenant"})
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetTenantIdInContext(ctx, claims.TenantId)
		ctx = utils.SetUserIdInContext(ctx, claims.UserId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
