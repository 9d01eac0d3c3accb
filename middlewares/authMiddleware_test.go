package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter(store models.Store, tenantSeen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(store))
	r.GET("/", func(c *gin.Context) {
		*tenantSeen, _ = utils.GetTenantIdFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	store := models.NewMemoryStore()
	require.NoError(t, store.CreateTenant(context.Background(), &models.Tenant{ID: "shop-1", Name: "Shop", Slug: "shop"}))

	onboarded, err := utils.JwtGenerate("user-1", "shop-1")
	require.NoError(t, err)
	noShop, err := utils.JwtGenerate("user-2", "")
	require.NoError(t, err)
	unknownShop, err := utils.JwtGenerate("user-3", "shop-9")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"no shop", "Bearer " + noShop, http.StatusForbidden},
		{"unknown shop", "Bearer " + unknownShop, http.StatusForbidden},
		{"onboarded", "Bearer " + onboarded, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var tenantSeen string
			r := authRouter(store, &tenantSeen)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "shop-1", tenantSeen)
			} else {
				assert.Empty(t, tenantSeen)
			}
		})
	}
}
