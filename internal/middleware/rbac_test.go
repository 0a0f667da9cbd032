package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-console-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/users/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRBACAllowsListedRole(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleAdmin}, string(models.RoleAdmin))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u-9", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRBACDeniesOtherRole(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleTeacher}, string(models.RoleAdmin))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u-9", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleTeacher}
	router := rbacRouter(claims, string(models.RoleAdmin), "SELF")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u-1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u-2", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACMissingClaimsUnauthorized(t *testing.T) {
	router := rbacRouter(nil, string(models.RoleAdmin))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/u-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
