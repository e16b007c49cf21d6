package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	appErrors "github.com/projectklase/comunika-nexus-64-78-sub004/pkg/errors"
)

type tokenValidatorStub map[string]*models.JWTClaims

func (s tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := tokenValidatorStub{
		"teacher": {UserID: "teacher-1", Role: models.RoleTeacher},
		"student": {UserID: "student-1", Role: models.RoleStudent},
	}
	router := gin.New()
	group := router.Group("/", JWT(tokens))
	group.GET("/read", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("/write", RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestJWTAndRoles(t *testing.T) {
	router := newAuthRouter()
	cases := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"missing header", http.MethodGet, "/read", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/read", "Basic teacher", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/read", "Bearer nope", http.StatusUnauthorized},
		{"student reads", http.MethodGet, "/read", "Bearer student", http.StatusOK},
		{"student cannot write", http.MethodPost, "/write", "Bearer student", http.StatusForbidden},
		{"teacher writes", http.MethodPost, "/write", "bearer teacher", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
