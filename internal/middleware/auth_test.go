package middleware

import (
	"classroom_backend/internal/config"
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", AuthMiddleware(cfg))
	api.GET("/me", func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).Identity())
	})
	api.POST("/assessments", RoleMiddleware(model.Teacher), func(c *gin.Context) {
		util.Created(c, nil)
	})
	return r
}

func token(t *testing.T, cfg *config.Config, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 7}, Role: role}, cfg.JWT.Secret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"}}
	r := newRouter(cfg)

	cases := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"missing token", http.MethodGet, "/api/me", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/me", "Bearer nope", http.StatusUnauthorized},
		{"student reads", http.MethodGet, "/api/me", token(t, cfg, model.Student), http.StatusOK},
		{"student cannot build", http.MethodPost, "/api/assessments", token(t, cfg, model.Student), http.StatusForbidden},
		{"teacher builds", http.MethodPost, "/api/assessments", token(t, cfg, model.Teacher), http.StatusCreated},
		{"admin passes every role", http.MethodPost, "/api/assessments", token(t, cfg, model.Admin), http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
