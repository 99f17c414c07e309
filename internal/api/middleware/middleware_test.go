package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/fisker/bcm-backend/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAdminMiddleware(t *testing.T) {
	tests := []struct {
		name string
		role string
		want int
	}{
		{"最高角色", string(model.RoleAdmin), http.StatusOK},
		{"非最高角色", string(model.RoleOrganizationHead), http.StatusForbidden},
		{"无角色", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) {
				if tt.role != "" {
					c.Set("role", tt.role)
				}
				c.Next()
			}, AdminMiddleware(model.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://bcm.example.com"}))
	called := 0
	r.Any("/x", func(c *gin.Context) {
		called++
		c.Status(http.StatusOK)
	})

	// 预检请求不进入业务处理
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://bcm.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://bcm.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 0, called)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://bcm.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://bcm.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1, called)

	// 未允许的来源不返回跨域头，但请求照常处理
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 2, called)
}

func TestCORS_NoOriginsConfigured(t *testing.T) {
	r := gin.New()
	r.Use(CORS(nil))
	called := 0
	r.Any("/x", func(c *gin.Context) {
		called++
		c.Status(http.StatusOK)
	})

	for _, method := range []string{http.MethodOptions, http.MethodGet} {
		req := httptest.NewRequest(method, "/x", nil)
		req.Header.Set("Origin", "https://evil.example.org")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), method)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"), method)
	}
	assert.Equal(t, 2, called)
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
