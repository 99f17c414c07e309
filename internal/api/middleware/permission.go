package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/pkg/casbin"
	"github.com/fisker/bcm-backend/pkg/logger"
)

// PermissionMiddleware Casbin权限中间件
// 以 JWT 中的角色为主体，检查其是否有权访问请求的 API 路径
func PermissionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, model.Error(401, "未找到用户信息"))
			c.Abort()
			return
		}
		roleStr := fmt.Sprintf("%v", role)

		// 移除API前缀
		path := strings.TrimPrefix(c.Request.URL.Path, "/api")
		method := c.Request.Method

		allowed, err := casbin.Enforce(roleStr, path, method)
		if err != nil {
			logger.Errorf("Casbin enforce failed for %s %s %s: %v", roleStr, method, path, err)
		}
		if err != nil || !allowed {
			username, _ := c.Get("username")
			logger.Warnf("Permission denied: user=%v role=%s %s %s", username, roleStr, method, path)
			c.JSON(http.StatusForbidden, model.Error(403, "权限不足"))
			c.Abort()
			return
		}

		c.Next()
	}
}
