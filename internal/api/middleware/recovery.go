package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/pkg/logger"
)

// RecoveryMiddleware 捕获 panic，记录请求上下文与堆栈后返回 500。
// release 模式下不向客户端暴露 panic 内容。
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("%v", recovered)
		}

		target := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		userID, _ := c.Get("user_id")
		role, _ := c.Get("role")

		logger.Errorf("Panic recovered: %v\n  Request: %s %s\n  Client IP: %s\n  User: %v (%v)\n  Stack Trace:\n%s",
			err, c.Request.Method, target, c.ClientIP(), userID, role, debug.Stack())

		message := "服务器内部错误"
		if gin.Mode() != gin.ReleaseMode {
			message = err.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, model.Error(500, message))
	})
}
