package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fisker/bcm-backend/pkg/logger"
	"github.com/fisker/bcm-backend/pkg/metrics"
)

// OperationLogMiddleware 操作日志与接口指标中间件
// 所有请求记录 Prometheus 指标，非 GET 请求额外记录操作日志
func OperationLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		timeCost := time.Since(startTime)

		// 未匹配路由时使用固定标签，避免指标基数膨胀
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()

		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(timeCost.Seconds())

		if c.Request.Method == "GET" {
			return
		}

		username, _ := c.Get("username")
		logger.Infof("Operation: %s %s status=%d user=%v ip=%s cost=%dms",
			c.Request.Method, endpoint, status, username, c.ClientIP(), timeCost.Milliseconds())
	}
}
