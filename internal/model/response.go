package model

import (
	"fmt"

	"github.com/fisker/bcm-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(data interface{}) Response {
	return Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

func Error(code int, message string) Response {
	return Response{
		Code:    code,
		Message: message,
	}
}

// HandleError 统一错误处理函数，记录详细日志并返回错误响应
func HandleError(c *gin.Context, code int, err error, context ...string) {
	userID := ""
	if uid, exists := c.Get("user_id"); exists {
		userID = fmt.Sprintf("%v", uid)
	}

	fullURL := c.Request.URL.Path
	if q := c.Request.URL.RawQuery; q != "" {
		fullURL = fmt.Sprintf("%s?%s", fullURL, q)
	}

	errorMsg := err.Error()
	if len(context) > 0 {
		errorMsg = fmt.Sprintf("%s: %v", context[0], err)
	}

	if code >= 500 {
		logger.Errorf("Request error [%d]: %v\n  Request: %s %s\n  Client IP: %s\n  User ID: %s",
			code, errorMsg, c.Request.Method, fullURL, c.ClientIP(), userID)
	} else {
		logger.Warnf("Request rejected [%d]: %v (%s %s, user=%s)",
			code, errorMsg, c.Request.Method, fullURL, userID)
	}

	c.JSON(code, Error(code, errorMsg))
}

// PaginatedResponse 分页响应
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}
