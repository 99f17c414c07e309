// Package handler 提供统一的 handler 导出
// 所有 handler 按功能模块分类到子目录中
package handler

// 重新导出所有 handler 类型，保持向后兼容
import (
	// Approval handlers
	approvalHandler "github.com/fisker/bcm-backend/internal/api/handler/approval"
	// Auth handlers
	authHandler "github.com/fisker/bcm-backend/internal/api/handler/auth"
	// System handlers
	systemHandler "github.com/fisker/bcm-backend/internal/api/handler/system"
)

// Approval handlers
type ApprovalHandler = approvalHandler.ApprovalHandler

var NewApprovalHandler = approvalHandler.NewApprovalHandler

// Auth handlers
type AuthHandler = authHandler.AuthHandler

var NewAuthHandler = authHandler.NewAuthHandler

// System handlers
type OrganizationHandler = systemHandler.OrganizationHandler

var NewOrganizationHandler = systemHandler.NewOrganizationHandler
