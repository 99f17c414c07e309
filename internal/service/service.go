// Package service 提供统一的 service 导出
// 所有 service 按功能模块分类到子目录中
package service

// 重新导出所有 service 类型，保持向后兼容
import (
	// Auth services
	authService "github.com/fisker/bcm-backend/internal/service/auth"
	// Organization services
	orgService "github.com/fisker/bcm-backend/internal/service/organization"
)

// Auth services
type AuthService = authService.AuthService
type Claims = authService.Claims

var NewAuthService = authService.NewAuthService

// Organization services
type OrganizationService = orgService.OrganizationService
type OrgUnitSource = orgService.OrgUnitSource

var NewOrganizationService = orgService.NewOrganizationService
