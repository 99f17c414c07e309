package app

import (
	"github.com/fisker/bcm-backend/internal/api/handler"
)

// Handlers 包含所有 Handler 实例
type Handlers struct {
	Auth         *handler.AuthHandler
	Approval     *handler.ApprovalHandler
	Organization *handler.OrganizationHandler
}

// InitializeHandlers 初始化所有 Handler
func InitializeHandlers(repos *Repositories, services *Services) *Handlers {
	return &Handlers{
		Auth:         handler.NewAuthHandler(services.Auth),
		Approval:     handler.NewApprovalHandler(services.Engine, repos.ApprovalRequest, repos.User),
		Organization: handler.NewOrganizationHandler(services.Organization),
	}
}
