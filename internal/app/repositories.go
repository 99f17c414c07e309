package app

import (
	"github.com/fisker/bcm-backend/internal/repository"
	"github.com/fisker/bcm-backend/pkg/database"
)

// Repositories 包含所有 Repository 实例
type Repositories struct {
	User            *repository.UserRepository
	Organization    *repository.OrganizationRepository
	ApprovalRequest *repository.ApprovalRequestRepository
}

// InitializeRepositories 初始化所有 Repository
func InitializeRepositories() *Repositories {
	return &Repositories{
		User:            repository.NewUserRepository(database.DB),
		Organization:    repository.NewOrganizationRepository(database.DB),
		ApprovalRequest: repository.NewApprovalRequestRepository(database.DB),
	}
}
