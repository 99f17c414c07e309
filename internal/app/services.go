package app

import (
	"time"

	"github.com/fisker/bcm-backend/internal/auth"
	"github.com/fisker/bcm-backend/internal/notification"
	"github.com/fisker/bcm-backend/internal/scheduler"
	"github.com/fisker/bcm-backend/internal/service"
	"github.com/fisker/bcm-backend/internal/workflow"
	"github.com/fisker/bcm-backend/pkg/config"
	"github.com/fisker/bcm-backend/pkg/distributed"
	"github.com/fisker/bcm-backend/pkg/logger"
	pkgredis "github.com/fisker/bcm-backend/pkg/redis"
)

// Services 包含所有 Service 实例
type Services struct {
	Auth         *service.AuthService
	Organization *service.OrganizationService
	Engine       *workflow.Engine
	OrgSync      *scheduler.OrgSyncScheduler // 未配置自动同步时为 nil
}

// InitializeServices 初始化所有 Service
func InitializeServices(repos *Repositories, cfg *config.Config, hierarchy *workflow.Hierarchy, notificationMgr *notification.NotificationManager) *Services {
	authService := service.NewAuthService(repos.User, &cfg.Security, &cfg.LDAP, hierarchy)

	// 未启用 LDAP 时组织架构只读
	var orgSource service.OrgUnitSource
	if cfg.LDAP.Enabled {
		orgSource = auth.NewLDAPAuthenticator(&cfg.LDAP)
	}
	orgService := service.NewOrganizationService(repos.Organization, orgSource, cfg.LDAP.BaseDN)

	opts := []workflow.Option{workflow.WithNotifier(notificationMgr)}
	if pkgredis.IsEnabled() {
		locker := distributed.NewRequestLocker(pkgredis.GetClient(), "bcm:lock:", time.Duration(cfg.Redis.LockTTL)*time.Second)
		opts = append(opts, workflow.WithLocker(locker))
		logger.Infof("Approval decisions serialized with Redis lock (ttl=%ds)", cfg.Redis.LockTTL)
	}
	engine := workflow.NewEngine(repos.ApprovalRequest, repos.User, hierarchy, opts...)

	var orgSync *scheduler.OrgSyncScheduler
	if cfg.LDAP.Enabled && cfg.LDAP.SyncInterval > 0 {
		orgSync = scheduler.NewOrgSyncScheduler(orgService, pkgredis.GetClient(), cfg.LDAP.SyncInterval)
	}

	return &Services{
		Auth:         authService,
		Organization: orgService,
		Engine:       engine,
		OrgSync:      orgSync,
	}
}
