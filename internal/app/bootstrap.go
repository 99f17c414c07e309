package app

import (
	"fmt"
	"log"
	"os"

	"github.com/fisker/bcm-backend/internal/workflow"
	casbinpkg "github.com/fisker/bcm-backend/pkg/casbin"
	"github.com/fisker/bcm-backend/pkg/config"
	"github.com/fisker/bcm-backend/pkg/database"
	"github.com/fisker/bcm-backend/pkg/logger"
	pkgredis "github.com/fisker/bcm-backend/pkg/redis"
)

// Bootstrap 初始化基础设施（logger, database, redis, casbin）
func Bootstrap(cfgPath string) (*config.Config, *workflow.Hierarchy, error) {
	// 支持通过环境变量指定配置文件路径
	if cfgPath == "" {
		cfgPath = os.Getenv("BCM_CONFIG")
		if cfgPath == "" {
			cfgPath = "config/config.yaml"
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	config.GlobalConfig = cfg

	// Initialize logger
	if err := logger.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	hierarchy, err := workflow.NewHierarchy(cfg.Approval.RoleChain)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid approval role chain: %w", err)
	}
	logger.Infof("Approval hierarchy: %v", hierarchy.Roles())

	// Initialize database
	if err := database.Init(&cfg.Database, &cfg.Security, hierarchy.Top()); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (optional, for distributed features)
	if err := pkgredis.Init(&cfg.Redis); err != nil {
		logger.Warnf("Redis initialization failed: %v", err)
		logger.Info("   → Approval decisions are guarded by the database only")
		logger.Info("   → Casbin permissions will not sync across instances (manual ReloadPolicy required)")
	} else if cfg.Redis.Enabled {
		logger.Infof("Redis initialized successfully - distributed features enabled")
	}

	// Initialize Casbin permission manager (after Redis, so Watcher can be configured)
	if err := casbinpkg.Init(database.DB, hierarchy.Roles()); err != nil {
		logger.Fatalf("Failed to initialize Casbin: %v", err)
	}
	logger.Infof("Casbin permission manager initialized successfully")

	return cfg, hierarchy, nil
}
