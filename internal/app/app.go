package app

import (
	"github.com/fisker/bcm-backend/internal/notification"
	"github.com/fisker/bcm-backend/internal/workflow"
	"github.com/fisker/bcm-backend/pkg/config"
	"github.com/fisker/bcm-backend/pkg/logger"
)

// App 应用程序上下文
type App struct {
	Config              *config.Config
	Hierarchy           *workflow.Hierarchy
	Repos               *Repositories
	Services            *Services
	Handlers            *Handlers
	NotificationManager *notification.NotificationManager
}

// Initialize 初始化应用程序
func Initialize(cfgPath string) (*App, error) {
	// 1. Bootstrap (logger, database, redis, casbin)
	cfg, hierarchy, err := Bootstrap(cfgPath)
	if err != nil {
		return nil, err
	}

	// 2. Initialize repositories
	repos := InitializeRepositories()
	logger.Infof("Repositories initialized")

	// 3. Initialize notification manager
	notificationMgr := notification.InitFromConfig(&cfg.Notification)
	logger.Infof("Notification Manager initialized (%d channels)", notificationMgr.GetNotifiersCount())

	// 4. Initialize services
	services := InitializeServices(repos, cfg, hierarchy, notificationMgr)
	logger.Infof("Services initialized")

	// 5. Initialize handlers
	handlers := InitializeHandlers(repos, services)
	logger.Infof("Handlers initialized")

	return &App{
		Config:              cfg,
		Hierarchy:           hierarchy,
		Repos:               repos,
		Services:            services,
		Handlers:            handlers,
		NotificationManager: notificationMgr,
	}, nil
}
