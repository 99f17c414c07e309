package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/pkg/config"
	"github.com/fisker/bcm-backend/pkg/logger"
)

var DB *gorm.DB

// Init 连接数据库并迁移，adminRole 为初始管理员账号的角色
func Init(cfg *config.DatabaseConfig, security *config.SecurityConfig, adminRole model.Role) error {
	cfg.SetDefaults()

	// 初始化数据库连接（内部已经 Ping 验证）
	if err := InitDatabase(cfg); err != nil {
		return err
	}

	// 检查并自动迁移表（仅在表不存在时）
	if err := AutoMigrateAll(security, adminRole); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	logger.Infof("Database initialized successfully")
	return nil
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
