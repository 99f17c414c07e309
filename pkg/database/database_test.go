package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/pkg/config"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := openTestDB(t)
	for _, table := range []string{"users", "organizations", "approval_requests", "approval_steps", "approval_escalations"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestCreateDefaultAdmin(t *testing.T) {
	tests := []struct {
		name      string
		security  *config.SecurityConfig
		wantAdmin bool
	}{
		{"未配置密码不创建", &config.SecurityConfig{}, false},
		{"无安全配置不创建", nil, false},
		{"配置密码后创建", &config.SecurityConfig{BootstrapAdminPassword: "bootstrap-pass"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			require.NoError(t, CreateDefaultAdmin(db, tt.security, model.Role("Director")))

			var users []model.User
			require.NoError(t, db.Find(&users).Error)
			if !tt.wantAdmin {
				assert.Empty(t, users)
				return
			}
			require.Len(t, users, 1)
			assert.Equal(t, "admin", users[0].Username)
			assert.Equal(t, model.Role("Director"), users[0].Role)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("bootstrap-pass")))

			// 再次调用不会重复创建
			require.NoError(t, CreateDefaultAdmin(db, tt.security, model.Role("Director")))
			var count int64
			require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})
	}
}
