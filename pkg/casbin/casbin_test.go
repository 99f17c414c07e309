package casbin

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fisker/bcm-backend/internal/model"
)

var chain = []model.Role{
	model.RoleProcessOwner,
	model.RoleDepartmentHead,
	model.RoleOrganizationHead,
	model.RoleAdmin,
}

func setupEnforcer(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	e, err := NewEnforcer(db)
	require.NoError(t, err)
	require.NoError(t, SeedRolePolicies(e, chain))
	// 重复写入不报错
	require.NoError(t, SeedRolePolicies(e, chain))

	SetEnforcer(e)
	t.Cleanup(func() { SetEnforcer(nil) })
}

func TestEnforce_RolePolicies(t *testing.T) {
	setupEnforcer(t)

	tests := []struct {
		name   string
		role   model.Role
		path   string
		method string
		want   bool
	}{
		{"最低角色提交请求", model.RoleProcessOwner, "/approval-requests", "POST", true},
		{"最低角色查看详情", model.RoleProcessOwner, "/approval-requests/3f2a", "GET", true},
		{"最低角色审批", model.RoleProcessOwner, "/approval-requests/3f2a/decision", "POST", true},
		{"中间角色继承成员接口", model.RoleOrganizationHead, "/approval-requests/pending", "GET", true},
		{"管理员继承成员接口", model.RoleAdmin, "/organizations/tree", "GET", true},
		{"管理员升级请求", model.RoleAdmin, "/approval-requests/3f2a/escalate", "POST", true},
		{"管理员修改角色", model.RoleAdmin, "/users/u1/role", "PUT", true},
		{"非管理员升级请求", model.RoleOrganizationHead, "/approval-requests/3f2a/escalate", "POST", false},
		{"非管理员用户管理", model.RoleDepartmentHead, "/users", "GET", false},
		{"非管理员同步组织", model.RoleProcessOwner, "/organizations/sync", "POST", false},
		{"方法不匹配", model.RoleAdmin, "/approval-requests/3f2a", "DELETE", false},
		{"未知角色", model.Role("Auditor"), "/approval-requests", "GET", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := Enforce(string(tt.role), tt.path, tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestEnforce_Uninitialized(t *testing.T) {
	SetEnforcer(nil)
	allowed, err := Enforce(string(model.RoleAdmin), "/users", "GET")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.NoError(t, ReloadPolicy())
}

func TestSeedRolePolicies_EmptyChain(t *testing.T) {
	setupEnforcer(t)
	assert.Error(t, SeedRolePolicies(GetEnforcer(), nil))
}
