package auth

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	ldapauth "github.com/fisker/bcm-backend/internal/auth"
	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/internal/repository"
	"github.com/fisker/bcm-backend/internal/workflow"
	"github.com/fisker/bcm-backend/pkg/config"
	"github.com/fisker/bcm-backend/pkg/database"
)

const testSecret = "test-secret-0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T, ldapCfg *config.LDAPConfig) (*AuthService, *repository.UserRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	repo := repository.NewUserRepository(db)
	svc := NewAuthService(repo, &config.SecurityConfig{JWTSecret: testSecret, TokenTTL: 1}, ldapCfg, workflow.DefaultHierarchy())
	return svc, repo
}

func TestToken_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t, nil)
	user := &model.User{ID: uuid.New().String(), Username: "alice", Role: model.RoleDepartmentHead}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, string(model.RoleDepartmentHead), claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc, _ := newTestService(t, nil)

	other := NewAuthService(nil, &config.SecurityConfig{JWTSecret: "another-secret"}, nil, workflow.DefaultHierarchy())
	foreign, err := other.GenerateToken(&model.User{ID: "x", Username: "x", Role: model.RoleAdmin})
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "x",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"格式错误", "not-a-token"},
		{"签名密钥不同", foreign},
		{"已过期", expired},
		{"签名算法为none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestLogin_LocalAccount(t *testing.T) {
	svc, repo := newTestService(t, nil)

	created, err := svc.CreateUser(&model.CreateUserRequest{
		Username: " bob ",
		Password: "s3cret-pass",
		Role:     "process_owner",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", created.Username)
	assert.Equal(t, model.RoleProcessOwner, created.Role)
	assert.Equal(t, model.UserSourceLocal, created.Source)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"密码正确", "s3cret-pass", nil},
		{"密码错误", "wrong-pass", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(&model.LoginRequest{Username: "bob", Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, created.ID, resp.User.ID)
			require.NotNil(t, resp.User.LastLoginTime)
		})
	}

	_, err = svc.Login(&model.LoginRequest{Username: "ghost", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, repo.UpdateUserStatus(created.ID, model.UserStatusDisabled))
	_, err = svc.Login(&model.LoginRequest{Username: "bob", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.CreateUser(&model.CreateUserRequest{Username: "carol", Password: "password1", Role: model.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.CreateUser(&model.CreateUserRequest{Username: "carol", Password: "password2", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.CreateUser(&model.CreateUserRequest{Username: "dave", Password: "password3", Role: "Auditor"})
	assert.ErrorIs(t, err, workflow.ErrUnknownRole)
}

func TestUpdateUserRoleAndStatus(t *testing.T) {
	svc, repo := newTestService(t, nil)
	user, err := svc.CreateUser(&model.CreateUserRequest{Username: "erin", Password: "password1", Role: model.RoleProcessOwner})
	require.NoError(t, err)

	role, err := svc.UpdateUserRole(user.ID, "organization-head")
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizationHead, role)

	stored, err := repo.FindUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizationHead, stored.Role)

	_, err = svc.UpdateUserRole(user.ID, "CEO")
	assert.ErrorIs(t, err, workflow.ErrUnknownRole)

	_, err = svc.UpdateUserRole("missing", model.RoleAdmin)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.Error(t, svc.UpdateUserStatus(user.ID, "suspended"))
	require.NoError(t, svc.UpdateUserStatus(user.ID, model.UserStatusDisabled))
	stored, err = repo.FindUserByID(user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive())
}

func TestCreateOrUpdateUserFromLDAP(t *testing.T) {
	ldapCfg := &config.LDAPConfig{
		RoleGroups: map[string]string{
			string(model.RoleDepartmentHead): "CN=BCM-DeptHeads,OU=Groups,DC=example,DC=com",
		},
	}
	svc, repo := newTestService(t, ldapCfg)

	// 未命中映射组的新用户为最低角色
	user, err := svc.createOrUpdateUserFromLDAP(&ldapauth.LDAPUser{Username: "fay", Email: "fay@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleProcessOwner, user.Role)
	assert.Equal(t, model.UserSourceLDAP, user.Source)

	// 命中映射组时更新角色
	user, err = svc.createOrUpdateUserFromLDAP(&ldapauth.LDAPUser{
		Username: "fay",
		FullName: "Fay Lin",
		Groups:   []string{"CN=BCM-DeptHeads,OU=Groups,DC=example,DC=com"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleDepartmentHead, user.Role)
	assert.Equal(t, "fay@example.com", user.Email)
	assert.Equal(t, "Fay Lin", user.FullName)

	// 已有用户未命中映射组时保留原角色
	user, err = svc.createOrUpdateUserFromLDAP(&ldapauth.LDAPUser{Username: "fay"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleDepartmentHead, user.Role)

	// 已禁用用户不会被重新启用
	require.NoError(t, repo.UpdateUserStatus(user.ID, model.UserStatusDisabled))
	_, err = svc.createOrUpdateUserFromLDAP(&ldapauth.LDAPUser{Username: "fay"})
	assert.ErrorIs(t, err, ErrUserDisabled)
}
