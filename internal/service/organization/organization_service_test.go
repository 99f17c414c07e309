package organization

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fisker/bcm-backend/internal/auth"
	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/internal/repository"
	"github.com/fisker/bcm-backend/pkg/database"
)

type fakeSource struct {
	units []auth.OrgUnit
	err   error
	calls int
}

func (f *fakeSource) SearchOrgUnits() ([]auth.OrgUnit, error) {
	f.calls++
	return f.units, f.err
}

func newTestRepo(t *testing.T) *repository.OrganizationRepository {
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
	return repository.NewOrganizationRepository(db)
}

func TestSyncFromDirectory(t *testing.T) {
	source := &fakeSource{units: []auth.OrgUnit{
		{DN: "OU=Payroll,OU=Finance,OU=Example Corp,DC=example,DC=com", Name: "Payroll"},
		{DN: "OU=Finance,OU=Example Corp,DC=example,DC=com", Name: "Finance"},
		{DN: "OU=Example Corp,DC=example,DC=com", Name: "Example Corp"},
	}}
	svc := NewOrganizationService(newTestRepo(t), source, "DC=example,DC=com")

	result, err := svc.SyncFromDirectory()
	require.NoError(t, err)
	assert.Equal(t, &model.OrganizationSyncResult{Total: 3, Created: 3}, result)

	tree, err := svc.GetTree()
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "Example Corp", tree[0].UnitName)
	assert.Equal(t, model.UnitTypeOrganization, tree[0].UnitType)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Finance", tree[0].Children[0].UnitName)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, model.UnitTypeProcess, tree[0].Children[0].Children[0].UnitType)

	// 再次同步只更新
	source.units[1].Description = "Finance & Treasury"
	result, err = svc.SyncFromDirectory()
	require.NoError(t, err)
	assert.Equal(t, &model.OrganizationSyncResult{Total: 3, Updated: 3}, result)

	tree, err = svc.GetTree()
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "Finance & Treasury", tree[0].Children[0].Description)
}

func TestSyncFromDirectory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		source  OrgUnitSource
		wantErr error
	}{
		{"未启用目录", nil, ErrDirectoryDisabled},
		{"目录查询失败", &fakeSource{err: errors.New("ldap: connection refused")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewOrganizationService(newTestRepo(t), tt.source, "DC=example,DC=com")
			_, err := svc.SyncFromDirectory()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NotErrorIs(t, err, ErrDirectoryDisabled)
			}
		})
	}
}

func TestGetTree_Empty(t *testing.T) {
	svc := NewOrganizationService(newTestRepo(t), nil, "")
	tree, err := svc.GetTree()
	require.NoError(t, err)
	assert.Empty(t, tree)
}
