package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisker/bcm-backend/internal/model"
)

func TestNextRole(t *testing.T) {
	h := DefaultHierarchy()

	tests := []struct {
		name      string
		role      model.Role
		wantRole  model.Role
		wantAtTop bool
		wantErr   error
	}{
		{"流程负责人", model.RoleProcessOwner, model.RoleDepartmentHead, false, nil},
		{"部门负责人", model.RoleDepartmentHead, model.RoleOrganizationHead, false, nil},
		{"组织负责人", model.RoleOrganizationHead, model.RoleAdmin, false, nil},
		{"最高角色为不动点", model.RoleAdmin, model.RoleAdmin, true, nil},
		{"未知角色", model.Role("Auditor"), model.Role("Auditor"), false, ErrUnknownRole},
		{"大小写不同视为未知", model.Role("admin"), model.Role("admin"), false, ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, atTop, err := h.NextRole(tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, got)
			assert.Equal(t, tt.wantAtTop, atTop)
		})
	}
}

// 从任意角色反复取上一级，最终到达最高角色并保持不变
func TestNextRole_ReachesTopFixedPoint(t *testing.T) {
	h := DefaultHierarchy()
	for _, start := range h.Roles() {
		current := start
		for i := 0; i < len(h.Roles()); i++ {
			next, atTop, err := h.NextRole(current)
			require.NoError(t, err)
			if atTop {
				break
			}
			current = next
		}
		assert.Equal(t, h.Top(), current, "start=%s", start)

		next, atTop, err := h.NextRole(h.Top())
		require.NoError(t, err)
		assert.True(t, atTop)
		assert.Equal(t, h.Top(), next)
	}
}

func TestApprovalChain(t *testing.T) {
	h := DefaultHierarchy()

	chain, err := h.ApprovalChain(model.RoleProcessOwner)
	require.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleDepartmentHead, model.RoleOrganizationHead, model.RoleAdmin}, chain)

	chain, err = h.ApprovalChain(model.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, chain)

	_, err = h.ApprovalChain(model.Role("Auditor"))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestNewHierarchy(t *testing.T) {
	tests := []struct {
		name    string
		chain   []string
		wantErr bool
	}{
		{"正常", []string{"Analyst", "Manager", "Director"}, false},
		{"单一角色", []string{"Admin"}, false},
		{"空链", nil, true},
		{"空名称", []string{"Analyst", " "}, true},
		{"重复角色", []string{"Analyst", "Manager", "Analyst"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHierarchy(tt.chain)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, h.Roles(), len(tt.chain))
		})
	}

	h, err := NewHierarchy([]string{"Admin"})
	require.NoError(t, err)
	next, atTop, err := h.NextRole("Admin")
	require.NoError(t, err)
	assert.True(t, atTop)
	assert.Equal(t, model.Role("Admin"), next)
}

func TestHierarchy_Levels(t *testing.T) {
	h := DefaultHierarchy()

	level, err := h.Level(model.RoleProcessOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, level)

	level, err = h.Level(model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 4, level)

	_, err = h.Level("Auditor")
	assert.ErrorIs(t, err, ErrUnknownRole)

	assert.Equal(t, model.RoleProcessOwner, h.Lowest())
	assert.Equal(t, model.RoleAdmin, h.Top())

	// Roles 返回副本
	roles := h.Roles()
	roles[0] = "Hacked"
	assert.Equal(t, model.RoleProcessOwner, h.Lowest())
}

func TestParseRole(t *testing.T) {
	h := DefaultHierarchy()

	tests := []struct {
		input string
		want  model.Role
	}{
		{"Department Head", model.RoleDepartmentHead},
		{"department head", model.RoleDepartmentHead},
		{"department_head", model.RoleDepartmentHead},
		{"  Organization-Head ", model.RoleOrganizationHead},
		{"ADMIN", model.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := h.ParseRole(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := h.ParseRole("CFO")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestDescribe(t *testing.T) {
	levels := DefaultHierarchy().Describe()
	require.Len(t, levels, 4)
	assert.Equal(t, RoleLevel{Role: model.RoleProcessOwner, Level: 1, Next: model.RoleDepartmentHead}, levels[0])
	assert.Equal(t, RoleLevel{Role: model.RoleAdmin, Level: 4}, levels[3])
}
