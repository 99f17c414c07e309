package workflow

import (
	"fmt"
	"strings"

	"github.com/fisker/bcm-backend/internal/model"
)

// Hierarchy 审批角色层级（从低到高），启动时构建，之后只读
type Hierarchy struct {
	roles  []model.Role
	levels map[model.Role]int
}

// NewHierarchy 根据角色名称（从低到高）构建层级
func NewHierarchy(chain []string) (*Hierarchy, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("role chain must contain at least one role")
	}

	h := &Hierarchy{
		roles:  make([]model.Role, 0, len(chain)),
		levels: make(map[model.Role]int, len(chain)),
	}
	for i, name := range chain {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("role chain entry %d is empty", i)
		}
		role := model.Role(name)
		if _, dup := h.levels[role]; dup {
			return nil, fmt.Errorf("role %q appears more than once in the chain", name)
		}
		h.roles = append(h.roles, role)
		h.levels[role] = i + 1
	}
	return h, nil
}

// DefaultHierarchy Process Owner < Department Head < Organization Head < Admin
func DefaultHierarchy() *Hierarchy {
	h, _ := NewHierarchy([]string{
		string(model.RoleProcessOwner),
		string(model.RoleDepartmentHead),
		string(model.RoleOrganizationHead),
		string(model.RoleAdmin),
	})
	return h
}

// NextRole 返回下一个更高级的审批角色。
// 已是最高角色时返回 (role, true, nil)；未知角色返回 ErrUnknownRole。
func (h *Hierarchy) NextRole(role model.Role) (model.Role, bool, error) {
	level, ok := h.levels[role]
	if !ok {
		return role, false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if level == len(h.roles) {
		return role, true, nil
	}
	return h.roles[level], false, nil
}

// ApprovalChain 返回所有严格高于 start 的角色，以最高角色结尾
func (h *Hierarchy) ApprovalChain(start model.Role) ([]model.Role, error) {
	chain := []model.Role{}
	current := start
	for {
		next, atTop, err := h.NextRole(current)
		if err != nil {
			return nil, err
		}
		if atTop {
			return chain, nil
		}
		chain = append(chain, next)
		current = next
	}
}

// Level 角色级别，越大越高
func (h *Hierarchy) Level(role model.Role) (int, error) {
	level, ok := h.levels[role]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return level, nil
}

func (h *Hierarchy) IsKnown(role model.Role) bool {
	_, ok := h.levels[role]
	return ok
}

func (h *Hierarchy) Top() model.Role {
	return h.roles[len(h.roles)-1]
}

func (h *Hierarchy) Lowest() model.Role {
	return h.roles[0]
}

// Roles 返回层级副本（从低到高）
func (h *Hierarchy) Roles() []model.Role {
	return append([]model.Role(nil), h.roles...)
}

// ParseRole 解析角色名称，忽略大小写，兼容 "department_head" 写法
func (h *Hierarchy) ParseRole(s string) (model.Role, error) {
	normalized := normalizeRoleName(s)
	for _, role := range h.roles {
		if normalizeRoleName(string(role)) == normalized {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func normalizeRoleName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// RoleLevel 层级展示
type RoleLevel struct {
	Role  model.Role `json:"role"`
	Level int        `json:"level"`
	Next  model.Role `json:"next,omitempty"`
}

// Describe 返回层级描述（用于 /roles/hierarchy）
func (h *Hierarchy) Describe() []RoleLevel {
	out := make([]RoleLevel, 0, len(h.roles))
	for i, role := range h.roles {
		rl := RoleLevel{Role: role, Level: i + 1}
		if i+1 < len(h.roles) {
			rl.Next = h.roles[i+1]
		}
		out = append(out, rl)
	}
	return out
}
