package auth

import (
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/fisker/bcm-backend/internal/model"
)

// ResolveRole 根据 AD 组成员关系确定 BCM 角色。
// roleGroups 为 角色 → 组 DN 映射；命中多个时取层级最高的角色。
// roles 为审批层级（从低到高）。没有命中时返回 false。
func ResolveRole(groups []string, roleGroups map[string]string, roles []model.Role) (model.Role, bool) {
	memberOf := make(map[string]bool, len(groups))
	for _, g := range groups {
		memberOf[NormalizeDN(g)] = true
	}

	for i := len(roles) - 1; i >= 0; i-- {
		groupDN, ok := roleGroups[string(roles[i])]
		if !ok || groupDN == "" {
			continue
		}
		if memberOf[NormalizeDN(groupDN)] {
			return roles[i], true
		}
	}
	return "", false
}

// OrgNode 由 OU 推导出的组织节点
type OrgNode struct {
	DN          string
	ParentDN    string // 为空表示顶级
	Name        string
	UnitType    string
	Owner       string
	Description string
	Depth       int
}

// BuildOrgHierarchy 按 DN 层级推导组织树：
// BaseDN 下第一层 OU 为 Organization，第二层为 Department，更深层为 Process。
// 父节点取去掉第一个 RDN 后的 DN（需在结果集中存在）。结果按深度、名称排序，父节点在前。
func BuildOrgHierarchy(units []OrgUnit, baseDN string) []OrgNode {
	baseDepth := dnDepth(baseDN)

	known := make(map[string]bool, len(units))
	for _, u := range units {
		// BaseDN 本身及其上层条目不成为节点，也不能作为父节点
		if dnDepth(u.DN)-baseDepth > 0 {
			known[NormalizeDN(u.DN)] = true
		}
	}

	nodes := make([]OrgNode, 0, len(units))
	for _, u := range units {
		depth := dnDepth(u.DN) - baseDepth
		if depth <= 0 {
			continue
		}

		parent := parentDN(u.DN)
		if !known[NormalizeDN(parent)] {
			parent = ""
		}

		name := u.Name
		if name == "" {
			name = firstRDNValue(u.DN)
		}

		nodes = append(nodes, OrgNode{
			DN:          u.DN,
			ParentDN:    parent,
			Name:        name,
			UnitType:    unitTypeForDepth(depth),
			Owner:       u.ManagedBy,
			Description: u.Description,
			Depth:       depth,
		})
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].Name < nodes[j].Name
	})
	return nodes
}

func unitTypeForDepth(depth int) string {
	switch depth {
	case 1:
		return model.UnitTypeOrganization
	case 2:
		return model.UnitTypeDepartment
	default:
		return model.UnitTypeProcess
	}
}

func dnDepth(dn string) int {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return strings.Count(dn, ",") + 1
	}
	return len(parsed.RDNs)
}

// parentDN 去掉第一个 RDN（跳过转义的逗号）
func parentDN(dn string) string {
	for i := 0; i < len(dn); i++ {
		switch dn[i] {
		case '\\':
			i++
		case ',':
			return strings.TrimSpace(dn[i+1:])
		}
	}
	return ""
}

func firstRDNValue(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return dn
	}
	return parsed.RDNs[0].Attributes[0].Value
}

// NormalizeDN 用于 DN 比较（AD 中 DN 不区分大小写）
func NormalizeDN(dn string) string {
	parts := strings.Split(dn, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.ToLower(strings.Join(parts, ","))
}
