package auth

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/fisker/bcm-backend/pkg/config"
	"github.com/fisker/bcm-backend/pkg/logger"
)

// LDAPAuthenticator Active Directory 认证与目录查询
type LDAPAuthenticator struct {
	config *config.LDAPConfig
}

// NewLDAPAuthenticator 创建 LDAP 认证器
func NewLDAPAuthenticator(cfg *config.LDAPConfig) *LDAPAuthenticator {
	return &LDAPAuthenticator{config: cfg}
}

// Enabled 是否启用
func (l *LDAPAuthenticator) Enabled() bool {
	return l != nil && l.config != nil && l.config.Enabled
}

// Authenticate LDAP 认证
func (l *LDAPAuthenticator) Authenticate(username, password string) (*LDAPUser, error) {
	if !l.Enabled() {
		return nil, fmt.Errorf("LDAP is not enabled")
	}

	// 验证 UserFilter 格式（支持 %s, {0}, {username}）
	if !strings.Contains(l.config.UserFilter, "%s") &&
		!strings.Contains(l.config.UserFilter, "{0}") &&
		!strings.Contains(l.config.UserFilter, "{username}") {
		return nil, fmt.Errorf("UserFilter must contain %%s, {0} or {username} placeholder, got: %s", l.config.UserFilter)
	}

	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	// 空密码会被 AD 视为匿名绑定并“成功”
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	conn, err := l.connect()
	if err != nil {
		logger.Warnf("LDAP: Connection failed for user '%s' to %s:%d: %v", username, l.config.Host, l.config.Port, err)
		return nil, fmt.Errorf("failed to connect to LDAP: %w", err)
	}
	defer conn.Close()

	if err := conn.Bind(l.config.BindDN, l.config.BindPassword); err != nil {
		logger.Warnf("LDAP: Admin bind failed for user '%s': %v", username, err)
		return nil, fmt.Errorf("failed to bind with admin account: %w", err)
	}

	entry, err := l.searchUser(conn, username)
	if err != nil {
		logger.Warnf("LDAP: User search failed for username '%s' with filter '%s' in BaseDN '%s': %v",
			username, l.config.UserFilter, l.config.BaseDN, err)
		return nil, fmt.Errorf("user not found: %w", err)
	}

	logger.Debugf("LDAP: Found user '%s' with DN: %s", username, entry.DN)

	if err := conn.Bind(entry.DN, password); err != nil {
		logger.Warnf("LDAP: Authentication failed for user '%s' (DN: %s): %v", username, entry.DN, err)
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	fullName := entry.GetAttributeValue(l.config.FullNameAttribute)
	if fullName == "" {
		fullName = entry.GetAttributeValue("cn")
	}

	return &LDAPUser{
		DN:         entry.DN,
		Username:   username,
		Email:      entry.GetAttributeValue(l.config.EmailAttribute),
		FullName:   fullName,
		Department: entry.GetAttributeValue(l.config.DepartmentAttribute),
		Groups:     entry.GetAttributeValues(l.config.MemberOfAttribute),
	}, nil
}

// SearchOrgUnits 使用管理员账号查询 BaseDN 下的组织单元
func (l *LDAPAuthenticator) SearchOrgUnits() ([]OrgUnit, error) {
	if !l.Enabled() {
		return nil, fmt.Errorf("LDAP is not enabled")
	}

	conn, err := l.connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP: %w", err)
	}
	defer conn.Close()

	if err := conn.Bind(l.config.BindDN, l.config.BindPassword); err != nil {
		return nil, fmt.Errorf("failed to bind with admin account: %w", err)
	}

	searchRequest := ldap.NewSearchRequest(
		l.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		l.config.OrgUnitFilter,
		[]string{"dn", "ou", "name", "description", "managedBy"},
		nil,
	)

	// AD 默认单页最多返回 1000 条
	result, err := conn.SearchWithPaging(searchRequest, 500)
	if err != nil {
		return nil, fmt.Errorf("failed to search organizational units: %w", err)
	}

	units := make([]OrgUnit, 0, len(result.Entries))
	for _, entry := range result.Entries {
		name := entry.GetAttributeValue("ou")
		if name == "" {
			name = entry.GetAttributeValue("name")
		}
		units = append(units, OrgUnit{
			DN:          entry.DN,
			Name:        name,
			Description: entry.GetAttributeValue("description"),
			ManagedBy:   entry.GetAttributeValue("managedBy"),
		})
	}

	logger.Infof("LDAP: Found %d organizational units under %s", len(units), l.config.BaseDN)
	return units, nil
}

// connect 连接到 LDAP 服务器（短连接，每次调用都创建新连接）
func (l *LDAPAuthenticator) connect() (*ldap.Conn, error) {
	address := fmt.Sprintf("%s:%d", l.config.Host, l.config.Port)

	var conn *ldap.Conn
	var err error

	if l.config.UseSSL {
		// LDAPS (直接 TLS 连接，端口 636)
		tlsConfig := &tls.Config{
			InsecureSkipVerify: l.config.SkipTLSVerify,
			ServerName:         l.config.Host,
		}
		conn, err = ldap.DialURL("ldaps://"+address, ldap.DialWithTLSConfig(tlsConfig))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to LDAPS server %s: %w", address, err)
		}
	} else {
		conn, err = ldap.DialURL("ldap://" + address)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to LDAP server %s: %w", address, err)
		}
	}

	conn.SetTimeout(10 * time.Second)
	return conn, nil
}

// searchUser 搜索用户
func (l *LDAPAuthenticator) searchUser(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	filter := BuildUserFilter(l.config.UserFilter, username)

	searchRequest := ldap.NewSearchRequest(
		l.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		[]string{"dn", "cn", l.config.EmailAttribute, l.config.FullNameAttribute,
			l.config.MemberOfAttribute, l.config.DepartmentAttribute},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	if len(result.Entries) > 1 {
		for i, entry := range result.Entries {
			logger.Warnf("LDAP:   [%d] DN: %s", i+1, entry.DN)
		}
		return nil, fmt.Errorf("multiple users found")
	}

	return result.Entries[0], nil
}

// BuildUserFilter 将用户名（转义后）代入过滤器模板
// 支持三种格式：%s, {0}, {username}
func BuildUserFilter(template, username string) string {
	escaped := ldap.EscapeFilter(username)
	switch {
	case strings.Contains(template, "{username}"):
		return strings.ReplaceAll(template, "{username}", escaped)
	case strings.Contains(template, "{0}"):
		return strings.ReplaceAll(template, "{0}", escaped)
	case strings.Contains(template, "%s"):
		return fmt.Sprintf(template, escaped)
	}
	return template
}

// LDAPUser LDAP 用户信息
type LDAPUser struct {
	DN         string   // Distinguished Name
	Username   string   // sAMAccountName
	Email      string   // mail
	FullName   string   // displayName / cn
	Department string   // department
	Groups     []string // memberOf
}

// OrgUnit AD 组织单元
type OrgUnit struct {
	DN          string
	Name        string
	Description string
	ManagedBy   string
}
