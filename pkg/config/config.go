package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Security     SecurityConfig     `yaml:"security"`
	Logging      LoggingConfig      `yaml:"logging"`
	LDAP         LDAPConfig         `yaml:"ldap"`
	Approval     ApprovalConfig     `yaml:"approval"`
	Notification NotificationConfig `yaml:"notification"`
}

type ServerConfig struct {
	APIPort int    `yaml:"api_port"`
	Mode    string `yaml:"mode"` // debug / release / test

	// AllowedOrigins 允许跨域访问的前端地址，支持通配符，为空时允许所有 http(s) 来源
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SetDefaults 设置服务默认值
func (c *ServerConfig) SetDefaults() {
	if c.APIPort == 0 {
		c.APIPort = 8080
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // 数据库驱动: postgres, mysql, sqlite (默认: postgres，兼容 Supabase)
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	SSLMode         string `yaml:"sslmode"` // 仅 postgres 使用，Supabase 需要 require
	CreateIfMissing bool   `yaml:"create_if_missing"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	// Enabled 是否启用Redis
	// - true: 启用Redis，审批决策使用分布式锁串行化，Casbin 策略多实例同步
	// - false: 禁用Redis，仅依赖数据库条件更新保证一致性
	Enabled bool `yaml:"enabled"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// ConnectTimeout 连接超时时间（秒，默认5秒）
	ConnectTimeout int `yaml:"connect_timeout"`
	// ReadTimeout 读取超时时间（秒，默认3秒）
	ReadTimeout int `yaml:"read_timeout"`
	// WriteTimeout 写入超时时间（秒，默认3秒）
	WriteTimeout int `yaml:"write_timeout"`

	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`

	// LockTTL 审批决策锁的过期时间（秒，默认10秒）
	LockTTL int `yaml:"lock_ttl"`
}

// Validate 验证Redis配置
func (c *RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Host == "" {
		return fmt.Errorf("redis host is required when enabled=true")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.Port)
	}

	return nil
}

// SetDefaults 设置默认值
func (c *RedisConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 5
	}
	if c.LockTTL == 0 {
		c.LockTTL = 10
	}
}

type SecurityConfig struct {
	// JWTSecret JWT签名密钥（建议64字节或更长）
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL 令牌有效期（小时）
	TokenTTL int `yaml:"token_ttl"`

	// BootstrapAdminPassword 首次启动时创建的 admin 账号密码，为空则不创建
	BootstrapAdminPassword string `yaml:"bootstrap_admin_password"`
}

// SetDefaults 设置安全配置的默认值
func (c *SecurityConfig) SetDefaults() {
	if c.JWTSecret == "" {
		// 仅用于开发环境，生产环境必须通过 JWT_SECRET 覆盖
		c.JWTSecret = "bcm-dev-secret-change-me-0n8Qk3vX2pL7tR9wY4zA6cE1gH5jM0bN8dF2sK7q"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24
	}
}

type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug / info / warn / error
	Output     string `yaml:"output"`      // console / file / both
	File       string `yaml:"file"`        // 日志文件路径
	MaxSize    int    `yaml:"max_size"`    // 单个文件最大大小（MB）
	MaxBackups int    `yaml:"max_backups"` // 保留的旧日志文件数量
	MaxAge     int    `yaml:"max_age"`     // 保留日志的最大天数
	Compress   bool   `yaml:"compress"`    // 是否压缩旧日志
}

// LDAPConfig Active Directory 配置
type LDAPConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	UseSSL        bool   `yaml:"use_ssl"`
	SkipTLSVerify bool   `yaml:"skip_tls_verify"`
	BindDN        string `yaml:"bind_dn"`
	BindPassword  string `yaml:"bind_password"`
	BaseDN        string `yaml:"base_dn"`
	UserFilter    string `yaml:"user_filter"` // 例如: (sAMAccountName={username})

	// OrgUnitFilter 同步组织架构时使用的过滤器
	OrgUnitFilter string `yaml:"org_unit_filter"`

	EmailAttribute      string `yaml:"email_attribute"`
	FullNameAttribute   string `yaml:"full_name_attribute"`
	MemberOfAttribute   string `yaml:"member_of_attribute"`
	DepartmentAttribute string `yaml:"department_attribute"`

	// RoleGroups BCM 角色 → AD 组 DN 映射，启动时加载，运行期只读
	RoleGroups map[string]string `yaml:"role_groups"`

	// SyncInterval 组织架构自动同步周期（分钟），0 表示只手动同步
	SyncInterval int `yaml:"sync_interval"`
}

// SetDefaults 设置 LDAP 默认值
func (c *LDAPConfig) SetDefaults() {
	if c.Port == 0 {
		if c.UseSSL {
			c.Port = 636
		} else {
			c.Port = 389
		}
	}
	if c.UserFilter == "" {
		c.UserFilter = "(sAMAccountName={username})"
	}
	if c.OrgUnitFilter == "" {
		c.OrgUnitFilter = "(objectClass=organizationalUnit)"
	}
	if c.EmailAttribute == "" {
		c.EmailAttribute = "mail"
	}
	if c.FullNameAttribute == "" {
		c.FullNameAttribute = "displayName"
	}
	if c.MemberOfAttribute == "" {
		c.MemberOfAttribute = "memberOf"
	}
	if c.DepartmentAttribute == "" {
		c.DepartmentAttribute = "department"
	}
}

// Validate 验证 LDAP 配置
func (c *LDAPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Host == "" || c.BindDN == "" || c.BaseDN == "" {
		return fmt.Errorf("ldap host, bind_dn and base_dn are required when enabled=true")
	}
	return nil
}

// DefaultRoleChain 默认审批链（从低到高）
var DefaultRoleChain = []string{"Process Owner", "Department Head", "Organization Head", "Admin"}

// ApprovalConfig 审批流配置
type ApprovalConfig struct {
	// RoleChain 角色层级，从低到高，最后一个为最高角色
	RoleChain []string `yaml:"role_chain"`
}

// SetDefaults 设置审批默认值
func (c *ApprovalConfig) SetDefaults() {
	if len(c.RoleChain) == 0 {
		c.RoleChain = append([]string(nil), DefaultRoleChain...)
	}
}

// NotificationConfig 审批通知配置
type NotificationConfig struct {
	FeishuWebhook   string `yaml:"feishu_webhook"`
	FeishuSecret    string `yaml:"feishu_secret"`
	DingTalkWebhook string `yaml:"dingtalk_webhook"`
	DingTalkSecret  string `yaml:"dingtalk_secret"`
	WeChatWebhook   string `yaml:"wechat_webhook"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析配置内容并应用环境变量覆盖
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	config.Server.SetDefaults()
	config.Database.SetDefaults()
	config.Redis.SetDefaults()
	config.Security.SetDefaults()
	config.LDAP.SetDefaults()
	config.Approval.SetDefaults()

	if err := config.Redis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}
	if err := config.LDAP.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ldap config: %w", err)
	}

	GlobalConfig = &config
	return &config, nil
}

// applyEnvOverrides 支持通过环境变量覆盖配置（容器部署时使用）
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.APIPort = port
		}
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		config.Database.Driver = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		config.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		config.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		config.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		config.Database.DBName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		config.Database.SSLMode = v
	}

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			config.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		config.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.Redis.Password = v
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Security.JWTSecret = v
	}

	if v := os.Getenv("LDAP_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			config.LDAP.Enabled = enabled
		}
	}
	if v := os.Getenv("LDAP_HOST"); v != "" {
		config.LDAP.Host = v
	}
	if v := os.Getenv("LDAP_BIND_PASSWORD"); v != "" {
		config.LDAP.BindPassword = v
	}

	// 逗号分隔，例如 "Process Owner,Department Head,Admin"
	if v := os.Getenv("APPROVAL_ROLE_CHAIN"); v != "" {
		var chain []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				chain = append(chain, name)
			}
		}
		config.Approval.RoleChain = chain
	}
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// SetDefaults 设置默认值
func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" || c.Driver == "postgresql" {
		c.Driver = "postgres"
	}
	if c.Port == 0 {
		if c.Driver == "mysql" {
			c.Port = 3306
		} else {
			c.Port = 5432
		}
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.Driver == "sqlite" && c.DBName == "" {
		c.DBName = "bcm.db"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 3600 // 1 hour
	}
}
