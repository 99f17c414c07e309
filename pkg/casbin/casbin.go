package casbin

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v3"
	casbinmodel "github.com/casbin/casbin/v3/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	rediswatcher "github.com/casbin/redis-watcher/v2"
	"gorm.io/gorm"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/pkg/logger"
	pkgredis "github.com/fisker/bcm-backend/pkg/redis"
)

var (
	enforcer   *casbin.SyncedCachedEnforcer
	enforcerMu sync.RWMutex
)

// 所有角色共有的接口权限（挂在最低角色上，高级角色通过 g 规则继承）
var memberPolicies = [][]string{
	{"/approval-requests", "GET|POST"},
	{"/approval-requests/pending", "GET"},
	{"/approval-requests/stats", "GET"},
	{"/approval-requests/:id", "GET"},
	{"/approval-requests/:id/decision", "POST"},
	{"/roles/hierarchy", "GET"},
	{"/organizations/tree", "GET"},
}

// 仅最高角色拥有的管理接口
var adminPolicies = [][]string{
	{"/approval-requests/:id/escalate", "POST"},
	{"/users", "GET|POST"},
	{"/users/:id/role", "PUT"},
	{"/users/:id/status", "PUT"},
	{"/organizations/sync", "POST"},
}

// NewModel 权限模型：角色继承 + 路径匹配 + 方法正则
func NewModel() casbinmodel.Model {
	m := casbinmodel.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act")
	m.AddDef("g", "g", "_, _")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", "g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)")
	return m
}

// NewEnforcer 创建使用 GORM 适配器（casbin_rule 表）的执行器
func NewEnforcer(db *gorm.DB) (*casbin.SyncedCachedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("初始化Casbin适配器失败: %w", err)
	}

	// SyncedCachedEnforcer 只保证单机线程安全，多实例同步依赖 Watcher
	e, err := casbin.NewSyncedCachedEnforcer(NewModel(), adapter)
	if err != nil {
		return nil, fmt.Errorf("创建Casbin执行器失败: %w", err)
	}
	e.SetExpireTime(60 * 60)

	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("加载Casbin策略失败: %w", err)
	}
	return e, nil
}

// Init 初始化全局执行器并按审批层级写入默认策略
func Init(db *gorm.DB, roles []model.Role) error {
	e, err := NewEnforcer(db)
	if err != nil {
		logger.Errorf("%v", err)
		return err
	}

	if err := SeedRolePolicies(e, roles); err != nil {
		return err
	}

	setupWatcher(e)

	enforcerMu.Lock()
	enforcer = e
	enforcerMu.Unlock()

	logger.Info("Casbin权限管理器初始化成功")
	return nil
}

// setupWatcher Redis 可用时配置 Watcher，实现多实例策略同步
func setupWatcher(e *casbin.SyncedCachedEnforcer) {
	if !pkgredis.IsEnabled() {
		logger.Info("Redis未启用，使用数据库同步模式（权限变更后需要调用ReloadPolicy）")
		return
	}

	redisAddr := pkgredis.GetClient().Options().Addr
	watcher, err := rediswatcher.NewWatcher(redisAddr, rediswatcher.WatcherOptions{})
	if err != nil {
		logger.Warnf("创建Redis Watcher失败: %v，将使用数据库同步模式（降级）", err)
		return
	}
	if err := e.SetWatcher(watcher); err != nil {
		logger.Warnf("设置Watcher失败: %v，将使用数据库同步模式（降级）", err)
		return
	}

	watcher.SetUpdateCallback(func(msg string) {
		logger.Infof("收到策略更新通知: %s，重新加载策略", msg)
		if err := e.LoadPolicy(); err != nil {
			logger.Errorf("重新加载策略失败: %v", err)
			return
		}
		e.InvalidateCache()
	})
	logger.Infof("Redis Watcher已配置（地址: %s），支持多实例权限同步", redisAddr)
}

// SeedRolePolicies 写入默认策略：高级角色继承低级角色，最低角色拥有成员接口，最高角色拥有管理接口。
// 已存在的规则不会重复写入。
func SeedRolePolicies(e *casbin.SyncedCachedEnforcer, roles []model.Role) error {
	if len(roles) == 0 {
		return fmt.Errorf("role hierarchy is empty")
	}

	lowest := string(roles[0])
	top := string(roles[len(roles)-1])

	var policies [][]string
	for _, p := range memberPolicies {
		policies = append(policies, []string{lowest, p[0], p[1]})
	}
	for _, p := range adminPolicies {
		policies = append(policies, []string{top, p[0], p[1]})
	}
	for _, p := range policies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return fmt.Errorf("添加策略失败 %v: %w", p, err)
		}
	}

	for i := 1; i < len(roles); i++ {
		if _, err := e.AddGroupingPolicy(string(roles[i]), string(roles[i-1])); err != nil {
			return fmt.Errorf("添加角色继承失败 %s -> %s: %w", roles[i], roles[i-1], err)
		}
	}

	e.InvalidateCache()
	return nil
}

// GetEnforcer 获取全局执行器（未初始化时返回 nil）
func GetEnforcer() *casbin.SyncedCachedEnforcer {
	enforcerMu.RLock()
	defer enforcerMu.RUnlock()
	return enforcer
}

// SetEnforcer 替换全局执行器（测试用）
func SetEnforcer(e *casbin.SyncedCachedEnforcer) {
	enforcerMu.Lock()
	enforcer = e
	enforcerMu.Unlock()
}

// ReloadPolicy 重新加载策略
func ReloadPolicy() error {
	e := GetEnforcer()
	if e == nil {
		return nil
	}
	if err := e.LoadPolicy(); err != nil {
		return err
	}
	e.InvalidateCache()
	return nil
}

// Enforce 检查权限
// sub: 角色名称
// obj: 资源路径（去掉 /api 前缀）
// act: HTTP 方法
func Enforce(sub string, obj string, act string) (bool, error) {
	e := GetEnforcer()
	if e == nil {
		return false, nil
	}
	return e.Enforce(sub, obj, act)
}
