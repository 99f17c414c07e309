package scheduler

import (
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/pkg/distributed"
	"github.com/fisker/bcm-backend/pkg/logger"
)

const orgSyncLockKey = "bcm:lock:org-sync"

// OrgSyncService 组织架构同步，由 OrganizationService 实现
type OrgSyncService interface {
	SyncFromDirectory() (*model.OrganizationSyncResult, error)
}

// OrgSyncScheduler 定时从 AD 同步组织架构。
// 多实例部署时通过 Redis 锁保证同一周期只有一个实例执行。
type OrgSyncScheduler struct {
	service  OrgSyncService
	client   *redis.Client // nil 表示单实例模式
	interval time.Duration

	mu       sync.Mutex
	ticker   *time.Ticker
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewOrgSyncScheduler intervalMinutes <= 0 时默认 60 分钟
func NewOrgSyncScheduler(service OrgSyncService, client *redis.Client, intervalMinutes int) *OrgSyncScheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	return &OrgSyncScheduler{
		service:  service,
		client:   client,
		interval: time.Duration(intervalMinutes) * time.Minute,
	}
}

// Start 启动定时任务，重复调用无效果
func (s *OrgSyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.interval)
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.ticker, s.stopChan)

	logger.Infof("[OrgSyncScheduler] Started, interval: %v", s.interval)
}

func (s *OrgSyncScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-ticker.C:
			s.RunOnce()
		case <-stop:
			return
		}
	}
}

// RunOnce 执行一次同步，未抢到锁时跳过
func (s *OrgSyncScheduler) RunOnce() {
	if s.client != nil {
		// 锁过期时间与周期一致，不主动释放，防止其他实例在同一周期内重复同步
		lock := distributed.NewRedisLock(s.client, orgSyncLockKey, s.interval)
		acquired, err := lock.TryLock()
		if err != nil {
			logger.Warnf("[OrgSyncScheduler] Failed to acquire sync lock: %v", err)
			return
		}
		if !acquired {
			logger.Debugf("[OrgSyncScheduler] Sync is running on another instance, skipping")
			return
		}
		defer lock.StopRenewal()
	}

	result, err := s.service.SyncFromDirectory()
	if err != nil {
		logger.Errorf("[OrgSyncScheduler] Sync failed: %v", err)
		return
	}
	logger.Infof("[OrgSyncScheduler] Sync completed: total=%d, created=%d, updated=%d",
		result.Total, result.Created, result.Updated)
}

// Stop 停止定时任务并等待正在执行的同步结束
func (s *OrgSyncScheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stopChan)
	s.ticker = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Infof("[OrgSyncScheduler] Stopped")
	case <-time.After(10 * time.Second):
		logger.Warnf("[OrgSyncScheduler] Timeout waiting for sync task to stop")
	}
}
