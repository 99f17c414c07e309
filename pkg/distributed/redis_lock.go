package distributed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/fisker/bcm-backend/pkg/logger"
)

// ErrLockTimeout 在等待时间内未获取到锁
var ErrLockTimeout = errors.New("timed out waiting for lock")

const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

const renewScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("expire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// RedisLock Redis 分布式锁
type RedisLock struct {
	client   *redis.Client
	key      string
	value    string
	expiry   time.Duration
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewRedisLock 创建 Redis 分布式锁
// 如果client为nil（Redis未启用），TryLock 返回 false，但不影响主流程
func NewRedisLock(client *redis.Client, key string, expiry time.Duration) *RedisLock {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisLock{
		client:   client,
		key:      key,
		value:    uuid.New().String(), // 使用 UUID 作为锁的值，防止误释放
		expiry:   expiry,
		ctx:      ctx,
		cancelFn: cancel,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *RedisLock) TryLock() (bool, error) {
	if l.client == nil {
		return false, nil
	}

	// SET NX EX：key 不存在时设置并附带过期时间
	result, err := l.client.SetNX(l.ctx, l.key, l.value, l.expiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if result {
		go l.autoRenew()
	}
	return result, nil
}

// Lock 阻塞获取锁，直到成功、ctx 结束或超过 wait
func (l *RedisLock) Lock(ctx context.Context, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	backoff := 20 * time.Millisecond

	for {
		ok, err := l.TryLock()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, l.key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// Unlock 释放锁
func (l *RedisLock) Unlock() error {
	// 无论成功与否都停止自动续期
	defer l.cancelFn()

	if l.client == nil {
		return nil
	}

	// 使用 context.Background()，需要在取消上下文之前完成解锁
	result, err := l.client.Eval(context.Background(), unlockScript, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == int64(0) {
		logger.Warnf("[RedisLock] Lock %s was not held by this instance", l.key)
	}
	return nil
}

// StopRenewal 停止自动续期但保留 key，锁在 expiry 后自然过期
func (l *RedisLock) StopRenewal() {
	l.cancelFn()
}

// autoRenew 自动续期锁（每隔 expiry/3 续期一次）
func (l *RedisLock) autoRenew() {
	ticker := time.NewTicker(l.expiry / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result, err := l.client.Eval(l.ctx, renewScript, []string{l.key}, l.value, int(l.expiry.Seconds())).Result()
			if err != nil {
				if l.ctx.Err() == nil {
					logger.Warnf("[RedisLock] Failed to renew lock %s: %v", l.key, err)
				}
				return
			}
			if result == int64(0) {
				logger.Warnf("[RedisLock] Lost lock %s, stopping auto-renew", l.key)
				return
			}
		case <-l.ctx.Done():
			return
		}
	}
}

// RequestLocker 以审批请求为粒度的互斥锁。client 为 nil 时不加锁，
// 一致性由数据库条件更新保证。
type RequestLocker struct {
	client *redis.Client
	prefix string
	expiry time.Duration
	wait   time.Duration
}

func NewRequestLocker(client *redis.Client, prefix string, expiry time.Duration) *RequestLocker {
	return &RequestLocker{
		client: client,
		prefix: prefix,
		expiry: expiry,
		wait:   expiry,
	}
}

// Acquire 获取锁，返回的 release 可安全重复调用
func (r *RequestLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if r.client == nil {
		return func() {}, nil
	}

	lock := NewRedisLock(r.client, r.prefix+key, r.expiry)
	if err := lock.Lock(ctx, r.wait); err != nil {
		lock.cancelFn()
		return nil, err
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if err := lock.Unlock(); err != nil {
			logger.Warnf("[RedisLock] %v", err)
		}
	}, nil
}
