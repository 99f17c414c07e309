package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Redis 未启用时锁退化为空操作
func TestRedisLock_NilClient(t *testing.T) {
	lock := NewRedisLock(nil, "bcm:lock:test", time.Second)

	acquired, err := lock.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.NoError(t, lock.Unlock())
}

func TestRequestLocker_NilClient(t *testing.T) {
	locker := NewRequestLocker(nil, "bcm:lock:", 5*time.Second)

	release, err := locker.Acquire(context.Background(), "req-1")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
	release()

	// 同一 key 可立即再次获取
	release, err = locker.Acquire(context.Background(), "req-1")
	require.NoError(t, err)
	release()
}
