package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fisker/bcm-backend/internal/model"
)

type fakeSyncService struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSyncService) SyncFromDirectory() (*model.OrganizationSyncResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &model.OrganizationSyncResult{Total: 2, Created: 1, Updated: 1}, nil
}

func TestRunOnce(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"同步成功", nil},
		{"同步失败", errors.New("ldap unavailable")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSyncService{err: tt.err}
			s := NewOrgSyncScheduler(svc, nil, 5)
			s.RunOnce()
			assert.Equal(t, int32(1), svc.calls.Load())
		})
	}
}

func TestNewOrgSyncScheduler_DefaultInterval(t *testing.T) {
	assert.Equal(t, 60*time.Minute, NewOrgSyncScheduler(&fakeSyncService{}, nil, 0).interval)
	assert.Equal(t, 15*time.Minute, NewOrgSyncScheduler(&fakeSyncService{}, nil, 15).interval)
}

func TestStartStop(t *testing.T) {
	svc := &fakeSyncService{}
	s := NewOrgSyncScheduler(svc, nil, 60)
	s.interval = 10 * time.Millisecond

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool { return svc.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	stopped := svc.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, svc.calls.Load())
}
