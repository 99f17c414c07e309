package approval

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fisker/bcm-backend/internal/workflow"
	"github.com/fisker/bcm-backend/pkg/distributed"
)

func TestWorkflowErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"请求不存在", workflow.ErrRequestNotFound, http.StatusNotFound},
		{"用户不存在", workflow.ErrUserNotFound, http.StatusNotFound},
		{"无权审批", workflow.ErrNotAuthorized, http.StatusForbidden},
		{"用户已禁用", workflow.ErrUserInactive, http.StatusForbidden},
		{"非待审批状态", fmt.Errorf("%w: status is approved", workflow.ErrNotPending), http.StatusConflict},
		{"并发修改", workflow.ErrConcurrentWrite, http.StatusConflict},
		{"锁等待超时", fmt.Errorf("acquire decision lock: %w", distributed.ErrLockTimeout), http.StatusConflict},
		{"未知角色", fmt.Errorf("%w: %q", workflow.ErrUnknownRole, "Board"), http.StatusBadRequest},
		{"请求参数无效", workflow.ErrInvalidRequest, http.StatusBadRequest},
		{"审批决定无效", workflow.ErrInvalidDecision, http.StatusBadRequest},
		{"其他错误", errors.New("database is locked"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workflowErrorStatus(tt.err))
		})
	}
}
