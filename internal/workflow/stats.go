package workflow

import (
	"context"
	"fmt"

	"github.com/fisker/bcm-backend/internal/model"
)

// UserStatistics 用户审批统计（仪表盘）
type UserStatistics struct {
	UserID           string                      `json:"user_id"`
	Role             model.Role                  `json:"role"`
	SubmittedTotal   int                         `json:"submitted_total"`
	SubmittedPending int                         `json:"submitted_pending"`
	Approved         int                         `json:"approved"`
	Rejected         int                         `json:"rejected"`
	ByStatus         map[model.RequestStatus]int `json:"by_status"`
	ByType           map[model.RequestType]int   `json:"by_type"`
	DecisionsMade    map[model.Decision]int64    `json:"decisions_made"`
	AwaitingMe       int                         `json:"awaiting_me"`
	Permissions      PermissionSummary           `json:"permissions"`
}

// PermissionSummary 按角色级别推导的权限摘要
type PermissionSummary struct {
	CanSubmit   bool `json:"can_submit"`
	CanApprove  bool `json:"can_approve"`
	CanEscalate bool `json:"can_escalate"`
	CanViewAll  bool `json:"can_view_all"`
}

// GetUserStatistics 只读统计，不产生任何副作用
func (e *Engine) GetUserStatistics(ctx context.Context, userID string) (*UserStatistics, error) {
	user, err := e.findUser(userID)
	if err != nil {
		return nil, err
	}

	submitted, err := e.store.FindBySubmitter(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load submitted requests: %w", err)
	}

	stats := &UserStatistics{
		UserID:         user.ID,
		Role:           user.Role,
		SubmittedTotal: len(submitted),
		ByStatus:       make(map[model.RequestStatus]int),
		ByType:         make(map[model.RequestType]int),
	}
	for _, r := range submitted {
		stats.ByStatus[r.Status]++
		stats.ByType[r.Type]++
		switch r.Status {
		case model.RequestStatusApproved:
			stats.Approved++
		case model.RequestStatusRejected:
			stats.Rejected++
		case model.RequestStatusPending:
			stats.SubmittedPending++
		}
	}

	decisions, err := e.store.CountDecisionsByApprover(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count decisions: %w", err)
	}
	stats.DecisionsMade = map[model.Decision]int64{
		model.DecisionApproved: decisions[model.DecisionApproved],
		model.DecisionRejected: decisions[model.DecisionRejected],
	}

	if e.hierarchy.IsKnown(user.Role) {
		awaiting, err := e.store.FindPendingByRole(ctx, user.Role)
		if err != nil {
			return nil, fmt.Errorf("load pending approvals: %w", err)
		}
		stats.AwaitingMe = len(awaiting)
	}

	stats.Permissions = e.Permissions(user)
	return stats, nil
}

// Permissions 根据用户角色在层级中的位置推导权限。未知角色不具备任何审批权限。
func (e *Engine) Permissions(user *model.User) PermissionSummary {
	summary := PermissionSummary{CanSubmit: user.IsActive()}

	level, err := e.hierarchy.Level(user.Role)
	if err != nil {
		summary.CanSubmit = false
		return summary
	}
	lowest, _ := e.hierarchy.Level(e.hierarchy.Lowest())
	top, _ := e.hierarchy.Level(e.hierarchy.Top())

	viewAllLevel := top - 1
	if lvl, err := e.hierarchy.Level(model.RoleOrganizationHead); err == nil {
		viewAllLevel = lvl
	}
	if viewAllLevel < lowest {
		viewAllLevel = lowest
	}

	summary.CanApprove = level >= lowest
	summary.CanEscalate = user.Role == e.hierarchy.Top()
	summary.CanViewAll = level >= viewAllLevel
	return summary
}
