package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fisker/bcm-backend/internal/model"
)

var errConditionNotMet = errors.New("conditional update matched no rows")

type ApprovalRequestRepository struct {
	db *gorm.DB
}

func NewApprovalRequestRepository(db *gorm.DB) *ApprovalRequestRepository {
	return &ApprovalRequestRepository{db: db}
}

// CreateRequest 创建审批请求
func (r *ApprovalRequestRepository) CreateRequest(ctx context.Context, req *model.ApprovalRequest) error {
	return r.db.WithContext(ctx).Omit("Steps", "Escalations").Create(req).Error
}

// FindRequestByID 根据ID查找审批请求
func (r *ApprovalRequestRepository) FindRequestByID(ctx context.Context, id string) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ApplyDecision 事务内：条件更新请求，再写入审批记录。
// 条件不满足（已被其他人处理或状态变化）时回滚并返回 false。
func (r *ApprovalRequestRepository) ApplyDecision(ctx context.Context, req *model.ApprovalRequest, step *model.ApprovalStep, expectedRole model.Role, expectedVersion int) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ApprovalRequest{}).
			Where("id = ? AND status = ? AND current_approver_role = ? AND version = ?",
				req.ID, model.RequestStatusPending, expectedRole, expectedVersion).
			Updates(map[string]interface{}{
				"status":                req.Status,
				"current_approver_role": req.CurrentApproverRole,
				"version":               req.Version,
				"updated_at":            req.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errConditionNotMet
		}
		return tx.Create(step).Error
	})
	return appliedResult(err)
}

// ApplyEscalation 事务内：按版本条件更新请求并写入升级记录（不校验状态）
func (r *ApprovalRequestRepository) ApplyEscalation(ctx context.Context, req *model.ApprovalRequest, esc *model.ApprovalEscalation, expectedVersion int) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ApprovalRequest{}).
			Where("id = ? AND version = ?", req.ID, expectedVersion).
			Updates(map[string]interface{}{
				"status":                req.Status,
				"current_approver_role": req.CurrentApproverRole,
				"version":               req.Version,
				"updated_at":            req.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errConditionNotMet
		}
		return tx.Create(esc).Error
	})
	return appliedResult(err)
}

func appliedResult(err error) (bool, error) {
	if errors.Is(err, errConditionNotMet) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindPendingByRole 等待某角色审批的请求
func (r *ApprovalRequestRepository) FindPendingByRole(ctx context.Context, role model.Role) ([]model.ApprovalRequest, error) {
	var requests []model.ApprovalRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND current_approver_role = ?", model.RequestStatusPending, role).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

// FindBySubmitter 用户提交的请求
func (r *ApprovalRequestRepository) FindBySubmitter(ctx context.Context, userID string) ([]model.ApprovalRequest, error) {
	var requests []model.ApprovalRequest
	err := r.db.WithContext(ctx).
		Where("submitted_by = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// FindSubmittedOrAwaiting 用户提交的请求或等待其角色审批的请求
func (r *ApprovalRequestRepository) FindSubmittedOrAwaiting(ctx context.Context, userID string, role model.Role) ([]model.ApprovalRequest, error) {
	var requests []model.ApprovalRequest
	err := r.db.WithContext(ctx).
		Where("submitted_by = ? OR (status = ? AND current_approver_role = ?)",
			userID, model.RequestStatusPending, role).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// FindAll 按条件分页查询（可查看全部请求的角色使用）
func (r *ApprovalRequestRepository) FindAll(ctx context.Context, status model.RequestStatus, requestType model.RequestType, page, pageSize int) ([]model.ApprovalRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.ApprovalRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if requestType != "" {
		query = query.Where("type = ?", requestType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []model.ApprovalRequest
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error
	return requests, total, err
}

// FindSteps 审批记录，按时间正序
func (r *ApprovalRequestRepository) FindSteps(ctx context.Context, requestID string) ([]model.ApprovalStep, error) {
	var steps []model.ApprovalStep
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("timestamp ASC").
		Find(&steps).Error
	return steps, err
}

// FindEscalations 升级记录，按时间正序
func (r *ApprovalRequestRepository) FindEscalations(ctx context.Context, requestID string) ([]model.ApprovalEscalation, error) {
	var escalations []model.ApprovalEscalation
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("timestamp ASC").
		Find(&escalations).Error
	return escalations, err
}

// CountDecisionsByApprover 按审批决定统计某用户的审批记录数
func (r *ApprovalRequestRepository) CountDecisionsByApprover(ctx context.Context, approverID string) (map[model.Decision]int64, error) {
	var rows []struct {
		Decision model.Decision
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&model.ApprovalStep{}).
		Select("decision, COUNT(*) AS count").
		Where("approver_id = ?", approverID).
		Group("decision").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.Decision]int64, len(rows))
	for _, row := range rows {
		counts[row.Decision] = row.Count
	}
	return counts, nil
}
