package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/pkg/logger"
	"github.com/fisker/bcm-backend/pkg/metrics"
)

// RequestStore 审批请求持久化
type RequestStore interface {
	CreateRequest(ctx context.Context, req *model.ApprovalRequest) error
	// FindRequestByID 不存在时返回 gorm.ErrRecordNotFound
	FindRequestByID(ctx context.Context, id string) (*model.ApprovalRequest, error)
	// ApplyDecision 在同一事务中写入审批记录并条件更新请求，
	// 条件为 status=pending、current_approver_role=expectedRole、version=expectedVersion。
	// 条件不满足时返回 applied=false 且不写入审批记录。
	ApplyDecision(ctx context.Context, req *model.ApprovalRequest, step *model.ApprovalStep, expectedRole model.Role, expectedVersion int) (applied bool, err error)
	// ApplyEscalation 写入升级记录并更新请求，expectedVersion 不匹配时返回 applied=false
	ApplyEscalation(ctx context.Context, req *model.ApprovalRequest, esc *model.ApprovalEscalation, expectedVersion int) (applied bool, err error)
	FindPendingByRole(ctx context.Context, role model.Role) ([]model.ApprovalRequest, error)
	FindBySubmitter(ctx context.Context, userID string) ([]model.ApprovalRequest, error)
	FindSubmittedOrAwaiting(ctx context.Context, userID string, role model.Role) ([]model.ApprovalRequest, error)
	FindSteps(ctx context.Context, requestID string) ([]model.ApprovalStep, error)
	FindEscalations(ctx context.Context, requestID string) ([]model.ApprovalEscalation, error)
	CountDecisionsByApprover(ctx context.Context, approverID string) (map[model.Decision]int64, error)
}

// UserDirectory 用户查询
type UserDirectory interface {
	// FindUserByID 不存在时返回 gorm.ErrRecordNotFound
	FindUserByID(id string) (*model.User, error)
}

// Locker 按请求串行化审批决定（可选，例如 Redis 分布式锁）
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Notifier 审批流转通知（可选）
type Notifier interface {
	NotifyApprovalEvent(ctx context.Context, event Event)
}

// EventKind 通知事件类型
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventAdvanced  EventKind = "advanced"
	EventApproved  EventKind = "approved"
	EventRejected  EventKind = "rejected"
	EventEscalated EventKind = "escalated"
)

// Event 通知内容
type Event struct {
	Kind    EventKind
	Request model.ApprovalRequest
	ActorID string
	// Comments 审批意见或升级原因
	Comments string
}

// Engine 审批工作流引擎，负责审批请求的全部状态变更与授权判断
type Engine struct {
	store     RequestStore
	users     UserDirectory
	hierarchy *Hierarchy
	locker    Locker
	notifier  Notifier
	now       func() time.Time
}

// Option 引擎可选项
type Option func(*Engine)

func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store RequestStore, users UserDirectory, hierarchy *Hierarchy, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		users:     users,
		hierarchy: hierarchy,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Hierarchy() *Hierarchy {
	return e.hierarchy
}

// CreateRequestInput 创建审批请求的输入
type CreateRequestInput struct {
	Type    model.RequestType
	Title   string
	Payload datatypes.JSON
}

// EscalateOptions 升级选项
type EscalateOptions struct {
	Reason string
	// ReopenStatus 为 pending 时同时把状态重置为 pending，为空时保持原状态
	ReopenStatus model.RequestStatus
}

// CreateRequest 提交审批请求，首个审批角色为提交人角色的上一级
func (e *Engine) CreateRequest(ctx context.Context, in CreateRequestInput, submittedBy string) (*model.ApprovalRequest, error) {
	title := strings.TrimSpace(in.Title)
	if in.Type == "" || title == "" {
		return nil, fmt.Errorf("%w: type and title are required", ErrInvalidRequest)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unsupported request type %q", ErrInvalidRequest, in.Type)
	}

	submitter, err := e.activeUser(submittedBy)
	if err != nil {
		return nil, err
	}

	firstApprover, _, err := e.hierarchy.NextRole(submitter.Role)
	if err != nil {
		return nil, err
	}

	now := e.now()
	req := &model.ApprovalRequest{
		ID:                  uuid.New().String(),
		Type:                in.Type,
		Title:               title,
		Payload:             in.Payload,
		SubmittedBy:         submitter.ID,
		SubmitterRole:       submitter.Role,
		CurrentApproverRole: firstApprover,
		Status:              model.RequestStatusPending,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
		ApprovalHistory:     []model.ApprovalHistoryEntry{},
	}
	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create approval request: %w", err)
	}

	logger.Infof("Approval request created: id=%s, type=%s, submitter=%s (%s), first approver=%s",
		req.ID, req.Type, submitter.Username, submitter.Role, firstApprover)
	metrics.RecordRequestCreated(string(req.Type))
	e.notify(ctx, Event{Kind: EventCreated, Request: *req, ActorID: submitter.ID})

	return req, nil
}

// ProcessApproval 记录审批决定并推进或终结请求。
// 前置条件按顺序检查：请求存在、审批人角色匹配、请求处于待审批状态、决定合法。
func (e *Engine) ProcessApproval(ctx context.Context, requestID, approverID string, decision model.Decision, comments string) (*model.ApprovalRequest, error) {
	if e.locker != nil {
		release, err := e.locker.Acquire(ctx, "approval:decision:"+requestID)
		if err != nil {
			return nil, fmt.Errorf("acquire decision lock: %w", err)
		}
		defer release()
	}

	req, err := e.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	approver, err := e.activeUser(approverID)
	if err != nil {
		return nil, err
	}

	if req.CurrentApproverRole != approver.Role {
		logger.Warnf("Authorization failure: user %s (%s) tried to decide request %s awaiting %s",
			approver.Username, approver.Role, req.ID, req.CurrentApproverRole)
		metrics.RecordAuthorizationFailure()
		return nil, ErrNotAuthorized
	}
	if req.Status != model.RequestStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, req.Status)
	}
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	now := e.now()
	step := &model.ApprovalStep{
		ID:         uuid.New().String(),
		RequestID:  req.ID,
		Role:       approver.Role,
		ApproverID: approver.ID,
		Decision:   decision,
		Comments:   comments,
		Timestamp:  now,
	}

	expectedRole := req.CurrentApproverRole
	expectedVersion := req.Version
	kind := EventRejected

	switch decision {
	case model.DecisionApproved:
		next, atTop, err := e.hierarchy.NextRole(approver.Role)
		if err != nil {
			return nil, err
		}
		if atTop {
			req.Status = model.RequestStatusApproved
			kind = EventApproved
		} else {
			req.CurrentApproverRole = next
			kind = EventAdvanced
		}
	case model.DecisionRejected:
		req.Status = model.RequestStatusRejected
	}
	req.Version = expectedVersion + 1
	req.UpdatedAt = now

	applied, err := e.store.ApplyDecision(ctx, req, step, expectedRole, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("apply approval decision: %w", err)
	}
	if !applied {
		logger.Warnf("Approval decision on request %s lost a race (role=%s, version=%d)", req.ID, expectedRole, expectedVersion)
		return nil, fmt.Errorf("%w: request was modified concurrently", ErrNotPending)
	}

	logger.Infof("Approval request %s: %s by %s (%s), status=%s, current approver=%s",
		req.ID, decision, approver.Username, approver.Role, req.Status, req.CurrentApproverRole)
	metrics.RecordDecision(string(step.Role), string(decision))

	if err := e.loadHistory(ctx, req); err != nil {
		return nil, err
	}
	e.notify(ctx, Event{Kind: kind, Request: *req, ActorID: approver.ID, Comments: comments})
	return req, nil
}

// CanUserApproveRequest 请求待审批且当前审批角色与用户角色一致
func (e *Engine) CanUserApproveRequest(req *model.ApprovalRequest, user *model.User) bool {
	return CanUserApproveRequest(req, user)
}

func CanUserApproveRequest(req *model.ApprovalRequest, user *model.User) bool {
	if req == nil || user == nil {
		return false
	}
	return req.Status == model.RequestStatusPending && req.CurrentApproverRole == user.Role
}

// GetPendingApprovalsForUser 等待该用户角色审批的请求
func (e *Engine) GetPendingApprovalsForUser(ctx context.Context, userID string) ([]model.ApprovalRequest, error) {
	user, err := e.findUser(userID)
	if err != nil {
		return nil, err
	}
	return e.store.FindPendingByRole(ctx, user.Role)
}

// GetRequestsAccessibleToUser 用户提交的请求与等待其角色审批的请求的并集，按创建时间倒序
func (e *Engine) GetRequestsAccessibleToUser(ctx context.Context, userID string) ([]model.ApprovalRequest, error) {
	user, err := e.findUser(userID)
	if err != nil {
		return nil, err
	}
	requests, err := e.store.FindSubmittedOrAwaiting(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(requests))
	out := make([]model.ApprovalRequest, 0, len(requests))
	for _, r := range requests {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// EscalateRequest 管理员升级：无条件把当前审批角色改为 targetRole（不校验状态），
// 并记录一条升级历史。默认不修改状态，opts.ReopenStatus 为 pending 时重新打开请求。
// 操作人需为有效用户且角色为层级最高角色。
func (e *Engine) EscalateRequest(ctx context.Context, requestID string, targetRole model.Role, actorID string, opts EscalateOptions) (*model.ApprovalRequest, error) {
	if !e.hierarchy.IsKnown(targetRole) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, targetRole)
	}
	if opts.ReopenStatus != "" && opts.ReopenStatus != model.RequestStatusPending {
		return nil, fmt.Errorf("%w: reopen status must be %q", ErrInvalidRequest, model.RequestStatusPending)
	}

	if e.locker != nil {
		release, err := e.locker.Acquire(ctx, "approval:decision:"+requestID)
		if err != nil {
			return nil, fmt.Errorf("acquire decision lock: %w", err)
		}
		defer release()
	}

	req, err := e.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	actor, err := e.activeUser(actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != e.hierarchy.Top() {
		logger.Warnf("Authorization failure: user %s (%s) tried to escalate request %s, requires %s",
			actor.Username, actor.Role, req.ID, e.hierarchy.Top())
		metrics.RecordAuthorizationFailure()
		return nil, ErrNotAuthorized
	}

	now := e.now()
	statusBefore := req.Status
	statusAfter := req.Status
	if opts.ReopenStatus == model.RequestStatusPending {
		statusAfter = model.RequestStatusPending
	} else if statusBefore.IsTerminal() {
		logger.Warnf("Escalating terminal request %s (status=%s) without reopening it, status stays %s",
			req.ID, statusBefore, statusBefore)
	}

	esc := &model.ApprovalEscalation{
		ID:           uuid.New().String(),
		RequestID:    req.ID,
		FromRole:     req.CurrentApproverRole,
		ToRole:       targetRole,
		StatusBefore: statusBefore,
		StatusAfter:  statusAfter,
		EscalatedBy:  actor.ID,
		Reason:       opts.Reason,
		Timestamp:    now,
	}

	expectedVersion := req.Version
	req.CurrentApproverRole = targetRole
	req.Status = statusAfter
	req.Version = expectedVersion + 1
	req.UpdatedAt = now

	applied, err := e.store.ApplyEscalation(ctx, req, esc, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("apply escalation: %w", err)
	}
	if !applied {
		logger.Warnf("Escalation of request %s lost a race (version=%d)", req.ID, expectedVersion)
		return nil, ErrConcurrentWrite
	}

	logger.Infof("Approval request %s escalated by %s: %s -> %s (status %s -> %s)",
		req.ID, actor.Username, esc.FromRole, esc.ToRole, statusBefore, statusAfter)
	metrics.RecordEscalation(string(targetRole))

	if err := e.loadHistory(ctx, req); err != nil {
		return nil, err
	}
	e.notify(ctx, Event{Kind: EventEscalated, Request: *req, ActorID: actor.ID, Comments: opts.Reason})
	return req, nil
}

// GetRequest 查询请求并附带审批历史
func (e *Engine) GetRequest(ctx context.Context, requestID string) (*model.ApprovalRequest, error) {
	req, err := e.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.loadHistory(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// BuildHistory 合并审批记录与升级记录，按时间排序
func BuildHistory(steps []model.ApprovalStep, escalations []model.ApprovalEscalation) []model.ApprovalHistoryEntry {
	history := make([]model.ApprovalHistoryEntry, 0, len(steps)+len(escalations))
	for _, s := range steps {
		history = append(history, model.HistoryFromStep(s))
	}
	for _, esc := range escalations {
		history = append(history, model.HistoryFromEscalation(esc))
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	return history
}

func (e *Engine) loadHistory(ctx context.Context, req *model.ApprovalRequest) error {
	steps, err := e.store.FindSteps(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("load approval steps: %w", err)
	}
	escalations, err := e.store.FindEscalations(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("load escalations: %w", err)
	}
	req.ApprovalHistory = BuildHistory(steps, escalations)
	return nil
}

func (e *Engine) findRequest(ctx context.Context, id string) (*model.ApprovalRequest, error) {
	req, err := e.store.FindRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
		}
		return nil, fmt.Errorf("find approval request: %w", err)
	}
	return req, nil
}

func (e *Engine) findUser(id string) (*model.User, error) {
	user, err := e.users.FindUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (e *Engine) activeUser(id string) (*model.User, error) {
	user, err := e.findUser(id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, fmt.Errorf("%w: %s", ErrUserInactive, user.Username)
	}
	if !e.hierarchy.IsKnown(user.Role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, user.Role)
	}
	return user, nil
}

func (e *Engine) notify(ctx context.Context, event Event) {
	if e.notifier == nil {
		return
	}
	e.notifier.NotifyApprovalEvent(ctx, event)
}
