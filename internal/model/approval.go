package model

import (
	"time"

	"gorm.io/datatypes"
)

// Role 审批层级中的角色名称（例如 "Department Head"）
type Role string

// 默认审批链中的角色
const (
	RoleProcessOwner     Role = "Process Owner"
	RoleDepartmentHead   Role = "Department Head"
	RoleOrganizationHead Role = "Organization Head"
	RoleAdmin            Role = "Admin"
)

// RequestStatus 审批请求状态
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"  // 待审批
	RequestStatusApproved RequestStatus = "approved" // 已批准（终态）
	RequestStatusRejected RequestStatus = "rejected" // 已拒绝（终态）
)

// IsTerminal 是否为终态
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// Decision 审批决定
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Valid 是否为合法的审批决定
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// RequestType 变更请求类型
type RequestType string

const (
	RequestTypeClauseEdit        RequestType = "clause_edit"        // 条款修订
	RequestTypeFrameworkAddition RequestType = "framework_addition" // 新增合规框架
	RequestTypeRiskAssessment    RequestType = "risk_assessment"    // 风险评估变更
	RequestTypeBIAUpdate         RequestType = "bia_update"         // 业务影响分析更新
	RequestTypeRecoveryStrategy  RequestType = "recovery_strategy"  // 恢复策略
	RequestTypeProcedureDocument RequestType = "procedure_document" // 程序文件
)

// RequestTypes 所有支持的请求类型
var RequestTypes = []RequestType{
	RequestTypeClauseEdit,
	RequestTypeFrameworkAddition,
	RequestTypeRiskAssessment,
	RequestTypeBIAUpdate,
	RequestTypeRecoveryStrategy,
	RequestTypeProcedureDocument,
}

// Valid 是否为已知类型
func (t RequestType) Valid() bool {
	for _, known := range RequestTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ApprovalRequest 审批请求
type ApprovalRequest struct {
	ID                  string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Type                RequestType    `json:"type" gorm:"type:varchar(50);not null;index"`
	Title               string         `json:"title" gorm:"type:varchar(255);not null"`
	Payload             datatypes.JSON `json:"payload" gorm:"type:json"` // 变更内容，对审批流不透明
	SubmittedBy         string         `json:"submitted_by" gorm:"type:varchar(36);not null;index"`
	SubmitterRole       Role           `json:"submitter_role" gorm:"type:varchar(50);not null"`
	CurrentApproverRole Role           `json:"current_approver_role" gorm:"type:varchar(50);not null;index"`
	Status              RequestStatus  `json:"status" gorm:"type:varchar(20);default:pending;not null;index"`
	// Version 每次状态变更递增，用于条件更新防止并发重复处理
	Version   int       `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 审批历史由 approval_steps 与 approval_escalations 派生，不落库
	ApprovalHistory []ApprovalHistoryEntry `json:"approval_history" gorm:"-"`

	Steps       []ApprovalStep       `json:"-" gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	Escalations []ApprovalEscalation `json:"-" gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
}

func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

// ApprovalStep 审批记录，只增不改
type ApprovalStep struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RequestID  string    `json:"request_id" gorm:"type:varchar(36);not null;index"`
	Role       Role      `json:"role" gorm:"type:varchar(50);not null"`
	ApproverID string    `json:"approver_id" gorm:"type:varchar(36);not null;index"`
	Decision   Decision  `json:"decision" gorm:"type:varchar(20);not null;index"`
	Comments   string    `json:"comments" gorm:"type:text"`
	Timestamp  time.Time `json:"timestamp" gorm:"not null;index"`
}

func (ApprovalStep) TableName() string {
	return "approval_steps"
}

// ApprovalEscalation 管理员升级记录（非审批决定）
type ApprovalEscalation struct {
	ID           string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RequestID    string        `json:"request_id" gorm:"type:varchar(36);not null;index"`
	FromRole     Role          `json:"from_role" gorm:"type:varchar(50)"`
	ToRole       Role          `json:"to_role" gorm:"type:varchar(50);not null"`
	StatusBefore RequestStatus `json:"status_before" gorm:"type:varchar(20)"`
	StatusAfter  RequestStatus `json:"status_after" gorm:"type:varchar(20)"`
	EscalatedBy  string        `json:"escalated_by" gorm:"type:varchar(36)"`
	Reason       string        `json:"reason" gorm:"type:text"`
	Timestamp    time.Time     `json:"timestamp" gorm:"not null;index"`
}

func (ApprovalEscalation) TableName() string {
	return "approval_escalations"
}

// HistoryKind 历史条目类型
type HistoryKind string

const (
	HistoryKindDecision   HistoryKind = "decision"
	HistoryKindEscalation HistoryKind = "escalation"
)

// ApprovalHistoryEntry 审批历史视图条目
type ApprovalHistoryEntry struct {
	Kind       HistoryKind `json:"kind"`
	StepID     string      `json:"step_id,omitempty"`
	Role       Role        `json:"role,omitempty"`
	ApproverID string      `json:"approver_id,omitempty"`
	Decision   Decision    `json:"decision,omitempty"`
	Comments   string      `json:"comments,omitempty"`
	FromRole   Role        `json:"from_role,omitempty"`
	ToRole     Role        `json:"to_role,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// HistoryFromStep 将审批记录转换为历史条目
func HistoryFromStep(s ApprovalStep) ApprovalHistoryEntry {
	return ApprovalHistoryEntry{
		Kind:       HistoryKindDecision,
		StepID:     s.ID,
		Role:       s.Role,
		ApproverID: s.ApproverID,
		Decision:   s.Decision,
		Comments:   s.Comments,
		Timestamp:  s.Timestamp,
	}
}

// HistoryFromEscalation 将升级记录转换为历史条目
func HistoryFromEscalation(e ApprovalEscalation) ApprovalHistoryEntry {
	return ApprovalHistoryEntry{
		Kind:       HistoryKindEscalation,
		StepID:     e.ID,
		ApproverID: e.EscalatedBy,
		Comments:   e.Reason,
		FromRole:   e.FromRole,
		ToRole:     e.ToRole,
		Timestamp:  e.Timestamp,
	}
}

// CreateApprovalRequest 创建审批请求
type CreateApprovalRequest struct {
	Type    RequestType    `json:"type" binding:"required"`
	Title   string         `json:"title" binding:"required"`
	Payload datatypes.JSON `json:"payload"`
}

// ApprovalDecisionRequest 提交审批决定
type ApprovalDecisionRequest struct {
	Decision Decision `json:"decision" binding:"required"`
	Comments string   `json:"comments"`
}

// EscalateApprovalRequest 升级审批请求
type EscalateApprovalRequest struct {
	TargetRole Role   `json:"target_role" binding:"required"`
	Reason     string `json:"reason"`
	// ReopenStatus 可选，显式传入 "pending" 时同时重置状态
	ReopenStatus RequestStatus `json:"reopen_status"`
}

// ApprovalRequestDetail 审批详情（附带当前用户是否可审批）
type ApprovalRequestDetail struct {
	ApprovalRequest
	CanApprove bool `json:"can_approve"`
}
