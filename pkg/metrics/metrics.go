package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Server Metrics

	// APIRequestsTotal API请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration API请求处理时长
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Approval Workflow Metrics

	// ApprovalRequestsCreated 提交的审批请求数
	ApprovalRequestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_requests_created_total",
			Help: "Total number of approval requests submitted",
		},
		[]string{"type"},
	)

	// ApprovalDecisions 审批决定数
	ApprovalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of approval decisions recorded",
		},
		[]string{"role", "decision"},
	)

	// ApprovalEscalations 管理员升级次数
	ApprovalEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_escalations_total",
			Help: "Total number of administrative escalations",
		},
		[]string{"target_role"},
	)

	// ApprovalAuthorizationFailures 角色不匹配的审批尝试
	ApprovalAuthorizationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_authorization_failures_total",
			Help: "Total number of decisions rejected because the approver role did not match",
		},
	)

	// OrganizationSyncs AD 组织架构同步次数
	OrganizationSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "organization_syncs_total",
			Help: "Total number of organization hierarchy syncs from the directory",
		},
		[]string{"result"}, // result: success, failure
	)
)

func RecordRequestCreated(requestType string) {
	ApprovalRequestsCreated.WithLabelValues(requestType).Inc()
}

func RecordDecision(role, decision string) {
	ApprovalDecisions.WithLabelValues(role, decision).Inc()
}

func RecordEscalation(targetRole string) {
	ApprovalEscalations.WithLabelValues(targetRole).Inc()
}

func RecordAuthorizationFailure() {
	ApprovalAuthorizationFailures.Inc()
}

func RecordOrganizationSync(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	OrganizationSyncs.WithLabelValues(result).Inc()
}
