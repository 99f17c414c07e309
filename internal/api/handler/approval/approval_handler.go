package approval

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/internal/repository"
	"github.com/fisker/bcm-backend/internal/workflow"
	"github.com/fisker/bcm-backend/pkg/distributed"
)

// ApprovalHandler 审批请求接口
type ApprovalHandler struct {
	engine   *workflow.Engine
	requests *repository.ApprovalRequestRepository
	users    *repository.UserRepository
}

func NewApprovalHandler(engine *workflow.Engine, requests *repository.ApprovalRequestRepository, users *repository.UserRepository) *ApprovalHandler {
	return &ApprovalHandler{
		engine:   engine,
		requests: requests,
		users:    users,
	}
}

// CreateRequest 提交审批请求
// @Summary 提交变更审批请求
// @Tags Approval
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body model.CreateApprovalRequest true "审批请求"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Failure 403 {object} model.Response
// @Router /approval-requests [post]
func (h *ApprovalHandler) CreateRequest(c *gin.Context) {
	var req model.CreateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	created, err := h.engine.CreateRequest(c.Request.Context(), workflow.CreateRequestInput{
		Type:    req.Type,
		Title:   req.Title,
		Payload: req.Payload,
	}, c.GetString("user_id"))
	if err != nil {
		h.handleWorkflowError(c, err, "创建审批请求失败")
		return
	}

	c.JSON(http.StatusOK, model.Success(created))
}

// ListRequests 当前用户可见的审批请求
// scope=all 时（需 can_view_all 权限）按状态/类型分页查询全部请求
// @Summary 获取审批请求列表
// @Tags Approval
// @Produce json
// @Security Bearer
// @Param scope query string false "all 表示查询全部"
// @Param status query string false "状态过滤（仅 scope=all）"
// @Param type query string false "类型过滤（仅 scope=all）"
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} model.Response
// @Router /approval-requests [get]
func (h *ApprovalHandler) ListRequests(c *gin.Context) {
	userID := c.GetString("user_id")

	if c.Query("scope") != "all" {
		requests, err := h.engine.GetRequestsAccessibleToUser(c.Request.Context(), userID)
		if err != nil {
			h.handleWorkflowError(c, err, "获取审批请求失败")
			return
		}
		c.JSON(http.StatusOK, model.Success(requests))
		return
	}

	user, err := h.users.FindUserByID(userID)
	if err != nil {
		model.HandleError(c, http.StatusNotFound, workflow.ErrUserNotFound)
		return
	}
	if !h.engine.Permissions(user).CanViewAll {
		c.JSON(http.StatusForbidden, model.Error(403, "当前角色无权查看全部审批请求"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	requests, total, err := h.requests.FindAll(c.Request.Context(),
		model.RequestStatus(c.Query("status")), model.RequestType(c.Query("type")), page, pageSize)
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err, "查询审批请求失败")
		return
	}

	c.JSON(http.StatusOK, model.Success(model.PaginatedResponse{
		Data:       requests,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}))
}

// ListPending 等待当前用户角色审批的请求
// @Summary 获取待我审批的请求
// @Tags Approval
// @Produce json
// @Security Bearer
// @Success 200 {object} model.Response
// @Router /approval-requests/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	requests, err := h.engine.GetPendingApprovalsForUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		h.handleWorkflowError(c, err, "获取待审批请求失败")
		return
	}
	c.JSON(http.StatusOK, model.Success(requests))
}

// GetStatistics 当前用户的审批统计
// @Summary 获取审批统计
// @Tags Approval
// @Produce json
// @Security Bearer
// @Success 200 {object} model.Response
// @Router /approval-requests/stats [get]
func (h *ApprovalHandler) GetStatistics(c *gin.Context) {
	stats, err := h.engine.GetUserStatistics(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		h.handleWorkflowError(c, err, "获取审批统计失败")
		return
	}
	c.JSON(http.StatusOK, model.Success(stats))
}

// GetRequest 审批请求详情（含历史）
// @Summary 获取审批请求详情
// @Tags Approval
// @Produce json
// @Security Bearer
// @Param id path string true "请求ID"
// @Success 200 {object} model.Response
// @Failure 404 {object} model.Response
// @Router /approval-requests/{id} [get]
func (h *ApprovalHandler) GetRequest(c *gin.Context) {
	req, err := h.engine.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleWorkflowError(c, err, "获取审批请求失败")
		return
	}

	detail := model.ApprovalRequestDetail{ApprovalRequest: *req}
	if user, err := h.users.FindUserByID(c.GetString("user_id")); err == nil && user.IsActive() {
		detail.CanApprove = workflow.CanUserApproveRequest(req, user)
	}

	c.JSON(http.StatusOK, model.Success(detail))
}

// SubmitDecision 审批（通过/拒绝）
// @Summary 提交审批决定
// @Tags Approval
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "请求ID"
// @Param request body model.ApprovalDecisionRequest true "审批决定"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Failure 403 {object} model.Response
// @Failure 404 {object} model.Response
// @Failure 409 {object} model.Response
// @Router /approval-requests/{id}/decision [post]
func (h *ApprovalHandler) SubmitDecision(c *gin.Context) {
	var req model.ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	updated, err := h.engine.ProcessApproval(c.Request.Context(), c.Param("id"), c.GetString("user_id"), req.Decision, req.Comments)
	if err != nil {
		h.handleWorkflowError(c, err, "审批失败")
		return
	}

	c.JSON(http.StatusOK, model.Success(updated))
}

// Escalate 管理员升级审批请求
// @Summary 升级审批请求
// @Tags Approval
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "请求ID"
// @Param request body model.EscalateApprovalRequest true "升级参数"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Failure 404 {object} model.Response
// @Router /approval-requests/{id}/escalate [post]
func (h *ApprovalHandler) Escalate(c *gin.Context) {
	var req model.EscalateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	targetRole, err := h.engine.Hierarchy().ParseRole(string(req.TargetRole))
	if err != nil {
		h.handleWorkflowError(c, err, "无效的目标角色")
		return
	}

	updated, err := h.engine.EscalateRequest(c.Request.Context(), c.Param("id"), targetRole, c.GetString("user_id"),
		workflow.EscalateOptions{Reason: req.Reason, ReopenStatus: req.ReopenStatus})
	if err != nil {
		h.handleWorkflowError(c, err, "升级审批请求失败")
		return
	}

	c.JSON(http.StatusOK, model.Success(updated))
}

// GetRoleHierarchy 审批角色层级
// @Summary 获取审批角色层级
// @Tags Approval
// @Produce json
// @Security Bearer
// @Success 200 {object} model.Response
// @Router /roles/hierarchy [get]
func (h *ApprovalHandler) GetRoleHierarchy(c *gin.Context) {
	c.JSON(http.StatusOK, model.Success(h.engine.Hierarchy().Describe()))
}

// handleWorkflowError 将审批引擎错误映射为 HTTP 状态码
func (h *ApprovalHandler) handleWorkflowError(c *gin.Context, err error, context string) {
	model.HandleError(c, workflowErrorStatus(err), err, context)
}

func workflowErrorStatus(err error) int {
	switch {
	case errors.Is(err, workflow.ErrRequestNotFound), errors.Is(err, workflow.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrNotAuthorized), errors.Is(err, workflow.ErrUserInactive):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrNotPending), errors.Is(err, workflow.ErrConcurrentWrite),
		errors.Is(err, distributed.ErrLockTimeout):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrUnknownRole),
		errors.Is(err, workflow.ErrInvalidRequest),
		errors.Is(err, workflow.ErrInvalidDecision):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
