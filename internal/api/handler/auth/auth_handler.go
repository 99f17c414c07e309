package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fisker/bcm-backend/internal/model"
	authService "github.com/fisker/bcm-backend/internal/service/auth"
	"github.com/fisker/bcm-backend/internal/workflow"
)

type AuthHandler struct {
	service *authService.AuthService
}

func NewAuthHandler(service *authService.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login 用户登录（本地账号或 AD）
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "登录信息"
// @Success 200 {object} model.Response
// @Failure 401 {object} model.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	resp, err := h.service.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, authService.ErrUserDisabled):
			c.JSON(http.StatusForbidden, model.Error(403, err.Error()))
		case errors.Is(err, authService.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, model.Error(401, err.Error()))
		default:
			model.HandleError(c, http.StatusInternalServerError, err, "登录失败")
		}
		return
	}

	c.JSON(http.StatusOK, model.Success(resp))
}

// GetCurrentUser 获取当前登录用户
// @Summary 当前用户信息
// @Tags Auth
// @Produce json
// @Security Bearer
// @Success 200 {object} model.Response
// @Router /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, model.Error(401, "未登录"))
		return
	}

	user, err := h.service.GetUserByID(userID.(string))
	if err != nil {
		c.JSON(http.StatusNotFound, model.Error(404, "用户不存在"))
		return
	}

	c.JSON(http.StatusOK, model.Success(user))
}

// GetUsers 用户列表（管理员）
// @Summary 用户列表
// @Tags User
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Param keyword query string false "用户名/姓名/邮箱"
// @Success 200 {object} model.Response
// @Router /users [get]
func (h *AuthHandler) GetUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	users, total, err := h.service.GetUsersWithPagination(page, pageSize, c.Query("keyword"))
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err, "获取用户列表失败")
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	c.JSON(http.StatusOK, model.Success(model.PaginatedResponse{
		Data:       users,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}))
}

// CreateUser 创建本地用户（管理员）
// @Summary 创建用户
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body model.CreateUserRequest true "用户信息"
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Failure 409 {object} model.Response
// @Router /users [post]
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	user, err := h.service.CreateUser(&req)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrUnknownRole):
			model.HandleError(c, http.StatusBadRequest, err)
		case errors.Is(err, authService.ErrUsernameTaken):
			model.HandleError(c, http.StatusConflict, err)
		default:
			model.HandleError(c, http.StatusInternalServerError, err, "创建用户失败")
		}
		return
	}

	c.JSON(http.StatusOK, model.Success(user))
}

// UpdateUserRole 调整用户角色（管理员）
// @Summary 调整用户角色
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "用户ID"
// @Param request body model.UpdateUserRoleRequest true "角色"
// @Success 200 {object} model.Response
// @Router /users/{id}/role [put]
func (h *AuthHandler) UpdateUserRole(c *gin.Context) {
	var req model.UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	role, err := h.service.UpdateUserRole(c.Param("id"), req.Role)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrUnknownRole):
			model.HandleError(c, http.StatusBadRequest, err)
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, model.Error(404, "用户不存在"))
		default:
			model.HandleError(c, http.StatusInternalServerError, err, "更新用户角色失败")
		}
		return
	}

	c.JSON(http.StatusOK, model.Success(gin.H{"id": c.Param("id"), "role": role}))
}

// UpdateUserStatus 启用/禁用用户（管理员）
// @Summary 启用/禁用用户
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "用户ID"
// @Param request body model.UpdateUserStatusRequest true "状态"
// @Success 200 {object} model.Response
// @Router /users/{id}/status [put]
func (h *AuthHandler) UpdateUserStatus(c *gin.Context) {
	var req model.UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Error(400, err.Error()))
		return
	}

	if err := h.service.UpdateUserStatus(c.Param("id"), req.Status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, model.Error(404, "用户不存在"))
			return
		}
		model.HandleError(c, http.StatusInternalServerError, err, "更新用户状态失败")
		return
	}

	c.JSON(http.StatusOK, model.Success(gin.H{"id": c.Param("id"), "status": req.Status}))
}
