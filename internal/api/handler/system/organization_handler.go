package system

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fisker/bcm-backend/internal/model"
	orgService "github.com/fisker/bcm-backend/internal/service/organization"
)

type OrganizationHandler struct {
	service *orgService.OrganizationService
}

func NewOrganizationHandler(service *orgService.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

// GetTree 获取组织架构树
// @Summary 获取组织架构树
// @Tags organizations
// @Produce json
// @Security Bearer
// @Success 200 {object} model.Response
// @Router /api/organizations/tree [get]
func (h *OrganizationHandler) GetTree(c *gin.Context) {
	tree, err := h.service.GetTree()
	if err != nil {
		model.HandleError(c, http.StatusInternalServerError, err, "获取组织架构失败")
		return
	}
	c.JSON(http.StatusOK, model.Success(tree))
}

// SyncFromDirectory 从 AD 同步组织架构
// @Summary 从 AD 同步组织架构
// @Tags organizations
// @Produce json
// @Security Bearer
// @Success 200 {object} model.Response
// @Failure 400 {object} model.Response
// @Router /api/organizations/sync [post]
func (h *OrganizationHandler) SyncFromDirectory(c *gin.Context) {
	result, err := h.service.SyncFromDirectory()
	if err != nil {
		if errors.Is(err, orgService.ErrDirectoryDisabled) {
			model.HandleError(c, http.StatusBadRequest, err)
			return
		}
		model.HandleError(c, http.StatusBadGateway, err, "同步组织架构失败")
		return
	}
	c.JSON(http.StatusOK, model.Success(result))
}
