package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fisker/bcm-backend/internal/model"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create 创建组织
func (r *OrganizationRepository) Create(org *model.Organization) error {
	return r.db.Create(org).Error
}

// FindByID 根据ID查找组织
func (r *OrganizationRepository) FindByID(id string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// FindByUnitCode 根据组织标识符（AD DN）查找组织
func (r *OrganizationRepository) FindByUnitCode(unitCode string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.Where("unit_code = ?", unitCode).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// FindAll 查找所有组织
func (r *OrganizationRepository) FindAll() ([]model.Organization, error) {
	var orgs []model.Organization
	err := r.db.Order("sort_order ASC, created_at ASC").Find(&orgs).Error
	return orgs, err
}

// UpsertByUnitCode 按 UnitCode 新建或更新组织，返回是否为新建
func (r *OrganizationRepository) UpsertByUnitCode(org *model.Organization) (bool, error) {
	existing, err := r.FindByUnitCode(org.UnitCode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if existing == nil {
		if org.ID == "" {
			org.ID = uuid.New().String()
		}
		return true, r.db.Create(org).Error
	}

	org.ID = existing.ID
	err = r.db.Model(&model.Organization{}).
		Where("id = ?", existing.ID).
		Omit("created_at", "unit_code").
		Updates(map[string]interface{}{
			"unit_name":   org.UnitName,
			"unit_type":   org.UnitType,
			"unit_owner":  org.UnitOwner,
			"is_active":   org.IsActive,
			"parent_id":   org.ParentID,
			"source":      org.Source,
			"description": org.Description,
		}).Error
	return false, err
}

// BuildOrganizationTree 构建组织树，父节点不存在的组织视为顶级组织
func (r *OrganizationRepository) BuildOrganizationTree(orgs []model.Organization) []model.Organization {
	if len(orgs) == 0 {
		return []model.Organization{}
	}

	ids := make(map[string]bool, len(orgs))
	for i := range orgs {
		ids[orgs[i].ID] = true
	}

	childrenOf := make(map[string][]model.Organization)
	var roots []model.Organization
	for i := range orgs {
		if orgs[i].ParentID == nil || *orgs[i].ParentID == "" || !ids[*orgs[i].ParentID] {
			roots = append(roots, orgs[i])
			continue
		}
		childrenOf[*orgs[i].ParentID] = append(childrenOf[*orgs[i].ParentID], orgs[i])
	}

	var attach func(nodes []model.Organization, depth int) []model.Organization
	attach = func(nodes []model.Organization, depth int) []model.Organization {
		for i := range nodes {
			nodes[i].Children = []model.Organization{}
			if depth < 100 { // 防止环路导致无限递归
				nodes[i].Children = attach(childrenOf[nodes[i].ID], depth+1)
			}
		}
		if nodes == nil {
			return []model.Organization{}
		}
		return nodes
	}
	return attach(roots, 0)
}
