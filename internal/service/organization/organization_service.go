package organization

import (
	"errors"
	"fmt"

	"github.com/fisker/bcm-backend/internal/auth"
	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/internal/repository"
	"github.com/fisker/bcm-backend/pkg/logger"
	"github.com/fisker/bcm-backend/pkg/metrics"
)

// ErrDirectoryDisabled 未启用 LDAP 时无法同步
var ErrDirectoryDisabled = errors.New("directory sync is not enabled")

// OrgUnitSource 组织单元来源（AD）
type OrgUnitSource interface {
	SearchOrgUnits() ([]auth.OrgUnit, error)
}

type OrganizationService struct {
	repo   *repository.OrganizationRepository
	source OrgUnitSource
	baseDN string
}

// NewOrganizationService source 为 nil 时只提供查询
func NewOrganizationService(repo *repository.OrganizationRepository, source OrgUnitSource, baseDN string) *OrganizationService {
	return &OrganizationService{repo: repo, source: source, baseDN: baseDN}
}

// GetTree 组织架构树
func (s *OrganizationService) GetTree() ([]model.Organization, error) {
	orgs, err := s.repo.FindAll()
	if err != nil {
		return nil, err
	}
	return s.repo.BuildOrganizationTree(orgs), nil
}

// SyncFromDirectory 从 AD 拉取 OU 并按 UnitCode（DN）新建或更新组织
func (s *OrganizationService) SyncFromDirectory() (*model.OrganizationSyncResult, error) {
	if s.source == nil {
		return nil, ErrDirectoryDisabled
	}

	units, err := s.source.SearchOrgUnits()
	if err != nil {
		metrics.RecordOrganizationSync(false)
		return nil, fmt.Errorf("search organizational units: %w", err)
	}

	nodes := auth.BuildOrgHierarchy(units, s.baseDN)
	result := &model.OrganizationSyncResult{Total: len(nodes)}

	// 节点已按深度排序，父节点总是先写入
	idByDN := make(map[string]string, len(nodes))
	for _, node := range nodes {
		org := &model.Organization{
			UnitCode:    node.DN,
			UnitName:    node.Name,
			UnitType:    node.UnitType,
			UnitOwner:   node.Owner,
			IsActive:    true,
			Source:      model.UserSourceLDAP,
			Description: node.Description,
		}
		if node.ParentDN != "" {
			if parentID, ok := idByDN[auth.NormalizeDN(node.ParentDN)]; ok {
				org.ParentID = &parentID
			}
		}

		created, err := s.repo.UpsertByUnitCode(org)
		if err != nil {
			metrics.RecordOrganizationSync(false)
			return nil, fmt.Errorf("save organization %s: %w", node.DN, err)
		}
		idByDN[auth.NormalizeDN(node.DN)] = org.ID
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	metrics.RecordOrganizationSync(true)
	logger.Infof("Organization sync finished: total=%d, created=%d, updated=%d",
		result.Total, result.Created, result.Updated)
	return result, nil
}
