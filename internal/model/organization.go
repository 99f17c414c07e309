package model

import (
	"time"
)

// Organization 组织架构节点，由 AD 组织单元（OU）同步而来
type Organization struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UnitCode    string         `json:"unitCode" gorm:"type:varchar(255);uniqueIndex;not null"` // AD 中的 DN
	UnitName    string         `json:"unitName" gorm:"type:varchar(255);not null"`
	UnitType    string         `json:"unitType" gorm:"type:varchar(50);not null;index"` // Organization / Department / Process
	UnitOwner   string         `json:"unitOwner" gorm:"type:varchar(255)"`              // AD managedBy
	IsActive    bool           `json:"isActive" gorm:"default:true;index"`
	ParentID    *string        `json:"parentId" gorm:"type:varchar(36);index"` // NULL 表示顶级组织
	Source      string         `json:"source" gorm:"type:varchar(20);default:'local'"`
	SortOrder   int            `json:"sortOrder" gorm:"default:0"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	Children    []Organization `json:"children,omitempty" gorm:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}

const (
	UnitTypeOrganization = "Organization"
	UnitTypeDepartment   = "Department"
	UnitTypeProcess      = "Process"
)

// OrganizationSyncResult AD 同步结果
type OrganizationSyncResult struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}
