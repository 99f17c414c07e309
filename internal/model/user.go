package model

import (
	"time"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"

	UserSourceLocal = "local"
	UserSourceLDAP  = "ldap"
)

// User 平台用户，Role 为其在审批层级中的角色
type User struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username       string     `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password       string     `json:"-" gorm:"type:varchar(255)"` // bcrypt，LDAP 用户为空
	Email          string     `json:"email" gorm:"type:varchar(255);index"`
	FullName       string     `json:"fullName" gorm:"type:varchar(255)"`
	Role           Role       `json:"role" gorm:"type:varchar(50);not null;index"`
	Department     string     `json:"department" gorm:"type:varchar(255)"`
	OrganizationID *string    `json:"organizationId" gorm:"type:varchar(36);index"`
	Status         string     `json:"status" gorm:"type:varchar(20);default:'active';index"`
	Source         string     `json:"source" gorm:"type:varchar(20);default:'local'"`
	LastLoginTime  *time.Time `json:"lastLoginTime"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// IsActive 用户是否处于启用状态
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// CreateUserRequest 管理员创建用户
type CreateUserRequest struct {
	Username       string  `json:"username" binding:"required"`
	Password       string  `json:"password" binding:"required,min=8"`
	Email          string  `json:"email"`
	FullName       string  `json:"fullName"`
	Role           Role    `json:"role" binding:"required"`
	Department     string  `json:"department"`
	OrganizationID *string `json:"organizationId"`
}

// UpdateUserRoleRequest 调整用户角色
type UpdateUserRoleRequest struct {
	Role Role `json:"role" binding:"required"`
}

// UpdateUserStatusRequest 启用/禁用用户
type UpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active disabled"`
}
