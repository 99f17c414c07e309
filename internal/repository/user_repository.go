package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/fisker/bcm-backend/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ===== User Methods =====

func (r *UserRepository) CreateUser(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) FindUserByUsername(username string) (*model.User, error) {
	var users []model.User
	result := r.db.Where("username = ?", username).Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(users) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &users[0], nil
}

func (r *UserRepository) FindUserByID(id string) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateUser(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateUserLastLogin(userID string, loginTime time.Time) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login_time", loginTime).Error
}

// FindUsersByRole 某角色下的启用用户（用于通知）
func (r *UserRepository) FindUsersByRole(role model.Role) ([]model.User, error) {
	var users []model.User
	err := r.db.Where("role = ? AND status = ?", role, model.UserStatusActive).
		Order("username ASC").
		Find(&users).Error
	return users, err
}

// ===== User Management Methods =====

// FindAllUsersWithPagination 分页获取所有用户
func (r *UserRepository) FindAllUsersWithPagination(page, pageSize int, keyword string) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	query := r.db.Model(&model.User{})

	// 关键字搜索
	if keyword != "" {
		query = query.Where("username LIKE ? OR email LIKE ? OR full_name LIKE ?",
			"%"+keyword+"%", "%"+keyword+"%", "%"+keyword+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).
		Order("created_at DESC").
		Find(&users).Error

	return users, total, err
}

// UpdateUserRole 更新用户角色
func (r *UserRepository) UpdateUserRole(userID string, role model.Role) error {
	result := r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateUserStatus 更新用户状态
func (r *UserRepository) UpdateUserStatus(userID, status string) error {
	result := r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountUsers 用户总数
func (r *UserRepository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Count(&count).Error
	return count, err
}
