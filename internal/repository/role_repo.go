package repository

import (
	"context"

	"gorm.io/gorm"

	"shift-market/backend/internal/model"
)

// RoleRepository 岗位与岗位权限数据访问接口
type RoleRepository interface {
	GetByID(ctx context.Context, id string) (*model.Role, error)
	ListUserRoles(ctx context.Context, userID string) ([]model.UserRole, error)
}

type roleRepo struct {
	db *gorm.DB
}

// NewRoleRepo 创建 RoleRepository 实例
func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) GetByID(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).
		Where("role_id = ?", id).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) ListUserRoles(ctx context.Context, userID string) ([]model.UserRole, error) {
	var roles []model.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&roles).Error
	return roles, err
}
