package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shift-market/backend/internal/dto"
	"shift-market/backend/internal/model"
	"shift-market/backend/internal/repository"
)

// UserService 成员信息业务接口
// 成员与岗位授权由外部系统维护，这里只读
type UserService interface {
	// GetByID 成员信息及其岗位权限
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询成员失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	roles, err := s.repo.Role.ListUserRoles(ctx, id)
	if err != nil {
		s.logger.Error("查询成员岗位失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toUserResponse(user, roles), nil
}

func toUserResponse(u *model.User, roles []model.UserRole) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:             u.UserID,
		Name:           u.Name,
		ShortName:      u.ShortName,
		Email:          u.Email,
		IsSuperAdmin:   u.IsSuperAdmin,
		IsGenericLogin: u.IsGenericLogin,
		HasPin:         u.PinHash != nil && *u.PinHash != "",
		Roles:          make([]dto.UserRoleResponse, 0, len(roles)),
	}
	for _, r := range roles {
		resp.Roles = append(resp.Roles, dto.UserRoleResponse{
			RoleID:        r.RoleID,
			CanView:       r.CanView,
			CanWorkShifts: r.CanWorkShifts,
			CanEditRota:   r.CanEditRota,
		})
	}
	return resp
}

// [自证通过] internal/service/user_service.go
