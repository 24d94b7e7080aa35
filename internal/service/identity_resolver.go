package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shift-market/backend/internal/repository"
)

// IdentityResolver 将调用主体映射为实际操作成员
//
// 共享账号（is_generic_login）无法代表单个成员，必须附带经 PIN 确认的成员；
// 普通账号始终以自身身份操作。
type IdentityResolver interface {
	ResolveActingIdentity(ctx context.Context, principalID, confirmedStaffID string) (string, error)
}

type identityResolver struct {
	users repository.UserRepository
}

// NewIdentityResolver 创建 IdentityResolver 实例
func NewIdentityResolver(users repository.UserRepository) IdentityResolver {
	return &identityResolver{users: users}
}

func (r *identityResolver) ResolveActingIdentity(ctx context.Context, principalID, confirmedStaffID string) (string, error) {
	principal, err := r.users.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	if !principal.IsGenericLogin {
		return principal.UserID, nil
	}
	if confirmedStaffID == "" {
		return "", ErrAmbiguousActor
	}

	staff, err := r.users.GetByID(ctx, confirmedStaffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if staff.IsGenericLogin {
		return "", ErrAmbiguousActor
	}
	return staff.UserID, nil
}
