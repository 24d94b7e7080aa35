package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"shift-market/backend/internal/repository"
	"shift-market/backend/pkg/redis"
)

// 岗位权限名称
const (
	PermView       = "can_view"
	PermWorkShifts = "can_work_shifts"
	PermEditRota   = "can_edit_rota"
)

// Authorizer 能力校验：成员是否对某岗位持有权限 P，超级管理员恒为真
type Authorizer interface {
	HasPermission(ctx context.Context, userID, roleID, perm string) (bool, error)
}

// PermissionService 岗位权限查询
type PermissionService interface {
	Authorizer
	// EditableRoles 返回成员可编辑排班的岗位；all=true 表示超级管理员（全部岗位）
	EditableRoles(ctx context.Context, userID string) (roleIDs []string, all bool, err error)
	// Invalidate 清除成员权限缓存
	Invalidate(ctx context.Context, userID string) error
}

// PermissionCache 权限缓存存储，*redis.Client 实现该接口
type PermissionCache interface {
	GetPermissions(ctx context.Context, userID string) ([]byte, error)
	SetPermissions(ctx context.Context, userID string, payload []byte, ttl time.Duration) error
	DeletePermissions(ctx context.Context, userID string) error
}

// rolePermissions 单个岗位上的权限
type rolePermissions struct {
	CanView       bool `json:"can_view"`
	CanWorkShifts bool `json:"can_work_shifts"`
	CanEditRota   bool `json:"can_edit_rota"`
}

// permissionSet 成员权限快照（缓存单位）
type permissionSet struct {
	SuperAdmin bool                       `json:"super_admin"`
	Roles      map[string]rolePermissions `json:"roles"`
}

func (p *permissionSet) has(roleID, perm string) bool {
	if p.SuperAdmin {
		return true
	}
	rp, ok := p.Roles[roleID]
	if !ok {
		return false
	}
	switch perm {
	case PermView:
		return rp.CanView
	case PermWorkShifts:
		return rp.CanWorkShifts
	case PermEditRota:
		return rp.CanEditRota
	}
	return false
}

type permissionService struct {
	repo   *repository.Repository
	cache  PermissionCache // 可为 nil：每次直接查库
	ttl    func() time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewPermissionService 创建 PermissionService 实例
// ttl 每次写缓存时读取，配置热更新后立即生效
func NewPermissionService(repo *repository.Repository, cache PermissionCache, ttl func() time.Duration, logger *zap.Logger) PermissionService {
	return &permissionService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func (s *permissionService) HasPermission(ctx context.Context, userID, roleID, perm string) (bool, error) {
	set, err := s.permissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return set.has(roleID, perm), nil
}

func (s *permissionService) EditableRoles(ctx context.Context, userID string) ([]string, bool, error) {
	set, err := s.permissions(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if set.SuperAdmin {
		return nil, true, nil
	}
	var ids []string
	for roleID, rp := range set.Roles {
		if rp.CanEditRota {
			ids = append(ids, roleID)
		}
	}
	return ids, false, nil
}

func (s *permissionService) Invalidate(ctx context.Context, userID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePermissions(ctx, userID)
}

// permissions 读取权限快照：缓存 → 数据库，同一成员的并发查询合并为一次
func (s *permissionService) permissions(ctx context.Context, userID string) (*permissionSet, error) {
	if s.cache != nil {
		if b, err := s.cache.GetPermissions(ctx, userID); err == nil {
			var set permissionSet
			if jsonErr := json.Unmarshal(b, &set); jsonErr == nil {
				return &set, nil
			}
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("读取权限缓存失败，回退数据库", zap.String("user_id", userID), zap.Error(err))
		}
	}

	// 合并后的查询由所有等待者共享，不随首个调用方的取消而中断
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		return s.load(loadCtx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*permissionSet), nil
}

func (s *permissionService) load(ctx context.Context, userID string) (*permissionSet, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询成员失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	roles, err := s.repo.Role.ListUserRoles(ctx, userID)
	if err != nil {
		s.logger.Error("查询成员岗位权限失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	set := &permissionSet{
		SuperAdmin: user.IsSuperAdmin,
		Roles:      make(map[string]rolePermissions, len(roles)),
	}
	for _, ur := range roles {
		set.Roles[ur.RoleID] = rolePermissions{
			CanView:       ur.CanView,
			CanWorkShifts: ur.CanWorkShifts,
			CanEditRota:   ur.CanEditRota,
		}
	}

	if s.cache != nil {
		if b, err := json.Marshal(set); err == nil {
			if err := s.cache.SetPermissions(ctx, userID, b, s.ttl()); err != nil {
				s.logger.Warn("写入权限缓存失败", zap.String("user_id", userID), zap.Error(err))
			}
		}
	}
	return set, nil
}
