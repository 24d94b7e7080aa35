package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shift-market/backend/internal/model"
	"shift-market/backend/internal/repository"
)

// ApprovalDecision 审批决策
type ApprovalDecision int

const (
	RequiresApproval ApprovalDecision = iota
	AutoApprove
)

// Decide 纯决策：岗位开启 marketplace_auto_approve 时自动通过
func Decide(role *model.Role) ApprovalDecision {
	if role != nil && role.MarketplaceAutoApprove {
		return AutoApprove
	}
	return RequiresApproval
}

// ApprovalPolicy 结算审批策略
// 每次结算都重新读取岗位配置，不沿用申请创建时的结果
type ApprovalPolicy interface {
	// Evaluate 在给定事务内读取涉及的岗位并决策；任一岗位需要审批则整体需要审批
	Evaluate(ctx context.Context, roles repository.RoleRepository, roleIDs ...string) (ApprovalDecision, error)
}

type approvalPolicy struct{}

// NewApprovalPolicy 创建 ApprovalPolicy 实例
func NewApprovalPolicy() ApprovalPolicy {
	return approvalPolicy{}
}

func (approvalPolicy) Evaluate(ctx context.Context, roles repository.RoleRepository, roleIDs ...string) (ApprovalDecision, error) {
	if len(roleIDs) == 0 {
		return RequiresApproval, nil
	}
	seen := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		role, err := roles.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return RequiresApproval, ErrRoleNotFound
			}
			return RequiresApproval, err
		}
		if Decide(role) == RequiresApproval {
			return RequiresApproval, nil
		}
	}
	return AutoApprove, nil
}
