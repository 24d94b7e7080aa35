package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shift-market/backend/config"
	"shift-market/backend/internal/model"
	"shift-market/backend/internal/repository"
	pkgerrors "shift-market/backend/pkg/errors"
)

// CreateRequestInput 创建申请参数
type CreateRequestInput struct {
	Kind          string
	SourceShiftID string
	TargetShiftID *string
	TargetStaffID *string
	Notes         string
}

// Outcome 一次状态迁移的结果
type Outcome struct {
	Request *model.ShiftRequest
	// RoleIDs 申请涉及班次的岗位（源在前）
	RoleIDs []string
	// Cancelled 因本次结算被取消的竞争申请
	Cancelled []model.ShiftRequest
}

// RequestLifecycleEngine 班次市场申请状态机
//
// 每个操作在单个可串行化事务内完成，加锁顺序固定为：申请行 → 源班次 → 目标班次 → 竞争申请。
// 班次归属只在结算时变更，且与竞争申请的取消处于同一次提交。
type RequestLifecycleEngine interface {
	Create(ctx context.Context, requesterID string, in CreateRequestInput) (*model.ShiftRequest, error)
	Claim(ctx context.Context, requestID, candidateID string) (*Outcome, error)
	RespondToSwap(ctx context.Context, requestID, peerID string, accept bool) (*Outcome, error)
	// Resolve 审批；notes 非 nil 时覆盖申请备注
	Resolve(ctx context.Context, requestID, approverID string, approve bool, notes *string) (*Outcome, error)
	Cancel(ctx context.Context, requestID, actorID string) (*Outcome, error)
}

type requestEngine struct {
	repo     *repository.Repository
	policy   ApprovalPolicy
	authz    Authorizer
	settings *config.MarketplaceSettings
	logger   *zap.Logger
	now      func() time.Time
}

// NewRequestLifecycleEngine 创建申请状态机
func NewRequestLifecycleEngine(
	repo *repository.Repository,
	policy ApprovalPolicy,
	authz Authorizer,
	settings *config.MarketplaceSettings,
	logger *zap.Logger,
) RequestLifecycleEngine {
	return &requestEngine{
		repo:     repo,
		policy:   policy,
		authz:    authz,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// Create — 发起申请
// ════════════════════════════════════════════════════════════

func (e *requestEngine) Create(ctx context.Context, requesterID string, in CreateRequestInput) (*model.ShiftRequest, error) {
	if !model.IsValidRequestKind(in.Kind) {
		return nil, ErrInvalidKind
	}
	isSwap := in.Kind == model.RequestKindSwap
	if isSwap && (in.TargetShiftID == nil || *in.TargetShiftID == "") {
		return nil, ErrTargetShiftRequired
	}
	if !isSwap && (in.TargetShiftID != nil || in.TargetStaffID != nil) {
		return nil, ErrUnexpectedTarget
	}
	if isSwap && *in.TargetShiftID == in.SourceShiftID {
		return nil, ErrSameShift
	}

	var created *model.ShiftRequest
	err := e.inTx(ctx, "create", func(tx *repository.Repository) error {
		source, err := lockShift(ctx, tx, in.SourceShiftID)
		if err != nil {
			return err
		}

		switch in.Kind {
		case model.RequestKindGiveaway, model.RequestKindSwap:
			if !source.IsOwnedBy(requesterID) {
				return ErrNotShiftOwner
			}
		case model.RequestKindPickup:
			if !source.IsUnassigned() {
				return ErrShiftAlreadyAssigned
			}
		}

		req := &model.ShiftRequest{
			Kind:          in.Kind,
			Status:        model.RequestStatusOpen,
			SourceShiftID: source.ShiftID,
			RequesterID:   requesterID,
			Notes:         in.Notes,
		}
		req.CreatedBy = &requesterID
		req.UpdatedBy = &requesterID

		if isSwap {
			target, err := lockShift(ctx, tx, *in.TargetShiftID)
			if err != nil {
				return err
			}
			if target.IsUnassigned() || target.IsOwnedBy(requesterID) {
				return ErrTargetNotOwnedByOther
			}

			switch {
			case in.TargetStaffID != nil && *in.TargetStaffID != "":
				if !target.IsOwnedBy(*in.TargetStaffID) {
					return ErrTargetStaffMismatch
				}
				req.TargetStaffID = in.TargetStaffID
			case e.settings.Get().OpenSwapAcceptance == config.OpenSwapCreationOwner:
				owner := *target.AssigneeID
				req.TargetStaffID = &owner
			}

			req.TargetShiftID = &target.ShiftID
			req.Status = model.RequestStatusProposed
		}

		if err := tx.ShiftRequest.Create(ctx, req); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("市场申请已创建",
		zap.String("request_id", created.RequestID),
		zap.String("kind", created.Kind),
		zap.String("requester_id", requesterID),
	)
	return created, nil
}

// ════════════════════════════════════════════════════════════
// Claim — 认领转让/空缺班次
// ════════════════════════════════════════════════════════════

func (e *requestEngine) Claim(ctx context.Context, requestID, candidateID string) (*Outcome, error) {
	var out *Outcome
	err := e.inTx(ctx, "claim", func(tx *repository.Repository) error {
		req, err := lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Kind == model.RequestKindSwap {
			return ErrNotClaimable
		}
		if req.Status != model.RequestStatusOpen {
			return ErrAlreadyClaimed
		}
		if req.Kind == model.RequestKindGiveaway && req.RequesterID == candidateID {
			return ErrSelfClaim
		}

		source, target, err := lockShifts(ctx, tx, req)
		if err != nil {
			return err
		}

		req.CandidateID = &candidateID
		req.UpdatedBy = &candidateID
		out, err = e.settle(ctx, tx, req, source, target, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════
// RespondToSwap — 对方响应互换
// ════════════════════════════════════════════════════════════

func (e *requestEngine) RespondToSwap(ctx context.Context, requestID, peerID string, accept bool) (*Outcome, error) {
	var out *Outcome
	err := e.inTx(ctx, "respond", func(tx *repository.Repository) error {
		req, err := lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Kind != model.RequestKindSwap {
			return ErrNotSwap
		}
		if req.Status != model.RequestStatusProposed {
			return ErrNotProposed
		}
		if req.RequesterID == peerID {
			return ErrSelfResponse
		}

		source, target, err := lockShifts(ctx, tx, req)
		if err != nil {
			return err
		}

		// 具名互换只认被邀请成员；开放互换要求响应者此刻持有目标班次
		if req.TargetStaffID != nil && *req.TargetStaffID != "" {
			if *req.TargetStaffID != peerID {
				return ErrNotInvitedPeer
			}
		} else if !target.IsOwnedBy(peerID) {
			return ErrNotTargetOwner
		}

		req.UpdatedBy = &peerID
		if !accept {
			req.Status = model.RequestStatusPeerRejected
			if err := tx.ShiftRequest.Update(ctx, req); err != nil {
				return err
			}
			out = &Outcome{Request: req, RoleIDs: roleIDsOf(source, target)}
			return nil
		}

		req.Status = model.RequestStatusPeerAccepted
		req.CandidateID = &peerID
		out, err = e.settle(ctx, tx, req, source, target, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════
// Resolve — 管理员审批
// ════════════════════════════════════════════════════════════

func (e *requestEngine) Resolve(ctx context.Context, requestID, approverID string, approve bool, notes *string) (*Outcome, error) {
	var out *Outcome
	err := e.inTx(ctx, "resolve", func(tx *repository.Repository) error {
		req, err := lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.RequestStatusPendingApproval {
			return ErrNotPendingApproval
		}

		// 班次可能已被外部删除：仍需加锁读取岗位以便鉴权和驳回
		source, target, err := lockShiftsForRelease(ctx, tx, req)
		if err != nil {
			return err
		}

		roleIDs := roleIDsOf(source, target)
		if err := e.requireEditRota(ctx, approverID, roleIDs, ErrNotApprover); err != nil {
			return err
		}

		req.UpdatedBy = &approverID
		if notes != nil {
			req.Notes = *notes
		}
		if !approve {
			now := e.now()
			req.Status = model.RequestStatusRejected
			req.ResolvedBy = &approverID
			req.ResolvedAt = &now
			if err := tx.ShiftRequest.Update(ctx, req); err != nil {
				return err
			}
			out = &Outcome{Request: req, RoleIDs: roleIDs}
			return nil
		}

		if shiftRemoved(source) || (req.TargetShiftID != nil && shiftRemoved(target)) {
			return ErrShiftRemoved
		}
		out, err = e.applyResolution(ctx, tx, req, source, target, approverID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════
// Cancel — 撤回申请
// ════════════════════════════════════════════════════════════

func (e *requestEngine) Cancel(ctx context.Context, requestID, actorID string) (*Outcome, error) {
	var out *Outcome
	err := e.inTx(ctx, "cancel", func(tx *repository.Repository) error {
		req, err := lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !req.IsActive() {
			return ErrNotActive
		}

		source, target, err := lockShiftsForRelease(ctx, tx, req)
		if err != nil {
			return err
		}
		roleIDs := roleIDsOf(source, target)

		if req.RequesterID != actorID {
			var sourceRoles []string
			if source != nil {
				sourceRoles = []string{source.RoleID}
			}
			if err := e.requireEditRota(ctx, actorID, sourceRoles, ErrNotRequester); err != nil {
				return err
			}
		}

		req.Status = model.RequestStatusCancelled
		req.UpdatedBy = &actorID
		if err := tx.ShiftRequest.Update(ctx, req); err != nil {
			return err
		}
		out = &Outcome{Request: req, RoleIDs: roleIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════
// 结算
// ════════════════════════════════════════════════════════════

// settle 认领/接受之后的结算入口：按审批策略直接结算或停在待审批
func (e *requestEngine) settle(
	ctx context.Context,
	tx *repository.Repository,
	req *model.ShiftRequest,
	source, target *model.Shift,
	resolverID string,
) (*Outcome, error) {
	roleIDs := roleIDsOf(source, target)

	decision, err := e.policy.Evaluate(ctx, tx.Role, roleIDs...)
	if err != nil {
		return nil, err
	}

	if decision == RequiresApproval {
		// 进入待审批前同样要求归属成立
		if err := checkOwnership(req, source, target); err != nil {
			return nil, err
		}
		req.Status = model.RequestStatusPendingApproval
		if err := tx.ShiftRequest.Update(ctx, req); err != nil {
			return nil, err
		}
		e.logger.Info("市场申请待审批",
			zap.String("request_id", req.RequestID),
			zap.String("kind", req.Kind),
		)
		return &Outcome{Request: req, RoleIDs: roleIDs}, nil
	}

	return e.applyResolution(ctx, tx, req, source, target, resolverID)
}

// applyResolution 结算：转移归属 → 标记 APPROVED → 取消竞争申请，全部在调用方事务内
// resolverID 为空表示自动通过（无审批人）
func (e *requestEngine) applyResolution(
	ctx context.Context,
	tx *repository.Repository,
	req *model.ShiftRequest,
	source, target *model.Shift,
	resolverID string,
) (*Outcome, error) {
	if err := checkOwnership(req, source, target); err != nil {
		return nil, err
	}

	candidateID := *req.CandidateID
	operatorID := resolverID
	if operatorID == "" {
		operatorID = candidateID
	}
	changeType := changeTypeOf(req.Kind)

	// 1. 转移归属
	if err := e.reassign(ctx, tx, req, source, candidateID, operatorID, changeType); err != nil {
		return nil, err
	}
	if req.Kind == model.RequestKindSwap {
		if err := e.reassign(ctx, tx, req, target, req.RequesterID, operatorID, changeType); err != nil {
			return nil, err
		}
	}

	// 2. 标记通过
	now := e.now()
	req.Status = model.RequestStatusApproved
	req.ResolvedAt = &now
	if resolverID != "" {
		req.ResolvedBy = &resolverID
	}
	if err := tx.ShiftRequest.Update(ctx, req); err != nil {
		return nil, err
	}

	// 3. 取消所有引用相关班次的其他活跃申请
	competitors, err := tx.ShiftRequest.LockActiveByShifts(ctx, req.ShiftIDs(), req.RequestID)
	if err != nil {
		return nil, err
	}
	for i := range competitors {
		c := &competitors[i]
		c.Status = model.RequestStatusCancelled
		c.UpdatedBy = &operatorID
		if err := tx.ShiftRequest.Update(ctx, c); err != nil {
			return nil, err
		}
	}

	e.logger.Info("市场申请已结算",
		zap.String("request_id", req.RequestID),
		zap.String("kind", req.Kind),
		zap.String("candidate_id", candidateID),
		zap.Bool("auto_approved", resolverID == ""),
		zap.Int("cancelled_competitors", len(competitors)),
	)

	return &Outcome{
		Request:   req,
		RoleIDs:   roleIDsOf(source, target),
		Cancelled: competitors,
	}, nil
}

func (e *requestEngine) reassign(
	ctx context.Context,
	tx *repository.Repository,
	req *model.ShiftRequest,
	shift *model.Shift,
	newAssigneeID, operatorID, changeType string,
) error {
	original := shift.AssigneeID
	if err := tx.Shift.UpdateAssignee(ctx, shift.ShiftID, &newAssigneeID, operatorID); err != nil {
		return err
	}
	shift.AssigneeID = &newAssigneeID

	return tx.ShiftChangeLog.Create(ctx, &model.ShiftChangeLog{
		ShiftID:            shift.ShiftID,
		RequestID:          req.RequestID,
		OriginalAssigneeID: original,
		NewAssigneeID:      newAssigneeID,
		ChangeType:         changeType,
		OperatorID:         operatorID,
	})
}

// inTx 执行事务并归类错误：并发冲突统一为 ErrConflict，业务错误原样返回
func (e *requestEngine) inTx(ctx context.Context, op string, fn func(tx *repository.Repository) error) error {
	err := e.repo.InTx(ctx, fn)
	if err == nil {
		return nil
	}
	if pkgerrors.IsConflict(err) {
		e.logger.Info("市场操作并发冲突", zap.String("op", op), zap.Error(err))
		return ErrConflict
	}
	if KindOf(err) == KindInternal {
		e.logger.Error("市场事务失败", zap.String("op", op), zap.Error(err))
	}
	return err
}

// ── 辅助函数 ──

func lockRequest(ctx context.Context, tx *repository.Repository, id string) (*model.ShiftRequest, error) {
	req, err := tx.ShiftRequest.LockByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func lockShift(ctx context.Context, tx *repository.Repository, id string) (*model.Shift, error) {
	shift, err := tx.Shift.LockByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	return shift, nil
}

// lockShifts 按固定顺序锁定源班次与目标班次（目标可为 nil）
func lockShifts(ctx context.Context, tx *repository.Repository, req *model.ShiftRequest) (*model.Shift, *model.Shift, error) {
	source, err := lockShift(ctx, tx, req.SourceShiftID)
	if err != nil {
		return nil, nil, err
	}
	if req.TargetShiftID == nil || *req.TargetShiftID == "" {
		return source, nil, nil
	}
	target, err := lockShift(ctx, tx, *req.TargetShiftID)
	if err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

// lockShiftsForRelease 撤回/驳回路径的加锁读取：包含已软删除的班次，已不存在的班次返回 nil
func lockShiftsForRelease(ctx context.Context, tx *repository.Repository, req *model.ShiftRequest) (*model.Shift, *model.Shift, error) {
	source, err := lockShiftUnscoped(ctx, tx, req.SourceShiftID)
	if err != nil {
		return nil, nil, err
	}
	if req.TargetShiftID == nil || *req.TargetShiftID == "" {
		return source, nil, nil
	}
	target, err := lockShiftUnscoped(ctx, tx, *req.TargetShiftID)
	if err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

func lockShiftUnscoped(ctx context.Context, tx *repository.Repository, id string) (*model.Shift, error) {
	shift, err := tx.Shift.LockByIDUnscoped(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return shift, nil
}

func shiftRemoved(s *model.Shift) bool {
	return s == nil || s.DeletedAt.Valid
}

// requireEditRota 要求对全部岗位拥有排班编辑权；岗位未知时仅超级管理员可通过
func (e *requestEngine) requireEditRota(ctx context.Context, userID string, roleIDs []string, denied error) error {
	if len(roleIDs) == 0 {
		roleIDs = []string{""}
	}
	for _, roleID := range roleIDs {
		ok, err := e.authz.HasPermission(ctx, userID, roleID, PermEditRota)
		if err != nil {
			return err
		}
		if !ok {
			return denied
		}
	}
	return nil
}

// checkOwnership 校验结算前提：归属自申请创建以来未被外部修改
func checkOwnership(req *model.ShiftRequest, source, target *model.Shift) error {
	switch req.Kind {
	case model.RequestKindGiveaway:
		if !source.IsOwnedBy(req.RequesterID) {
			return ErrOwnershipChanged
		}
	case model.RequestKindPickup:
		if !source.IsUnassigned() {
			return ErrOwnershipChanged
		}
	case model.RequestKindSwap:
		if target == nil || req.CandidateID == nil {
			return ErrOwnershipChanged
		}
		if !source.IsOwnedBy(req.RequesterID) || !target.IsOwnedBy(*req.CandidateID) {
			return ErrOwnershipChanged
		}
	}
	return nil
}

func roleIDsOf(source, target *model.Shift) []string {
	var ids []string
	if source != nil {
		ids = append(ids, source.RoleID)
	}
	if target != nil && (source == nil || target.RoleID != source.RoleID) {
		ids = append(ids, target.RoleID)
	}
	return ids
}

func changeTypeOf(kind string) string {
	switch kind {
	case model.RequestKindSwap:
		return "swap"
	case model.RequestKindPickup:
		return "pickup"
	}
	return "giveaway"
}
