package service

import (
	"errors"
	"fmt"
)

// ── 班次市场错误分类 ──
//
// 五个基础错误对应调用方需要区分的处理方式，具体错误通过 %w 归入其中之一，
// 调用方使用 errors.Is 或 ErrorKind 判断类别。

var (
	ErrNotFound     = errors.New("资源不存在")
	ErrInvalidState = errors.New("当前状态不允许该操作")
	ErrForbidden    = errors.New("无权执行该操作")
	ErrConflict     = errors.New("申请已被他人处理，请刷新后重试")
)

// NotFound
var (
	ErrRequestNotFound = fmt.Errorf("%w: 申请不存在", ErrNotFound)
	ErrShiftNotFound   = fmt.Errorf("%w: 班次不存在", ErrNotFound)
	ErrRoleNotFound    = fmt.Errorf("%w: 岗位不存在", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: 成员不存在", ErrNotFound)
)

// InvalidState
var (
	ErrInvalidKind           = fmt.Errorf("%w: 申请类型不合法", ErrInvalidState)
	ErrTargetShiftRequired   = fmt.Errorf("%w: 互换申请必须指定目标班次", ErrInvalidState)
	ErrUnexpectedTarget      = fmt.Errorf("%w: 仅互换申请可指定目标班次或目标成员", ErrInvalidState)
	ErrSameShift             = fmt.Errorf("%w: 源班次与目标班次不能相同", ErrInvalidState)
	ErrNotShiftOwner         = fmt.Errorf("%w: 申请人并非源班次持有人", ErrInvalidState)
	ErrShiftAlreadyAssigned  = fmt.Errorf("%w: 班次已有持有人，不可发起认领", ErrInvalidState)
	ErrTargetNotOwnedByOther = fmt.Errorf("%w: 目标班次必须由其他成员持有", ErrInvalidState)
	ErrTargetStaffMismatch   = fmt.Errorf("%w: 目标成员并非目标班次持有人", ErrInvalidState)
	ErrSelfClaim             = fmt.Errorf("%w: 不能认领自己转让的班次", ErrInvalidState)
	ErrNotClaimable          = fmt.Errorf("%w: 互换申请需由对方响应，不可直接认领", ErrInvalidState)
	ErrNotSwap               = fmt.Errorf("%w: 仅互换申请可响应", ErrInvalidState)
	ErrNotProposed           = fmt.Errorf("%w: 互换申请不处于待响应状态", ErrInvalidState)
	ErrNotPendingApproval    = fmt.Errorf("%w: 申请不处于待审批状态", ErrInvalidState)
	ErrNotActive             = fmt.Errorf("%w: 申请已结束，不可取消", ErrInvalidState)
	ErrShiftRemoved          = fmt.Errorf("%w: 班次已被删除，申请只能驳回或撤回", ErrInvalidState)
	ErrPinNotSet             = fmt.Errorf("%w: 该成员尚未设置 PIN", ErrInvalidState)
	ErrNotGenericLogin       = fmt.Errorf("%w: 仅共享账号需要确认操作成员", ErrInvalidState)

	// ErrAmbiguousActor 共享账号未确认具体成员；KindOf 将其单独归为 KindAmbiguousActor
	ErrAmbiguousActor = fmt.Errorf("%w: 共享账号需先确认具体操作成员", ErrInvalidState)
)

// Forbidden
var (
	ErrNotInvitedPeer = fmt.Errorf("%w: 仅被邀请的成员可响应该互换", ErrForbidden)
	ErrNotTargetOwner = fmt.Errorf("%w: 仅目标班次持有人可响应该互换", ErrForbidden)
	ErrNotApprover    = fmt.Errorf("%w: 需要该岗位的排班编辑权限", ErrForbidden)
	ErrNotRequester   = fmt.Errorf("%w: 仅申请人或排班管理员可取消申请", ErrForbidden)
	ErrSelfResponse   = fmt.Errorf("%w: 不能响应自己发起的互换", ErrForbidden)
)

// Conflict
var (
	ErrOwnershipChanged = fmt.Errorf("%w: 班次归属已变更", ErrConflict)
	ErrAlreadyClaimed   = fmt.Errorf("%w: 申请已被认领或取消", ErrConflict)
)

// ErrorKind 错误类别
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindForbidden
	KindConflict
	KindAmbiguousActor
)

// String 返回类别名称（日志使用）
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindAmbiguousActor:
		return "ambiguous_actor"
	}
	return "internal"
}

// KindOf 返回错误所属类别，未归类的错误视为内部错误
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrAmbiguousActor):
		return KindAmbiguousActor
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	}
	return KindInternal
}
