package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"shift-market/backend/internal/dto"
	"shift-market/backend/internal/model"
	"shift-market/backend/internal/reporting"
	"shift-market/backend/internal/repository"
)

// Actor HTTP 层传入的调用身份
// ConfirmedStaffID 为共享账号经 PIN 确认的成员，普通账号为空
type Actor struct {
	PrincipalID      string
	ConfirmedStaffID string
}

// MarketplaceService 班次市场业务接口
//
// 写操作先解析实际操作成员，再交由状态机在事务内完成，提交后发送通知；
// 读操作走只读视图。
type MarketplaceService interface {
	CreateRequest(ctx context.Context, actor Actor, req *dto.CreateShiftRequestRequest) (*dto.ShiftRequestResponse, error)
	Claim(ctx context.Context, actor Actor, requestID string) (*dto.ShiftRequestResponse, error)
	RespondToSwap(ctx context.Context, actor Actor, requestID string, accept bool) (*dto.ShiftRequestResponse, error)
	Resolve(ctx context.Context, actor Actor, requestID string, req *dto.ResolveShiftRequestRequest) (*dto.ShiftRequestResponse, error)
	Cancel(ctx context.Context, actor Actor, requestID string) (*dto.ShiftRequestResponse, error)

	GetRequest(ctx context.Context, actor Actor, requestID string) (*dto.ShiftRequestDetailResponse, error)
	ListOpen(ctx context.Context, actor Actor, req *dto.MarketplaceListRequest) ([]dto.MarketplaceRequestView, int64, error)
	ListMine(ctx context.Context, actor Actor, req *dto.MarketplaceListRequest) ([]dto.MarketplaceRequestView, int64, error)
	ListIncoming(ctx context.Context, actor Actor) ([]dto.MarketplaceRequestView, error)
	ListPendingApprovals(ctx context.Context, actor Actor) ([]dto.MarketplaceRequestView, error)
	Dashboard(ctx context.Context, actor Actor) (*dto.MarketplaceDashboardResponse, error)
	ListSwappableShifts(ctx context.Context, actor Actor, req *dto.SwappableShiftsRequest) ([]dto.ShiftBrief, error)

	// RequireApprover 校验操作成员至少对一个岗位有排班编辑权，返回操作成员
	RequireApprover(ctx context.Context, actor Actor) (string, error)
	// ActingID 解析实际操作成员
	ActingID(ctx context.Context, actor Actor) (string, error)
}

type marketplaceService struct {
	repo     *repository.Repository
	engine   RequestLifecycleEngine
	identity IdentityResolver
	perms    PermissionService
	view     reporting.MarketplaceView
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewMarketplaceService 创建 MarketplaceService 实例
func NewMarketplaceService(
	repo *repository.Repository,
	engine RequestLifecycleEngine,
	identity IdentityResolver,
	perms PermissionService,
	view reporting.MarketplaceView,
	notifier Notifier,
	logger *zap.Logger,
) MarketplaceService {
	return &marketplaceService{
		repo:     repo,
		engine:   engine,
		identity: identity,
		perms:    perms,
		view:     view,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// 写操作
// ════════════════════════════════════════════════════════════

func (s *marketplaceService) CreateRequest(ctx context.Context, actor Actor, req *dto.CreateShiftRequestRequest) (*dto.ShiftRequestResponse, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}

	created, err := s.engine.Create(ctx, actingID, CreateRequestInput{
		Kind:          req.Kind,
		SourceShiftID: req.SourceShiftID,
		TargetShiftID: emptyToNil(req.TargetShiftID),
		TargetStaffID: emptyToNil(req.TargetStaffID),
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return toShiftRequestResponse(created, nil), nil
}

func (s *marketplaceService) Claim(ctx context.Context, actor Actor, requestID string) (*dto.ShiftRequestResponse, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Claim(ctx, requestID, actingID)
	return s.finish(ctx, out, actingID, err)
}

func (s *marketplaceService) RespondToSwap(ctx context.Context, actor Actor, requestID string, accept bool) (*dto.ShiftRequestResponse, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.RespondToSwap(ctx, requestID, actingID, accept)
	return s.finish(ctx, out, actingID, err)
}

func (s *marketplaceService) Resolve(ctx context.Context, actor Actor, requestID string, req *dto.ResolveShiftRequestRequest) (*dto.ShiftRequestResponse, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Resolve(ctx, requestID, actingID, req.Approve != nil && *req.Approve, req.Notes)
	return s.finish(ctx, out, actingID, err)
}

func (s *marketplaceService) Cancel(ctx context.Context, actor Actor, requestID string) (*dto.ShiftRequestResponse, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Cancel(ctx, requestID, actingID)
	return s.finish(ctx, out, actingID, err)
}

// finish 事务已提交：发送通知并转换响应
func (s *marketplaceService) finish(ctx context.Context, out *Outcome, actingID string, err error) (*dto.ShiftRequestResponse, error) {
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.RequestChanged(ctx, out, actingID)
	}
	return toShiftRequestResponse(out.Request, out.Cancelled), nil
}

// ════════════════════════════════════════════════════════════
// 读操作
// ════════════════════════════════════════════════════════════

func (s *marketplaceService) GetRequest(ctx context.Context, actor Actor, requestID string) (*dto.ShiftRequestDetailResponse, error) {
	if _, err := s.viewer(ctx, actor); err != nil {
		return nil, err
	}

	row, err := s.view.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, reporting.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("查询申请详情失败", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}

	logs, err := s.repo.ShiftChangeLog.ListByRequest(ctx, requestID)
	if err != nil {
		s.logger.Error("查询变更日志失败", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}

	detail := &dto.ShiftRequestDetailResponse{MarketplaceRequestView: toRequestView(row)}
	for _, l := range logs {
		detail.ChangeLogs = append(detail.ChangeLogs, dto.ShiftChangeLogResponse{
			ID:                 l.ChangeLogID,
			ShiftID:            l.ShiftID,
			OriginalAssigneeID: l.OriginalAssigneeID,
			NewAssigneeID:      l.NewAssigneeID,
			ChangeType:         l.ChangeType,
			OperatorID:         l.OperatorID,
			CreatedAt:          dto.FormatTime(l.CreatedAt),
		})
	}
	return detail, nil
}

func (s *marketplaceService) ListOpen(ctx context.Context, actor Actor, req *dto.MarketplaceListRequest) ([]dto.MarketplaceRequestView, int64, error) {
	viewerID, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	rows, total, err := s.view.ListOpen(ctx, viewerID, req.GetPageSize(), req.GetOffset())
	if err != nil {
		s.logger.Error("查询开放申请失败", zap.Error(err))
		return nil, 0, err
	}
	return toRequestViews(rows), total, nil
}

func (s *marketplaceService) ListMine(ctx context.Context, actor Actor, req *dto.MarketplaceListRequest) ([]dto.MarketplaceRequestView, int64, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	rows, total, err := s.view.ListByRequester(ctx, actingID, req.GetPageSize(), req.GetOffset())
	if err != nil {
		s.logger.Error("查询我的申请失败", zap.Error(err))
		return nil, 0, err
	}
	return toRequestViews(rows), total, nil
}

func (s *marketplaceService) ListIncoming(ctx context.Context, actor Actor) ([]dto.MarketplaceRequestView, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}
	rows, err := s.view.ListIncoming(ctx, actingID)
	if err != nil {
		s.logger.Error("查询待响应互换失败", zap.Error(err))
		return nil, err
	}
	return toRequestViews(rows), nil
}

func (s *marketplaceService) ListPendingApprovals(ctx context.Context, actor Actor) ([]dto.MarketplaceRequestView, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}
	roleIDs, all, err := s.perms.EditableRoles(ctx, actingID)
	if err != nil {
		return nil, err
	}
	if !all && len(roleIDs) == 0 {
		return nil, ErrNotApprover
	}
	rows, err := s.view.ListPendingApprovals(ctx, roleIDs, all)
	if err != nil {
		s.logger.Error("查询待审批申请失败", zap.Error(err))
		return nil, err
	}
	return toRequestViews(rows), nil
}

func (s *marketplaceService) Dashboard(ctx context.Context, actor Actor) (*dto.MarketplaceDashboardResponse, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}
	roleIDs, all, err := s.perms.EditableRoles(ctx, actingID)
	if err != nil {
		return nil, err
	}
	counts, err := s.view.Dashboard(ctx, actingID, roleIDs, all)
	if err != nil {
		s.logger.Error("查询市场看板失败", zap.Error(err))
		return nil, err
	}
	return &dto.MarketplaceDashboardResponse{
		OpenRequests:     counts.OpenRequests,
		MyActiveRequests: counts.MyActiveRequests,
		IncomingSwaps:    counts.IncomingSwaps,
		PendingApprovals: counts.PendingApprovals,
	}, nil
}

func (s *marketplaceService) ListSwappableShifts(ctx context.Context, actor Actor, req *dto.SwappableShiftsRequest) ([]dto.ShiftBrief, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	rows, err := s.view.ListSwappableShifts(ctx, actingID, req.ExcludeShiftID, today)
	if err != nil {
		s.logger.Error("查询可互换班次失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.ShiftBrief, 0, len(rows))
	for _, r := range rows {
		list = append(list, dto.ShiftBrief{
			ID:           r.ShiftID,
			Date:         r.ShiftDate.Format("2006-01-02"),
			StartTime:    r.StartTime,
			EndTime:      r.EndTime,
			RoleID:       r.RoleID,
			RoleName:     r.RoleName,
			Location:     derefString(r.Location),
			AssigneeID:   r.AssigneeID,
			AssigneeName: r.AssigneeName,
		})
	}
	return list, nil
}

// ── 身份解析 ──

func (s *marketplaceService) RequireApprover(ctx context.Context, actor Actor) (string, error) {
	actingID, err := s.acting(ctx, actor)
	if err != nil {
		return "", err
	}
	roleIDs, all, err := s.perms.EditableRoles(ctx, actingID)
	if err != nil {
		return "", err
	}
	if !all && len(roleIDs) == 0 {
		return "", ErrNotApprover
	}
	return actingID, nil
}

func (s *marketplaceService) ActingID(ctx context.Context, actor Actor) (string, error) {
	return s.acting(ctx, actor)
}

// acting 解析实际操作成员，共享账号未确认时返回 ErrAmbiguousActor
func (s *marketplaceService) acting(ctx context.Context, actor Actor) (string, error) {
	return s.identity.ResolveActingIdentity(ctx, actor.PrincipalID, actor.ConfirmedStaffID)
}

// viewer 只读浏览身份：共享账号未确认时以账号本身浏览
func (s *marketplaceService) viewer(ctx context.Context, actor Actor) (string, error) {
	id, err := s.acting(ctx, actor)
	if errors.Is(err, ErrAmbiguousActor) {
		return actor.PrincipalID, nil
	}
	return id, err
}

// ── 转换函数 ──

func toShiftRequestResponse(r *model.ShiftRequest, cancelled []model.ShiftRequest) *dto.ShiftRequestResponse {
	resp := &dto.ShiftRequestResponse{
		ID:            r.RequestID,
		Kind:          r.Kind,
		Status:        r.Status,
		SourceShiftID: r.SourceShiftID,
		TargetShiftID: r.TargetShiftID,
		RequesterID:   r.RequesterID,
		TargetStaffID: r.TargetStaffID,
		CandidateID:   r.CandidateID,
		ResolvedBy:    r.ResolvedBy,
		ResolvedAt:    dto.FormatTimePtr(r.ResolvedAt),
		Notes:         r.Notes,
		Version:       r.Version,
		CreatedAt:     dto.FormatTime(r.CreatedAt),
		UpdatedAt:     dto.FormatTime(r.UpdatedAt),
	}
	for _, c := range cancelled {
		resp.CancelledCompetitors = append(resp.CancelledCompetitors, c.RequestID)
	}
	return resp
}

func toRequestViews(rows []reporting.RequestRow) []dto.MarketplaceRequestView {
	list := make([]dto.MarketplaceRequestView, 0, len(rows))
	for i := range rows {
		list = append(list, toRequestView(&rows[i]))
	}
	return list
}

func toRequestView(r *reporting.RequestRow) dto.MarketplaceRequestView {
	v := dto.MarketplaceRequestView{
		ID:     r.RequestID,
		Kind:   r.Kind,
		Status: r.Status,
		SourceShift: dto.ShiftBrief{
			ID:           r.SourceShiftID,
			Date:         r.SourceDate.Format("2006-01-02"),
			StartTime:    r.SourceStart,
			EndTime:      r.SourceEnd,
			RoleID:       r.SourceRoleID,
			RoleName:     r.SourceRoleName,
			Location:     derefString(r.SourceLocation),
			AssigneeID:   r.SourceAssigneeID,
			AssigneeName: r.SourceAssigneeName,
		},
		RequesterID:     r.RequesterID,
		RequesterName:   r.RequesterName,
		TargetStaffID:   r.TargetStaffID,
		TargetStaffName: r.TargetStaffName,
		CandidateID:     r.CandidateID,
		CandidateName:   r.CandidateName,
		ResolvedBy:      r.ResolvedBy,
		ResolvedAt:      dto.FormatTimePtr(r.ResolvedAt),
		Notes:           derefString(r.Notes),
		CreatedAt:       dto.FormatTime(r.CreatedAt),
	}
	if r.TargetShiftID != nil {
		target := dto.ShiftBrief{
			ID:           *r.TargetShiftID,
			StartTime:    derefString(r.TargetStart),
			EndTime:      derefString(r.TargetEnd),
			RoleID:       derefString(r.TargetRoleID),
			RoleName:     derefString(r.TargetRoleName),
			Location:     derefString(r.TargetLocation),
			AssigneeID:   r.TargetAssigneeID,
			AssigneeName: r.TargetAssigneeName,
		}
		if r.TargetDate != nil {
			target.Date = r.TargetDate.Format("2006-01-02")
		}
		v.TargetShift = &target
	}
	return v
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func emptyToNil(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

// [自证通过] internal/service/marketplace_service.go
