// Package application 通知服务应用层
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/magellan/internal/notification/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/idgen"
)

// NotificationService 通知服务
// 先落库再发送，发送失败只标记 FAILED 留待重发，不向上游传播。
type NotificationService struct {
	repo   domain.NotificationRepository
	email  domain.Sender
	logger *slog.Logger
}

// NewNotificationService 创建通知服务
func NewNotificationService(repo domain.NotificationRepository, email domain.Sender, logger *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, email: email, logger: logger}
}

// NotifyCommand 通知命令
type NotifyCommand struct {
	ApplicationID string
	Recipient     string
	Target        string
	Type          domain.NotificationType
	EventType     string
	Subject       string
	Content       string
}

// Notify 创建并发送通知
func (s *NotificationService) Notify(ctx context.Context, cmd NotifyCommand) (*domain.Notification, error) {
	if cmd.Recipient == "" || cmd.Subject == "" {
		return nil, apperrors.Validation("recipient and subject are required")
	}
	if cmd.Type == "" {
		cmd.Type = domain.NotificationTypeEmail
	}
	notification := &domain.Notification{
		NotificationID: fmt.Sprintf("NTF%s", idgen.GenIDString()),
		ApplicationID:  cmd.ApplicationID,
		Recipient:      cmd.Recipient,
		Type:           cmd.Type,
		EventType:      cmd.EventType,
		Subject:        cmd.Subject,
		Content:        cmd.Content,
		Target:         cmd.Target,
		Status:         domain.NotificationStatusPending,
	}
	if err := s.repo.Save(ctx, notification); err != nil {
		return nil, err
	}

	s.deliver(ctx, notification)
	if err := s.repo.Save(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// ResendFailed 重发失败的通知
func (s *NotificationService) ResendFailed(ctx context.Context, limit int) (int, error) {
	failed, err := s.repo.ListFailed(ctx, limit)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, n := range failed {
		s.deliver(ctx, n)
		if err := s.repo.Save(ctx, n); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist notification", "notification_id", n.NotificationID, "error", err)
			continue
		}
		if n.Status == domain.NotificationStatusSent {
			sent++
		}
	}
	return sent, nil
}

// ListByRecipient 按收件人查询通知
func (s *NotificationService) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*domain.Notification, error) {
	if recipient == "" {
		return nil, apperrors.Validation("recipient is required")
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByRecipient(ctx, recipient, limit)
}

// ListByApplication 按申请查询通知
func (s *NotificationService) ListByApplication(ctx context.Context, applicationID string) ([]*domain.Notification, error) {
	if applicationID == "" {
		return nil, apperrors.Validation("application_id is required")
	}
	return s.repo.ListByApplication(ctx, applicationID)
}

func (s *NotificationService) deliver(ctx context.Context, n *domain.Notification) {
	if n.Target == "" {
		n.MarkFailed(fmt.Errorf("no delivery target for recipient %s", n.Recipient))
		return
	}
	if err := s.email.Send(ctx, n.Target, n.Subject, n.Content); err != nil {
		s.logger.WarnContext(ctx, "notification delivery failed",
			"notification_id", n.NotificationID, "target", n.Target, "error", err)
		n.MarkFailed(err)
		return
	}
	n.MarkSent(time.Now())
}
