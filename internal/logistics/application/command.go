// Package application 原件物流服务应用层
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/magellan/internal/logistics/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/messagequeue"
)

// CommandService 原件命令服务
// 每次状态迁移在单个事务内落库并写 outbox 事件，
// 核验与取消之后在同一事务内重算政府递交就绪度。
type CommandService struct {
	repo          domain.OriginalRepository
	authenticator domain.DocumentAuthenticator
	readiness     domain.ReadinessNotifier
	publisher     messagequeue.EventPublisher
	logger        *slog.Logger
}

// NewCommandService 创建原件命令服务
func NewCommandService(
	repo domain.OriginalRepository,
	authenticator domain.DocumentAuthenticator,
	readiness domain.ReadinessNotifier,
	publisher messagequeue.EventPublisher,
	logger *slog.Logger,
) *CommandService {
	return &CommandService{
		repo:          repo,
		authenticator: authenticator,
		readiness:     readiness,
		publisher:     publisher,
		logger:        logger,
	}
}

// InitTracking 数字材料评审通过后登记原件追踪记录
// 由材料上下文在评审事务内调用，幂等：同一数字材料只登记一次。
func (s *CommandService) InitTracking(ctx context.Context, documentID, applicationID string, requirementID, stageID uint, requirementName string, isRequired bool, _ time.Time) error {
	existing, err := s.repo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	original := domain.NewOriginalDocument(
		fmt.Sprintf("ORG%s", idgen.GenIDString()),
		documentID, applicationID, requirementID, stageID, requirementName, isRequired,
	)
	if err := s.repo.Create(ctx, original); err != nil {
		return err
	}
	// 新增待处理原件，已就绪的申请回退为未就绪
	return s.recalcReadiness(ctx, applicationID)
}

// RequestCommand 发起原件递交请求命令
type RequestCommand struct {
	OriginalID      string
	ShippingAddress string
	IsUrgent        bool
	Deadline        *time.Time
	RequestedBy     string
}

// Request 向客户发起原件递交请求
func (s *CommandService) Request(ctx context.Context, cmd RequestCommand) (*domain.OriginalDocument, error) {
	original, err := s.load(ctx, cmd.OriginalID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := original.Request(cmd.ShippingAddress, cmd.IsUrgent, cmd.Deadline, cmd.RequestedBy, now); err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, original); err != nil {
			return err
		}
		event := domain.OriginalRequestedEvent{
			OriginalID:      original.OriginalID,
			ApplicationID:   original.ApplicationID,
			RequirementName: original.RequirementName,
			ShippingAddress: original.ShippingAddress,
			IsUrgent:        original.IsUrgent,
			Deadline:        original.Deadline,
			RequestedAt:     now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.OriginalRequestedEventType, original.OriginalID, event)
	})
	if err != nil {
		return nil, err
	}
	return original, nil
}

// ShippingCommand 寄出登记命令
type ShippingCommand struct {
	OriginalID     string
	CourierService string
	TrackingNumber string
	ShippedAt      *time.Time
}

// UpdateShipping 客户寄出，登记承运与运单信息
func (s *CommandService) UpdateShipping(ctx context.Context, cmd ShippingCommand) (*domain.OriginalDocument, error) {
	original, err := s.load(ctx, cmd.OriginalID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := original.UpdateShipping(cmd.CourierService, cmd.TrackingNumber, cmd.ShippedAt, now); err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, original); err != nil {
			return err
		}
		event := domain.OriginalShippedEvent{
			OriginalID:     original.OriginalID,
			ApplicationID:  original.ApplicationID,
			CourierService: original.CourierService,
			TrackingNumber: original.TrackingNumber,
			ShippedAt:      *original.ShippedAt,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.OriginalShippedEventType, original.OriginalID, event)
	})
	if err != nil {
		return nil, err
	}
	return original, nil
}

// ReceiptCommand 签收命令
type ReceiptCommand struct {
	OriginalID   string
	Condition    domain.DocumentCondition
	ReceivedAt   *time.Time
	QualityNotes string
	ReceivedBy   string
}

// ConfirmReceipt 签收并评估品相
func (s *CommandService) ConfirmReceipt(ctx context.Context, cmd ReceiptCommand) (*domain.OriginalDocument, error) {
	original, err := s.load(ctx, cmd.OriginalID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := original.ConfirmReceipt(cmd.Condition, cmd.ReceivedAt, cmd.QualityNotes, cmd.ReceivedBy, now); err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, original); err != nil {
			return err
		}
		event := domain.OriginalReceivedEvent{
			OriginalID:    original.OriginalID,
			ApplicationID: original.ApplicationID,
			Condition:     original.DocumentCondition,
			QualityNotes:  original.QualityNotes,
			ReceivedAt:    *original.ReceivedAt,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.OriginalReceivedEventType, original.OriginalID, event)
	})
	if err != nil {
		return nil, err
	}
	return original, nil
}

// VerificationCommand 核验命令
type VerificationCommand struct {
	OriginalID      string
	Status          domain.VerificationStatus
	Notes           string
	IsAuthenticated bool
	VerifiedBy      string
}

// CompleteVerification 完成核验
// verified 时回写数字材料的认证日期并重算政府递交就绪度，全部在同一事务内。
func (s *CommandService) CompleteVerification(ctx context.Context, cmd VerificationCommand) (*domain.OriginalDocument, error) {
	original, err := s.load(ctx, cmd.OriginalID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := original.CompleteVerification(cmd.Status, cmd.Notes, cmd.IsAuthenticated, cmd.VerifiedBy, now); err != nil {
		return nil, err
	}
	verified := cmd.Status == domain.VerificationVerified

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, original); err != nil {
			return err
		}
		if verified {
			if cmd.IsAuthenticated {
				if err := s.authenticator.MarkAuthenticated(txCtx, original.DocumentID, now); err != nil {
					return err
				}
			}
			if err := s.recalcReadiness(txCtx, original.ApplicationID); err != nil {
				return err
			}
		}
		eventType := domain.OriginalVerifiedEventType
		if !verified {
			eventType = domain.OriginalRejectedEventType
		}
		event := domain.OriginalVerifiedEvent{
			OriginalID:      original.OriginalID,
			ApplicationID:   original.ApplicationID,
			RequirementName: original.RequirementName,
			Verified:        verified,
			IsAuthenticated: cmd.IsAuthenticated,
			Notes:           cmd.Notes,
			VerifiedAt:      now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), eventType, original.OriginalID, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "original verification completed",
		"original_id", original.OriginalID, "application_id", original.ApplicationID, "verified", verified)
	return original, nil
}

// Cancel 取消原件追踪并硬删除记录
// 原件已寄出或已入库时必须显式确认，防止误删在途实物的追踪。
func (s *CommandService) Cancel(ctx context.Context, originalID, cancelledBy string, confirmed bool) error {
	original, err := s.load(ctx, originalID)
	if err != nil {
		return err
	}
	if !original.CanCancel() {
		return apperrors.InvalidTransition("original document", string(original.Status), "cancel")
	}
	if original.CancellationNeedsWarning() && !confirmed {
		return apperrors.PreconditionNotMet("original %s is %s; physical document may be in transit, pass confirmed=true to cancel", originalID, original.Status)
	}
	now := time.Now()
	fromStatus := original.Status

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, original); err != nil {
			return err
		}
		// 被取消的原件不再计入就绪度，可能使申请转为就绪
		if err := s.recalcReadiness(txCtx, original.ApplicationID); err != nil {
			return err
		}
		event := domain.OriginalCancelledEvent{
			OriginalID:    original.OriginalID,
			ApplicationID: original.ApplicationID,
			FromStatus:    string(fromStatus),
			CancelledBy:   cancelledBy,
			CancelledAt:   now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.OriginalCancelledEventType, original.OriginalID, event)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "original tracking cancelled",
		"original_id", originalID, "from_status", fromStatus, "cancelled_by", cancelledBy)
	return nil
}

// recalcReadiness 重算政府递交就绪度
// 全部必要原件 originals_verified（或已盖章）即就绪；就绪时批量盖章
// ready_for_government 并通知案卷上下文。空集为真：在途原件
// 全部取消后申请同样就绪。
func (s *CommandService) recalcReadiness(ctx context.Context, applicationID string) error {
	originals, err := s.repo.ListByApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	ready := true
	for _, o := range originals {
		if o.IsRequired && !o.SatisfiesGovernmentReadiness() {
			ready = false
			break
		}
	}
	if !ready {
		return s.readiness.SetGovernmentReady(ctx, applicationID, false)
	}

	now := time.Now()
	stamped := 0
	for _, o := range originals {
		if o.Status != domain.StatusOriginalsVerified {
			continue
		}
		if err := o.MarkReadyForGovernment(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		stamped++
	}
	if err := s.readiness.SetGovernmentReady(ctx, applicationID, true); err != nil {
		return err
	}
	if stamped > 0 {
		event := domain.GovernmentReadyEvent{
			ApplicationID: applicationID,
			OriginalCount: len(originals),
			ReadyAt:       now,
		}
		if tx := contextx.GetTx(ctx); tx != nil {
			return s.publisher.PublishInTx(ctx, tx, domain.GovernmentReadyEventType, applicationID, event)
		}
		return s.publisher.Publish(ctx, domain.GovernmentReadyEventType, applicationID, event)
	}
	return nil
}

func (s *CommandService) load(ctx context.Context, originalID string) (*domain.OriginalDocument, error) {
	if originalID == "" {
		return nil, apperrors.Validation("original_id is required")
	}
	original, err := s.repo.GetByOriginalID(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, apperrors.NotFound("original document", originalID)
	}
	return original, nil
}
