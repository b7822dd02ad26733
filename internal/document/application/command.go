// Package application 数字材料服务应用层
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/magellan/internal/document/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/messagequeue"
)

// CommandService 材料命令服务
// 每个状态迁移在单个事务内完成：材料更新、进度重算、
// 原件登记与 outbox 事件写入要么全部提交要么全部回滚。
type CommandService struct {
	docRepo   domain.DocumentRepository
	catalog   domain.RequirementCatalog
	progress  domain.ProgressRecalculator
	originals domain.OriginalTracker
	publisher messagequeue.EventPublisher
	logger    *slog.Logger
}

// NewCommandService 创建材料命令服务
func NewCommandService(
	docRepo domain.DocumentRepository,
	catalog domain.RequirementCatalog,
	progress domain.ProgressRecalculator,
	originals domain.OriginalTracker,
	publisher messagequeue.EventPublisher,
	logger *slog.Logger,
) *CommandService {
	return &CommandService{
		docRepo:   docRepo,
		catalog:   catalog,
		progress:  progress,
		originals: originals,
		publisher: publisher,
		logger:    logger,
	}
}

// UploadCommand 上传命令
type UploadCommand struct {
	ApplicationID string
	RequirementID uint
	FileName      string
	FileURL       string
	FileSizeBytes int64
	UploadedBy    string
}

// Upload 上传或重传材料文件
func (s *CommandService) Upload(ctx context.Context, cmd UploadCommand) (*domain.ApplicationDocument, error) {
	if cmd.ApplicationID == "" || cmd.RequirementID == 0 {
		return nil, apperrors.Validation("application_id and requirement_id are required")
	}
	if cmd.FileName == "" || cmd.FileURL == "" {
		return nil, apperrors.Validation("file_name and file_url are required")
	}
	if err := s.catalog.ValidateFile(ctx, cmd.RequirementID, cmd.FileName, cmd.FileSizeBytes); err != nil {
		return nil, err
	}
	req, err := s.catalog.GetRequirement(ctx, cmd.RequirementID)
	if err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByRequirement(ctx, cmd.ApplicationID, cmd.RequirementID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	resubmission := doc != nil && doc.Status == domain.StatusRejected
	created := doc == nil
	if created {
		doc = domain.NewApplicationDocument(
			fmt.Sprintf("DOC%s", idgen.GenIDString()),
			cmd.ApplicationID, cmd.RequirementID, req.StageID, req.Category, req.ExpirationMonths,
		)
	}
	if err := doc.AttachFile(cmd.FileName, cmd.FileURL, cmd.FileSizeBytes, cmd.UploadedBy, now); err != nil {
		return nil, err
	}

	err = s.docRepo.WithTx(ctx, func(txCtx context.Context) error {
		if created {
			if err := s.docRepo.Create(txCtx, doc); err != nil {
				return err
			}
		} else if err := s.docRepo.Update(txCtx, doc); err != nil {
			return err
		}
		event := domain.DocumentUploadedEvent{
			DocumentID:    doc.DocumentID,
			ApplicationID: doc.ApplicationID,
			RequirementID: doc.RequirementID,
			StageID:       doc.StageID,
			FileName:      doc.FileName,
			Resubmission:  resubmission,
			Timestamp:     now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.DocumentUploadedEventType, doc.DocumentID, event)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// StartReview 进入评审
func (s *CommandService) StartReview(ctx context.Context, documentID string) (*domain.ApplicationDocument, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := doc.StartReview(); err != nil {
		return nil, err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ApproveCommand 评审通过命令
type ApproveCommand struct {
	DocumentID string
	ReviewedBy string
	Comments   string
}

// Approve 评审通过
// 同一事务内：状态落库、阶段进度重算、参与原件追踪的类别登记原件记录。
func (s *CommandService) Approve(ctx context.Context, cmd ApproveCommand) (*domain.ApplicationDocument, error) {
	doc, err := s.loadDocument(ctx, cmd.DocumentID)
	if err != nil {
		return nil, err
	}
	req, err := s.catalog.GetRequirement(ctx, doc.RequirementID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := doc.Approve(cmd.ReviewedBy, cmd.Comments, now); err != nil {
		return nil, err
	}

	err = s.docRepo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Update(txCtx, doc); err != nil {
			return err
		}
		if req.TracksOriginal {
			if err := s.originals.InitTracking(txCtx, doc.DocumentID, doc.ApplicationID, doc.RequirementID, doc.StageID, req.Name, req.IsRequired, now); err != nil {
				return err
			}
		}
		if err := s.progress.StageChanged(txCtx, doc.ApplicationID, doc.StageID); err != nil {
			return err
		}
		event := domain.DocumentApprovedEvent{
			DocumentID:     doc.DocumentID,
			ApplicationID:  doc.ApplicationID,
			RequirementID:  doc.RequirementID,
			StageID:        doc.StageID,
			Category:       doc.Category,
			ReviewedBy:     cmd.ReviewedBy,
			TracksOriginal: req.TracksOriginal,
			Timestamp:      now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.DocumentApprovedEventType, doc.DocumentID, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "document approved",
		"document_id", doc.DocumentID, "application_id", doc.ApplicationID, "stage_id", doc.StageID)
	return doc, nil
}

// RejectCommand 评审驳回命令
type RejectCommand struct {
	DocumentID string
	ReviewedBy string
	Reason     string
	Comments   string
}

// Reject 评审驳回，原因必填
func (s *CommandService) Reject(ctx context.Context, cmd RejectCommand) (*domain.ApplicationDocument, error) {
	doc, err := s.loadDocument(ctx, cmd.DocumentID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := doc.Reject(cmd.ReviewedBy, cmd.Reason, cmd.Comments, now); err != nil {
		return nil, err
	}

	err = s.docRepo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Update(txCtx, doc); err != nil {
			return err
		}
		event := domain.DocumentRejectedEvent{
			DocumentID:    doc.DocumentID,
			ApplicationID: doc.ApplicationID,
			RequirementID: doc.RequirementID,
			StageID:       doc.StageID,
			ReviewedBy:    cmd.ReviewedBy,
			Reason:        cmd.Reason,
			Timestamp:     now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.DocumentRejectedEventType, doc.DocumentID, event)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RequestClarification 澄清请求，不改变状态
func (s *CommandService) RequestClarification(ctx context.Context, documentID, requestedBy, comments string) error {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := doc.RequireClarification(comments); err != nil {
		return err
	}
	event := domain.DocumentClarificationEvent{
		DocumentID:    doc.DocumentID,
		ApplicationID: doc.ApplicationID,
		RequestedBy:   requestedBy,
		Comments:      comments,
		Timestamp:     time.Now(),
	}
	// 无状态变更，事件失败不阻塞调用方
	if err := s.publisher.Publish(ctx, domain.DocumentClarificationEventType, doc.DocumentID, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish clarification event", "document_id", documentID, "error", err)
	}
	return nil
}

// Waive 顾问豁免条件性要求
// 目录中的 is_required=false 条目是否适用由顾问显式裁定，
// 尚无上传记录时先建一条 pending 记录承载豁免标记。
func (s *CommandService) Waive(ctx context.Context, applicationID string, requirementID uint, waivedBy string) error {
	req, err := s.catalog.GetRequirement(ctx, requirementID)
	if err != nil {
		return err
	}
	if req.IsRequired {
		return apperrors.Validation("requirement %q is unconditionally required and cannot be waived", req.Name)
	}
	doc, err := s.docRepo.GetByRequirement(ctx, applicationID, requirementID)
	if err != nil {
		return err
	}
	created := doc == nil
	if created {
		doc = domain.NewApplicationDocument(
			fmt.Sprintf("DOC%s", idgen.GenIDString()),
			applicationID, requirementID, req.StageID, req.Category, req.ExpirationMonths,
		)
	}
	doc.Waive(waivedBy)

	return s.docRepo.WithTx(ctx, func(txCtx context.Context) error {
		if created {
			if err := s.docRepo.Create(txCtx, doc); err != nil {
				return err
			}
		} else if err := s.docRepo.Update(txCtx, doc); err != nil {
			return err
		}
		return s.progress.StageChanged(txCtx, applicationID, doc.StageID)
	})
}

// ExpireDueDocuments 过期扫描
// 只做 approved → expired 单向迁移，绝不触碰顾问控制的状态。
func (s *CommandService) ExpireDueDocuments(ctx context.Context, now time.Time, limit int) (int, error) {
	docs, err := s.docRepo.ListExpiring(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, doc := range docs {
		if !doc.ExpireIfDue(now) {
			continue
		}
		err := s.docRepo.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.docRepo.Update(txCtx, doc); err != nil {
				return err
			}
			if err := s.progress.StageChanged(txCtx, doc.ApplicationID, doc.StageID); err != nil {
				return err
			}
			event := domain.DocumentExpiredEvent{
				DocumentID:    doc.DocumentID,
				ApplicationID: doc.ApplicationID,
				RequirementID: doc.RequirementID,
				StageID:       doc.StageID,
				Timestamp:     now,
			}
			return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.DocumentExpiredEventType, doc.DocumentID, event)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to expire document", "document_id", doc.DocumentID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// MarkAuthenticated 回写原件公证认证日期，有效期改自该日期起算
func (s *CommandService) MarkAuthenticated(ctx context.Context, documentID string, at time.Time) error {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}
	doc.MarkAuthenticated(at)
	return s.docRepo.Update(ctx, doc)
}

func (s *CommandService) loadDocument(ctx context.Context, documentID string) (*domain.ApplicationDocument, error) {
	if documentID == "" {
		return nil, apperrors.Validation("document_id is required")
	}
	doc, err := s.docRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperrors.NotFound("document", documentID)
	}
	return doc, nil
}
