// Package mysql 数字材料服务基础设施层
// 统一处理事务上下文 (contextx.GetTx)，聚合更新走乐观锁版本号。
package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/magellan/internal/document/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

type documentRepository struct{ db *gorm.DB }

// NewDocumentRepository 创建材料仓储
func NewDocumentRepository(db *gorm.DB) domain.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

func (r *documentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.ApplicationDocument) error {
	return r.getDB(ctx).WithContext(ctx).Create(doc).Error
}

// Update 乐观锁更新，版本不匹配说明输掉了并发写，返回 CONFLICT
func (r *documentRepository) Update(ctx context.Context, doc *domain.ApplicationDocument) error {
	currentVersion := doc.Version
	doc.Version++
	res := r.getDB(ctx).WithContext(ctx).
		Model(&domain.ApplicationDocument{}).
		Where("id = ? AND version = ?", doc.ID, currentVersion).
		Updates(map[string]any{
			"status":           doc.Status,
			"file_name":        doc.FileName,
			"file_url":         doc.FileURL,
			"file_size_bytes":  doc.FileSizeBytes,
			"uploaded_by":      doc.UploadedBy,
			"uploaded_at":      doc.UploadedAt,
			"reviewed_by":      doc.ReviewedBy,
			"reviewed_at":      doc.ReviewedAt,
			"rejection_reason": doc.RejectionReason,
			"review_comments":  doc.ReviewComments,
			"authenticated_at": doc.AuthenticatedAt,
			"waived":           doc.Waived,
			"waived_by":        doc.WaivedBy,
			"version":          doc.Version,
		})
	if res.Error != nil {
		doc.Version = currentVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		doc.Version = currentVersion
		return apperrors.Conflict("document", doc.DocumentID)
	}
	return nil
}

func (r *documentRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.ApplicationDocument, error) {
	var doc domain.ApplicationDocument
	err := r.getDB(ctx).WithContext(ctx).Where("document_id = ?", documentID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) GetByRequirement(ctx context.Context, applicationID string, requirementID uint) (*domain.ApplicationDocument, error) {
	var doc domain.ApplicationDocument
	err := r.getDB(ctx).WithContext(ctx).
		Where("application_id = ? AND requirement_id = ?", applicationID, requirementID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ListByApplication(ctx context.Context, applicationID string) ([]*domain.ApplicationDocument, error) {
	var docs []*domain.ApplicationDocument
	err := r.getDB(ctx).WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("stage_id ASC, requirement_id ASC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) ListByStage(ctx context.Context, applicationID string, stageID uint) ([]*domain.ApplicationDocument, error) {
	var docs []*domain.ApplicationDocument
	err := r.getDB(ctx).WithContext(ctx).
		Where("application_id = ? AND stage_id = ?", applicationID, stageID).
		Find(&docs).Error
	return docs, err
}

// ListExpiring 截止时间在 SQL 内计算，认证日期存在时从它起算
// 最早到期的排在前面，分批扫描不会被未到期的记录占满
func (r *documentRepository) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*domain.ApplicationDocument, error) {
	var docs []*domain.ApplicationDocument
	err := r.getDB(ctx).WithContext(ctx).
		Where("status = ? AND expiration_months IS NOT NULL AND uploaded_at IS NOT NULL", domain.StatusApproved).
		Where("DATE_ADD(COALESCE(authenticated_at, uploaded_at), INTERVAL expiration_months MONTH) <= ?", before).
		Order("DATE_ADD(COALESCE(authenticated_at, uploaded_at), INTERVAL expiration_months MONTH) ASC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int64, error) {
	type row struct {
		Status domain.DocumentStatus
		Total  int64
	}
	var rows []row
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.ApplicationDocument{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.DocumentStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
