// Package mysql 原件物流服务基础设施层
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/magellan/internal/logistics/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

type originalRepository struct{ db *gorm.DB }

// NewOriginalRepository 创建原件仓储
func NewOriginalRepository(db *gorm.DB) domain.OriginalRepository {
	return &originalRepository{db: db}
}

func (r *originalRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

func (r *originalRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *originalRepository) Create(ctx context.Context, original *domain.OriginalDocument) error {
	return r.getDB(ctx).WithContext(ctx).Create(original).Error
}

// Update 乐观锁更新，版本不匹配返回 CONFLICT
func (r *originalRepository) Update(ctx context.Context, original *domain.OriginalDocument) error {
	currentVersion := original.Version
	original.Version++
	res := r.getDB(ctx).WithContext(ctx).
		Model(&domain.OriginalDocument{}).
		Where("id = ? AND version = ?", original.ID, currentVersion).
		Updates(map[string]any{
			"status":             original.Status,
			"shipping_address":   original.ShippingAddress,
			"is_urgent":          original.IsUrgent,
			"deadline":           original.Deadline,
			"requested_by":       original.RequestedBy,
			"requested_at":       original.RequestedAt,
			"courier_service":    original.CourierService,
			"tracking_number":    original.TrackingNumber,
			"shipped_at":         original.ShippedAt,
			"received_at":        original.ReceivedAt,
			"received_by":        original.ReceivedBy,
			"document_condition": original.DocumentCondition,
			"quality_notes":      original.QualityNotes,
			"verified_by":        original.VerifiedBy,
			"verified_at":        original.VerifiedAt,
			"verification_notes": original.VerificationNotes,
			"is_authenticated":   original.IsAuthenticated,
			"authenticated_at":   original.AuthenticatedAt,
			"internal_reference": original.InternalReference,
			"version":            original.Version,
		})
	if res.Error != nil {
		original.Version = currentVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		original.Version = currentVersion
		return apperrors.Conflict("original document", original.OriginalID)
	}
	return nil
}

// Delete 硬删除，取消的原件不保留软删记录
func (r *originalRepository) Delete(ctx context.Context, original *domain.OriginalDocument) error {
	return r.getDB(ctx).WithContext(ctx).Unscoped().Delete(original).Error
}

func (r *originalRepository) GetByOriginalID(ctx context.Context, originalID string) (*domain.OriginalDocument, error) {
	var original domain.OriginalDocument
	err := r.getDB(ctx).WithContext(ctx).Where("original_id = ?", originalID).First(&original).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &original, nil
}

func (r *originalRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.OriginalDocument, error) {
	var original domain.OriginalDocument
	err := r.getDB(ctx).WithContext(ctx).Where("document_id = ?", documentID).First(&original).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &original, nil
}

func (r *originalRepository) ListByApplication(ctx context.Context, applicationID string) ([]*domain.OriginalDocument, error) {
	var originals []*domain.OriginalDocument
	err := r.getDB(ctx).WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("requirement_id ASC").
		Find(&originals).Error
	return originals, err
}

func (r *originalRepository) ListUrgentPending(ctx context.Context, limit int) ([]*domain.OriginalDocument, error) {
	var originals []*domain.OriginalDocument
	err := r.getDB(ctx).WithContext(ctx).
		Where("is_urgent = ? AND status IN ?", true,
			[]domain.OriginalStatus{domain.StatusOriginalsRequested, domain.StatusOriginalsShipped}).
		Order("deadline ASC").
		Limit(limit).
		Find(&originals).Error
	return originals, err
}

func (r *originalRepository) CountByStatus(ctx context.Context, applicationID string) (map[domain.OriginalStatus]int64, error) {
	type row struct {
		Status domain.OriginalStatus
		Total  int64
	}
	var rows []row
	q := r.getDB(ctx).WithContext(ctx).
		Model(&domain.OriginalDocument{}).
		Select("status, COUNT(*) AS total")
	if applicationID != "" {
		q = q.Where("application_id = ?", applicationID)
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[domain.OriginalStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
