// Package mysql 通知服务基础设施层
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/magellan/internal/notification/domain"
	"gorm.io/gorm"
)

type notificationRepository struct{ db *gorm.DB }

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *notificationRepository) GetByNotificationID(ctx context.Context, notificationID string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.db.WithContext(ctx).
		Where("recipient = ?", recipient).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *notificationRepository) ListByApplication(ctx context.Context, applicationID string) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *notificationRepository) ListFailed(ctx context.Context, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.NotificationStatusFailed).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
