package domain

import (
	"context"
	"time"
)

// OriginalRepository 原件仓储接口
type OriginalRepository interface {
	Create(ctx context.Context, original *OriginalDocument) error
	// Update 带乐观锁更新，版本冲突返回 CONFLICT
	Update(ctx context.Context, original *OriginalDocument) error
	// Delete 硬删除，取消追踪时使用
	Delete(ctx context.Context, original *OriginalDocument) error
	GetByOriginalID(ctx context.Context, originalID string) (*OriginalDocument, error)
	GetByDocumentID(ctx context.Context, documentID string) (*OriginalDocument, error)
	ListByApplication(ctx context.Context, applicationID string) ([]*OriginalDocument, error)
	// ListUrgentPending 加急且尚未收到的原件，供催办扫描
	ListUrgentPending(ctx context.Context, limit int) ([]*OriginalDocument, error)
	CountByStatus(ctx context.Context, applicationID string) (map[OriginalStatus]int64, error)
	// WithTx 在单个事务内执行 fn
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// DocumentAuthenticator 回写数字材料的公证认证日期，
// 有效期自该日期而非上传日期起算。
type DocumentAuthenticator interface {
	MarkAuthenticated(ctx context.Context, documentID string, at time.Time) error
}

// ReadinessNotifier 通知案卷上下文政府递交就绪度变化
type ReadinessNotifier interface {
	SetGovernmentReady(ctx context.Context, applicationID string, ready bool) error
}
