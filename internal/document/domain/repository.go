package domain

import (
	"context"
	"time"
)

// DocumentRepository 材料仓储接口
// Update 以乐观锁版本号为条件更新，版本不匹配返回 CONFLICT。
type DocumentRepository interface {
	Create(ctx context.Context, doc *ApplicationDocument) error
	Update(ctx context.Context, doc *ApplicationDocument) error
	GetByDocumentID(ctx context.Context, documentID string) (*ApplicationDocument, error)
	GetByRequirement(ctx context.Context, applicationID string, requirementID uint) (*ApplicationDocument, error)
	ListByApplication(ctx context.Context, applicationID string) ([]*ApplicationDocument, error)
	ListByStage(ctx context.Context, applicationID string, stageID uint) ([]*ApplicationDocument, error)
	// ListExpiring 列出 approved 且截止时间早于 before 的材料，供过期扫描
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]*ApplicationDocument, error)
	CountByStatus(ctx context.Context) (map[DocumentStatus]int64, error)
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
