package application

import (
	"context"

	"github.com/wyfcoding/magellan/internal/document/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

// QueryService 材料查询服务
type QueryService struct {
	docRepo domain.DocumentRepository
}

// NewQueryService 创建材料查询服务
func NewQueryService(docRepo domain.DocumentRepository) *QueryService {
	return &QueryService{docRepo: docRepo}
}

// GetDocument 获取材料详情
func (s *QueryService) GetDocument(ctx context.Context, documentID string) (*domain.ApplicationDocument, error) {
	doc, err := s.docRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperrors.NotFound("document", documentID)
	}
	return doc, nil
}

// ListByApplication 列出申请的全部材料
func (s *QueryService) ListByApplication(ctx context.Context, applicationID string) ([]*domain.ApplicationDocument, error) {
	if applicationID == "" {
		return nil, apperrors.Validation("application_id is required")
	}
	return s.docRepo.ListByApplication(ctx, applicationID)
}

// CountByStatus 按状态统计材料数量，供仪表盘聚合
func (s *QueryService) CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int64, error) {
	return s.docRepo.CountByStatus(ctx)
}
