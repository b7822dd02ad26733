package application

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/magellan/internal/logistics/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

// QueryService 原件查询服务
type QueryService struct {
	repo   domain.OriginalRepository
	logger *slog.Logger
}

// NewQueryService 创建原件查询服务
func NewQueryService(repo domain.OriginalRepository, logger *slog.Logger) *QueryService {
	return &QueryService{repo: repo, logger: logger}
}

// GetOriginal 查询单个原件
func (s *QueryService) GetOriginal(ctx context.Context, originalID string) (*domain.OriginalDocument, error) {
	original, err := s.repo.GetByOriginalID(ctx, originalID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, apperrors.NotFound("original document", originalID)
	}
	return original, nil
}

// ListByApplication 查询申请名下全部原件
func (s *QueryService) ListByApplication(ctx context.Context, applicationID string) ([]*domain.OriginalDocument, error) {
	if applicationID == "" {
		return nil, apperrors.Validation("application_id is required")
	}
	return s.repo.ListByApplication(ctx, applicationID)
}

// HasTrackedOriginals 申请名下是否存在原件追踪记录
func (s *QueryService) HasTrackedOriginals(ctx context.Context, applicationID string) (bool, error) {
	originals, err := s.repo.ListByApplication(ctx, applicationID)
	if err != nil {
		return false, err
	}
	return len(originals) > 0, nil
}

// ReadinessView 政府递交就绪度视图
type ReadinessView struct {
	ApplicationID string                          `json:"application_id"`
	Ready         bool                            `json:"ready"`
	Total         int                             `json:"total"`
	Verified      int                             `json:"verified"`
	StatusCounts  map[domain.OriginalStatus]int64 `json:"status_counts"`
}

// GovernmentReadiness 汇总申请的原件核验进展
func (s *QueryService) GovernmentReadiness(ctx context.Context, applicationID string) (*ReadinessView, error) {
	originals, err := s.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	// 空集为真，与就绪度重算口径一致
	view := &ReadinessView{
		ApplicationID: applicationID,
		Ready:         true,
		Total:         len(originals),
		StatusCounts:  counts,
	}
	for _, o := range originals {
		if o.SatisfiesGovernmentReadiness() {
			view.Verified++
		} else if o.IsRequired {
			view.Ready = false
		}
	}
	return view, nil
}
