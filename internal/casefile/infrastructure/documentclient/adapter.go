// Package documentclient 材料上下文的进程内适配
package documentclient

import (
	"context"

	"github.com/wyfcoding/magellan/internal/casefile/domain"
	catalogapp "github.com/wyfcoding/magellan/internal/catalog/application"
	documentdomain "github.com/wyfcoding/magellan/internal/document/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

// Adapter 将材料仓储与目录服务组合为案件上下文的
// DocumentProgressSource 端口。分母为必要材料要求数，分子为其中
// 已通过评审的数量；豁免只存在于条件性（非必要）要求上，天然
// 不进分母。
type Adapter struct {
	appRepo domain.ApplicationRepository
	docRepo documentdomain.DocumentRepository
	catalog *catalogapp.CatalogService
}

// NewAdapter 创建适配器
func NewAdapter(
	appRepo domain.ApplicationRepository,
	docRepo documentdomain.DocumentRepository,
	catalog *catalogapp.CatalogService,
) *Adapter {
	return &Adapter{appRepo: appRepo, docRepo: docRepo, catalog: catalog}
}

// StageApprovalStats 统计某申请某阶段的材料通过进度
func (a *Adapter) StageApprovalStats(ctx context.Context, applicationID string, stageID uint) (int, int, error) {
	app, err := a.appRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return 0, 0, err
	}
	if app == nil {
		return 0, 0, apperrors.NotFound("application", applicationID)
	}

	reqs, err := a.catalog.ResolveRequirements(ctx, app.ProgramID, stageID)
	if err != nil {
		return 0, 0, err
	}
	docs, err := a.docRepo.ListByStage(ctx, applicationID, stageID)
	if err != nil {
		return 0, 0, err
	}
	byRequirement := make(map[uint]*documentdomain.ApplicationDocument, len(docs))
	for _, doc := range docs {
		byRequirement[doc.RequirementID] = doc
	}

	approved, total := 0, 0
	for i := range reqs {
		req := &reqs[i]
		if !req.IsRequired {
			continue
		}
		total++
		doc := byRequirement[req.ID]
		if doc != nil && doc.CountsTowardCompletion() {
			approved++
		}
	}
	return approved, total, nil
}
