// Package catalogclient 目录上下文的进程内适配
package catalogclient

import (
	"context"

	catalogapp "github.com/wyfcoding/magellan/internal/catalog/application"
	"github.com/wyfcoding/magellan/internal/casefile/domain"
)

// Adapter 将目录服务适配为案件上下文的 StageCatalog 端口
type Adapter struct {
	catalog *catalogapp.CatalogService
}

// NewAdapter 创建适配器
func NewAdapter(catalog *catalogapp.CatalogService) *Adapter {
	return &Adapter{catalog: catalog}
}

// ListStages 列出模板阶段并转换为上下文内的快照结构
func (a *Adapter) ListStages(ctx context.Context, templateID uint) ([]*domain.StageInfo, error) {
	stages, err := a.catalog.ListStages(ctx, templateID)
	if err != nil {
		return nil, err
	}
	infos := make([]*domain.StageInfo, 0, len(stages))
	for i := range stages {
		s := &stages[i]
		infos = append(infos, &domain.StageInfo{
			ID:           s.ID,
			Order:        s.Order,
			Name:         s.Name,
			IsRequired:   s.IsRequired,
			CanSkip:      s.CanSkip,
			AutoProgress: s.AutoProgress,
			DependsOn:    s.DependsOn,
		})
	}
	return infos, nil
}
