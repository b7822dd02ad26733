// Package catalogclient 目录上下文的进程内适配
package catalogclient

import (
	"context"

	catalogapp "github.com/wyfcoding/magellan/internal/catalog/application"
	"github.com/wyfcoding/magellan/internal/document/domain"
)

// Adapter 将目录服务适配为材料上下文的 RequirementCatalog 端口
type Adapter struct {
	catalog *catalogapp.CatalogService
}

// NewAdapter 创建适配器
func NewAdapter(catalog *catalogapp.CatalogService) *Adapter {
	return &Adapter{catalog: catalog}
}

// GetRequirement 查询材料要求并转换为上下文内的快照结构
func (a *Adapter) GetRequirement(ctx context.Context, requirementID uint) (*domain.RequirementInfo, error) {
	req, err := a.catalog.GetRequirement(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	return &domain.RequirementInfo{
		ID:               req.ID,
		ProgramID:        req.ProgramID,
		StageID:          req.StageID,
		Name:             req.Name,
		Category:         string(req.Category),
		IsRequired:       req.IsRequired,
		ExpirationMonths: req.ExpirationMonths,
		TracksOriginal:   req.TracksOriginal(),
	}, nil
}

// ValidateFile 按目录约束校验上传文件
func (a *Adapter) ValidateFile(ctx context.Context, requirementID uint, fileName string, sizeBytes int64) error {
	req, err := a.catalog.GetRequirement(ctx, requirementID)
	if err != nil {
		return err
	}
	return req.ValidateFile(fileName, sizeBytes)
}
