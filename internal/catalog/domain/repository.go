package domain

import (
	"context"
)

// TemplateRepository 模板仓储接口
type TemplateRepository interface {
	Save(ctx context.Context, tpl *ProgramTemplate) error
	GetByID(ctx context.Context, id uint) (*ProgramTemplate, error)
	ListStages(ctx context.Context, templateID uint) ([]Stage, error)
	GetStage(ctx context.Context, stageID uint) (*Stage, error)
	// WithTx 在单个事务内执行 fn
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// RequirementRepository 材料要求仓储接口
type RequirementRepository interface {
	SaveBatch(ctx context.Context, reqs []DocumentRequirement) error
	GetByID(ctx context.Context, id uint) (*DocumentRequirement, error)
	// ListByStage 按 sort_order 返回某项目某阶段的全部材料要求
	ListByStage(ctx context.Context, programID string, stageID uint) ([]DocumentRequirement, error)
}
