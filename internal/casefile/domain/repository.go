package domain

import "context"

// ApplicationRepository 申请仓储接口
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) error
	// Update 带乐观锁更新，版本冲突返回 CONFLICT
	Update(ctx context.Context, app *Application) error
	GetByApplicationID(ctx context.Context, applicationID string) (*Application, error)
	ListByClient(ctx context.Context, clientID string) ([]*Application, error)
	ListByAdvisor(ctx context.Context, advisor string) ([]*Application, error)
	CountByStatus(ctx context.Context) (map[ApplicationStatus]int64, error)
	CountByPriority(ctx context.Context) (map[Priority]int64, error)
	// WithTx 在单个事务内执行 fn
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// StageProgressRepository 阶段进度仓储接口
type StageProgressRepository interface {
	Create(ctx context.Context, progress *StageProgress) error
	Update(ctx context.Context, progress *StageProgress) error
	Get(ctx context.Context, applicationID string, stageID uint) (*StageProgress, error)
	ListByApplication(ctx context.Context, applicationID string) ([]*StageProgress, error)
}

// StageInfo 从目录解析出的阶段快照
type StageInfo struct {
	ID           uint
	Order        int
	Name         string
	IsRequired   bool
	CanSkip      bool
	AutoProgress bool
	DependsOn    []uint
}

// StageCatalog 目录读端口，由目录上下文适配实现
type StageCatalog interface {
	ListStages(ctx context.Context, templateID uint) ([]*StageInfo, error)
}

// OriginalInventory 物流读端口，申请是否存在原件追踪记录
// 模板没有任何原件追踪类别的要求时，政府递交门控空集为真。
type OriginalInventory interface {
	HasTrackedOriginals(ctx context.Context, applicationID string) (bool, error)
}

// DocumentProgressSource 材料统计端口，由材料上下文适配实现
// approved 为必要材料中已通过的数量，total 为必要材料总数；
// 豁免只发生在条件性要求上，不影响这两个计数。
type DocumentProgressSource interface {
	StageApprovalStats(ctx context.Context, applicationID string, stageID uint) (approved, total int, err error)
}
