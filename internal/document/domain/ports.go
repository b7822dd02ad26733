package domain

import (
	"context"
	"time"
)

// RequirementInfo 从目录解析出的材料要求快照
type RequirementInfo struct {
	ID               uint
	ProgramID        string
	StageID          uint
	Name             string
	Category         string
	IsRequired       bool
	ExpirationMonths *int
	TracksOriginal   bool
}

// RequirementCatalog 目录读端口，由目录上下文适配实现
type RequirementCatalog interface {
	GetRequirement(ctx context.Context, requirementID uint) (*RequirementInfo, error)
	// ValidateFile 按目录约束校验上传文件
	ValidateFile(ctx context.Context, requirementID uint, fileName string, sizeBytes int64) error
}

// ProgressRecalculator 进度重算端口，由案件上下文适配实现
// 调用发生在材料状态变更的同一事务内，ctx 携带事务句柄。
type ProgressRecalculator interface {
	StageChanged(ctx context.Context, applicationID string, stageID uint) error
}

// OriginalTracker 原件追踪端口，由物流上下文适配实现
// 材料评审通过且类别参与原件追踪时，在同一事务内登记原件记录。
type OriginalTracker interface {
	InitTracking(ctx context.Context, documentID, applicationID string, requirementID, stageID uint, requirementName string, isRequired bool, approvedAt time.Time) error
}
