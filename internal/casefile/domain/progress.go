package domain

import (
	"math"
	"time"

	"github.com/wyfcoding/magellan/pkg/apperrors"
	"gorm.io/gorm"
)

// StageStatus 阶段进度状态
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
)

// StageProgress 阶段进度，每个 (application, stage) 一行，首次进入模板时惰性创建
type StageProgress struct {
	gorm.Model
	ApplicationID string `gorm:"column:application_id;type:varchar(32);uniqueIndex:idx_app_stage;not null" json:"application_id"`
	StageID       uint   `gorm:"column:stage_id;uniqueIndex:idx_app_stage;not null" json:"stage_id"`
	// StageName 冗余自目录，供进度视图直接使用
	StageName string      `gorm:"column:stage_name;type:varchar(100)" json:"stage_name"`
	Status    StageStatus `gorm:"column:status;type:varchar(20);index;not null;default:'pending'" json:"status"`
	// CompletionPercentage 阶段内必要材料的通过率，0–100
	CompletionPercentage int        `gorm:"column:completion_percentage;not null;default:0" json:"completion_percentage"`
	StartedAt            *time.Time `gorm:"column:started_at" json:"started_at"`
	CompletedAt          *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CompletedBy          string     `gorm:"column:completed_by;type:varchar(32)" json:"completed_by"`
}

// TableName 表名
func (StageProgress) TableName() string { return "stage_progress" }

// NewStageProgress 创建阶段进度行
func NewStageProgress(applicationID string, stageID uint, stageName string) *StageProgress {
	return &StageProgress{
		ApplicationID: applicationID,
		StageID:       stageID,
		StageName:     stageName,
		Status:        StagePending,
	}
}

// CompletionPercentage 完成率计算
// 只统计必要材料（豁免的已从分母剔除），无必要材料的阶段视为 100%。
func CompletionPercentage(approvedRequired, totalRequired int) int {
	if totalRequired <= 0 {
		return 100
	}
	pct := int(math.Round(100 * float64(approvedRequired) / float64(totalRequired)))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Activate 解锁，pending → active
func (p *StageProgress) Activate(now time.Time) error {
	if p.Status != StagePending {
		return apperrors.InvalidTransition("stage progress", string(p.Status), "activate")
	}
	p.Status = StageActive
	p.StartedAt = &now
	return nil
}

// Complete 完成，active → completed
func (p *StageProgress) Complete(completedBy string, now time.Time) error {
	if p.Status != StageActive {
		return apperrors.InvalidTransition("stage progress", string(p.Status), "complete")
	}
	p.Status = StageCompleted
	p.CompletionPercentage = 100
	p.CompletedBy = completedBy
	p.CompletedAt = &now
	return nil
}

// Skip 跳过，pending/active → skipped，canSkip 校验由应用层依目录裁定
func (p *StageProgress) Skip(skippedBy string, now time.Time) error {
	if p.Status != StagePending && p.Status != StageActive {
		return apperrors.InvalidTransition("stage progress", string(p.Status), "skip")
	}
	p.Status = StageSkipped
	p.CompletedBy = skippedBy
	p.CompletedAt = &now
	return nil
}

// Satisfies 依赖判定：completed 恒满足，skipped 仅当目录允许跳过
func (p *StageProgress) Satisfies(canSkip bool) bool {
	if p.Status == StageCompleted {
		return true
	}
	return p.Status == StageSkipped && canSkip
}
