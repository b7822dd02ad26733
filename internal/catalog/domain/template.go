// Package domain 目录服务领域层
// 定义项目模板、阶段与材料要求的只读目录数据。
// 模板一旦被申请引用即不可变，修改需发布新版本。
package domain

import (
	"gorm.io/gorm"
)

// ProgramTemplate 项目模板聚合根
// 一个 CRBI 项目的固定工作流定义，持有有序的阶段列表。
type ProgramTemplate struct {
	gorm.Model
	TemplateID          string  `gorm:"column:template_id;type:varchar(32);uniqueIndex;not null" json:"template_id"`
	ProgramID           string  `gorm:"column:program_id;type:varchar(32);index;not null" json:"program_id"`
	Name                string  `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Version             int     `gorm:"column:version;not null;default:1" json:"version"`
	TotalStages         int     `gorm:"column:total_stages;not null" json:"total_stages"`
	EstimatedTimeMonths int     `gorm:"column:estimated_time_months" json:"estimated_time_months"`
	Stages              []Stage `gorm:"foreignKey:TemplateID" json:"stages"`
}

// TableName 表名
func (ProgramTemplate) TableName() string { return "program_templates" }

// Stage 工作流阶段
// Order 仅用于展示与默认排序，依赖边才是解锁的权威依据。
type Stage struct {
	gorm.Model
	TemplateID    uint   `gorm:"column:template_id;index;not null" json:"template_id"`
	Order         int    `gorm:"column:stage_order;not null" json:"order"`
	Name          string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	EstimatedDays int    `gorm:"column:estimated_days" json:"estimated_days"`
	IsRequired    bool   `gorm:"column:is_required;not null;default:true" json:"is_required"`
	CanSkip       bool   `gorm:"column:can_skip;not null;default:false" json:"can_skip"`
	AutoProgress  bool   `gorm:"column:auto_progress;not null;default:false" json:"auto_progress"`
	// DependsOn 前置阶段 ID 集合，全部 completed（或 canSkip 时 skipped）后本阶段才可激活
	DependsOn []uint `gorm:"column:depends_on;serializer:json" json:"depends_on"`
}

// TableName 表名
func (Stage) TableName() string { return "program_stages" }
