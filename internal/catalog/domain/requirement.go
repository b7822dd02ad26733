package domain

import (
	"strings"

	"github.com/wyfcoding/magellan/pkg/apperrors"
	"gorm.io/gorm"
)

// DocumentCategory 材料类别
type DocumentCategory string

const (
	CategoryPersonal   DocumentCategory = "personal"
	CategoryFinancial  DocumentCategory = "financial"
	CategoryLegal      DocumentCategory = "legal"
	CategoryMedical    DocumentCategory = "medical"
	CategoryInvestment DocumentCategory = "investment"
	CategoryTravel     DocumentCategory = "travel"
)

// originalTrackedCategories 需要递交纸质原件的类别
var originalTrackedCategories = map[DocumentCategory]bool{
	CategoryPersonal:   true,
	CategoryLegal:      true,
	CategoryInvestment: true,
}

// DocumentRequirement 材料要求目录项
// 只读目录数据，申请级事件永远不会修改它；条件性要求以
// is_required=false 存在，是否适用由顾问判断，引擎不做推导。
type DocumentRequirement struct {
	gorm.Model
	RequirementID      string           `gorm:"column:requirement_id;type:varchar(32);uniqueIndex;not null" json:"requirement_id"`
	ProgramID          string           `gorm:"column:program_id;type:varchar(32);index;not null" json:"program_id"`
	StageID            uint             `gorm:"column:stage_id;index;not null" json:"stage_id"`
	Name               string           `gorm:"column:name;type:varchar(150);not null" json:"name"`
	Category           DocumentCategory `gorm:"column:category;type:varchar(20);index;not null" json:"category"`
	IsRequired         bool             `gorm:"column:is_required;not null;default:true" json:"is_required"`
	IsClientUploadable bool             `gorm:"column:is_client_uploadable;not null;default:true" json:"is_client_uploadable"`
	// AcceptedFormats 逗号分隔的扩展名白名单，如 "pdf,jpg,png"
	AcceptedFormats  string `gorm:"column:accepted_formats;type:varchar(100)" json:"accepted_formats"`
	MaxSizeMB        int    `gorm:"column:max_size_mb;not null;default:10" json:"max_size_mb"`
	ExpirationMonths *int   `gorm:"column:expiration_months" json:"expiration_months"`
	SortOrder        int    `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	HelpText         string `gorm:"column:help_text;type:varchar(500)" json:"help_text"`
}

// TableName 表名
func (DocumentRequirement) TableName() string { return "document_requirements" }

// TracksOriginal 该要求的类别是否参与纸质原件追踪
func (r *DocumentRequirement) TracksOriginal() bool {
	return originalTrackedCategories[r.Category]
}

// ValidateFile 按目录约束校验上传文件的格式与大小
func (r *DocumentRequirement) ValidateFile(fileName string, sizeBytes int64) error {
	ext := strings.ToLower(strings.TrimPrefix(fileExt(fileName), "."))
	if ext == "" {
		return apperrors.Validation("file %q has no extension", fileName)
	}
	if r.AcceptedFormats != "" {
		allowed := false
		for _, f := range strings.Split(r.AcceptedFormats, ",") {
			if strings.EqualFold(strings.TrimSpace(f), ext) {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperrors.Validation("format %q not accepted for %q, allowed: %s", ext, r.Name, r.AcceptedFormats)
		}
	}
	maxBytes := int64(r.MaxSizeMB) * 1024 * 1024
	if maxBytes > 0 && sizeBytes > maxBytes {
		return apperrors.Validation("file exceeds %dMB limit for %q", r.MaxSizeMB, r.Name)
	}
	return nil
}

func fileExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx:]
}
