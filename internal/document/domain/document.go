// Package domain 数字材料服务领域层
// 定义申请材料实体及其评审状态机：
// pending → uploaded → under_review → {approved | rejected}，
// rejected 可重新上传，approved 可因目录有效期到期转为 expired。
package domain

import (
	"time"

	"github.com/wyfcoding/magellan/pkg/apperrors"
	"gorm.io/gorm"
)

// DocumentStatus 数字材料状态
type DocumentStatus string

const (
	StatusPending     DocumentStatus = "pending"
	StatusUploaded    DocumentStatus = "uploaded"
	StatusUnderReview DocumentStatus = "under_review"
	StatusApproved    DocumentStatus = "approved"
	StatusRejected    DocumentStatus = "rejected"
	StatusExpired     DocumentStatus = "expired"
)

// uploadableFrom 允许上传/重传的起始状态
// expired 与 uploaded 也允许替换当前文件，under_review/approved 必须先走评审。
var uploadableFrom = map[DocumentStatus]bool{
	StatusPending:  true,
	StatusUploaded: true,
	StatusRejected: true,
	StatusExpired:  true,
}

// ApplicationDocument 申请材料实体
// 每个 (申请, 材料要求) 至多一条记录，同一要求始终只有一个当前文件，
// 重传替换文件并把状态重置为 uploaded。
type ApplicationDocument struct {
	gorm.Model
	DocumentID    string `gorm:"column:document_id;type:varchar(32);uniqueIndex;not null" json:"document_id"`
	ApplicationID string `gorm:"column:application_id;type:varchar(32);index:idx_app_requirement,unique;not null" json:"application_id"`
	RequirementID uint   `gorm:"column:requirement_id;index:idx_app_requirement,unique;not null" json:"requirement_id"`
	// StageID 冗余自目录，供进度重算按阶段聚合
	StageID  uint   `gorm:"column:stage_id;index;not null" json:"stage_id"`
	Category string `gorm:"column:category;type:varchar(20);index" json:"category"`

	Status DocumentStatus `gorm:"column:status;type:varchar(20);index;not null;default:'pending'" json:"status"`

	FileName      string     `gorm:"column:file_name;type:varchar(255)" json:"file_name"`
	FileURL       string     `gorm:"column:file_url;type:varchar(500)" json:"file_url"`
	FileSizeBytes int64      `gorm:"column:file_size_bytes" json:"file_size_bytes"`
	UploadedBy    string     `gorm:"column:uploaded_by;type:varchar(32)" json:"uploaded_by"`
	UploadedAt    *time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`

	ReviewedBy      string     `gorm:"column:reviewed_by;type:varchar(32)" json:"reviewed_by"`
	ReviewedAt      *time.Time `gorm:"column:reviewed_at" json:"reviewed_at"`
	RejectionReason string     `gorm:"column:rejection_reason;type:varchar(500)" json:"rejection_reason"`
	ReviewComments  string     `gorm:"column:review_comments;type:varchar(1000)" json:"review_comments"`

	// ExpirationMonths 冗余自目录，null 表示永不过期
	ExpirationMonths *int `gorm:"column:expiration_months" json:"expiration_months"`
	// AuthenticatedAt 原件认证日期，存在时有效期从它起算
	AuthenticatedAt *time.Time `gorm:"column:authenticated_at" json:"authenticated_at"`

	// Waived 顾问豁免标记，条件性要求是否适用由顾问显式判断
	Waived   bool   `gorm:"column:waived;not null;default:false" json:"waived"`
	WaivedBy string `gorm:"column:waived_by;type:varchar(32)" json:"waived_by"`

	// 乐观锁版本号
	Version int64 `gorm:"column:version;not null;default:1" json:"version"`
}

// TableName 表名
func (ApplicationDocument) TableName() string { return "application_documents" }

// NewApplicationDocument 首次上传时创建材料记录
func NewApplicationDocument(documentID, applicationID string, requirementID, stageID uint, category string, expirationMonths *int) *ApplicationDocument {
	return &ApplicationDocument{
		DocumentID:       documentID,
		ApplicationID:    applicationID,
		RequirementID:    requirementID,
		StageID:          stageID,
		Category:         category,
		Status:           StatusPending,
		ExpirationMonths: expirationMonths,
		Version:          1,
	}
}

// AttachFile 记录上传文件并进入 uploaded 状态
// 重传会替换当前文件并清空上一轮评审结论。
func (d *ApplicationDocument) AttachFile(fileName, fileURL string, sizeBytes int64, uploadedBy string, now time.Time) error {
	if !uploadableFrom[d.Status] {
		return apperrors.InvalidTransition("document", string(d.Status), "upload")
	}
	d.FileName = fileName
	d.FileURL = fileURL
	d.FileSizeBytes = sizeBytes
	d.UploadedBy = uploadedBy
	d.UploadedAt = &now
	d.Status = StatusUploaded
	d.ReviewedBy = ""
	d.ReviewedAt = nil
	d.RejectionReason = ""
	d.ReviewComments = ""
	d.AuthenticatedAt = nil
	return nil
}

// StartReview 进入评审
func (d *ApplicationDocument) StartReview() error {
	if d.Status != StatusUploaded {
		return apperrors.InvalidTransition("document", string(d.Status), "startReview")
	}
	d.Status = StatusUnderReview
	return nil
}

// Approve 评审通过
func (d *ApplicationDocument) Approve(reviewedBy, comments string, now time.Time) error {
	if d.Status != StatusUnderReview {
		return apperrors.InvalidTransition("document", string(d.Status), "approve")
	}
	d.Status = StatusApproved
	d.ReviewedBy = reviewedBy
	d.ReviewedAt = &now
	d.ReviewComments = comments
	d.RejectionReason = ""
	return nil
}

// Reject 评审驳回，原因必填
func (d *ApplicationDocument) Reject(reviewedBy, reason, comments string, now time.Time) error {
	if d.Status != StatusUnderReview {
		return apperrors.InvalidTransition("document", string(d.Status), "reject")
	}
	if reason == "" {
		return apperrors.Validation("rejection reason is required")
	}
	d.Status = StatusRejected
	d.ReviewedBy = reviewedBy
	d.ReviewedAt = &now
	d.RejectionReason = reason
	d.ReviewComments = comments
	return nil
}

// RequireClarification 澄清请求不改变状态，仅校验前置并记录事件
func (d *ApplicationDocument) RequireClarification(comments string) error {
	if d.Status != StatusUnderReview {
		return apperrors.InvalidTransition("document", string(d.Status), "requestClarification")
	}
	if comments == "" {
		return apperrors.Validation("clarification comments are required")
	}
	return nil
}

// Waive 顾问豁免条件性要求
func (d *ApplicationDocument) Waive(waivedBy string) {
	d.Waived = true
	d.WaivedBy = waivedBy
}

// ExpiresAt 有效期截止时间，nil 表示永不过期
// 原件认证日期存在时从它起算，否则从上传时间起算。
func (d *ApplicationDocument) ExpiresAt() *time.Time {
	if d.ExpirationMonths == nil || d.UploadedAt == nil {
		return nil
	}
	base := *d.UploadedAt
	if d.AuthenticatedAt != nil {
		base = *d.AuthenticatedAt
	}
	t := base.AddDate(0, *d.ExpirationMonths, 0)
	return &t
}

// ExpireIfDue 定时过期检查，仅允许 approved → expired
func (d *ApplicationDocument) ExpireIfDue(now time.Time) bool {
	if d.Status != StatusApproved {
		return false
	}
	exp := d.ExpiresAt()
	if exp == nil || now.Before(*exp) {
		return false
	}
	d.Status = StatusExpired
	return true
}

// MarkAuthenticated 同步原件认证日期，影响有效期起算
func (d *ApplicationDocument) MarkAuthenticated(at time.Time) {
	d.AuthenticatedAt = &at
}

// CountsTowardCompletion 仅 approved 计入阶段完成度
func (d *ApplicationDocument) CountsTowardCompletion() bool {
	return d.Status == StatusApproved
}
