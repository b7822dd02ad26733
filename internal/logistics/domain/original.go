// Package domain 原件物流服务领域层
// 纸质原件在数字材料评审通过后登记，沿严格线性的状态机流转：
// digital_approved → originals_requested → originals_shipped →
// originals_received → originals_verified → ready_for_government。
// 任何乱序操作一律拒绝且不产生变更。
package domain

import (
	"time"

	"github.com/wyfcoding/magellan/pkg/apperrors"
	"gorm.io/gorm"
)

// OriginalStatus 原件状态
type OriginalStatus string

const (
	StatusDigitalApproved    OriginalStatus = "digital_approved"
	StatusOriginalsRequested OriginalStatus = "originals_requested"
	StatusOriginalsShipped   OriginalStatus = "originals_shipped"
	StatusOriginalsReceived  OriginalStatus = "originals_received"
	StatusOriginalsVerified  OriginalStatus = "originals_verified"
	StatusReadyForGovernment OriginalStatus = "ready_for_government"
)

// DocumentCondition 收件时的原件品相
type DocumentCondition string

const (
	ConditionExcellent  DocumentCondition = "excellent"
	ConditionGood       DocumentCondition = "good"
	ConditionAcceptable DocumentCondition = "acceptable"
	ConditionDamaged    DocumentCondition = "damaged"
)

// VerificationStatus 核验结论
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// validConditions 合法品相集合
var validConditions = map[DocumentCondition]bool{
	ConditionExcellent:  true,
	ConditionGood:       true,
	ConditionAcceptable: true,
	ConditionDamaged:    true,
}

// OriginalDocument 纸质原件实体
// 与其追踪的材料要求一一对应，叠加在已通过评审的数字材料之上。
type OriginalDocument struct {
	gorm.Model
	OriginalID    string `gorm:"column:original_id;type:varchar(32);uniqueIndex;not null" json:"original_id"`
	DocumentID    string `gorm:"column:document_id;type:varchar(32);uniqueIndex;not null" json:"document_id"`
	ApplicationID string `gorm:"column:application_id;type:varchar(32);index;not null" json:"application_id"`
	RequirementID uint   `gorm:"column:requirement_id;index;not null" json:"requirement_id"`
	StageID       uint   `gorm:"column:stage_id;index" json:"stage_id"`
	// RequirementName 冗余自目录，供物流单据与通知直接使用
	RequirementName string `gorm:"column:requirement_name;type:varchar(150)" json:"requirement_name"`
	// IsRequired 冗余自目录，政府递交就绪度只统计必要材料的原件
	IsRequired bool `gorm:"column:is_required;not null;default:true" json:"is_required"`

	Status OriginalStatus `gorm:"column:status;type:varchar(30);index;not null;default:'digital_approved'" json:"status"`

	ShippingAddress string     `gorm:"column:shipping_address;type:varchar(500)" json:"shipping_address"`
	IsUrgent        bool       `gorm:"column:is_urgent;not null;default:false" json:"is_urgent"`
	Deadline        *time.Time `gorm:"column:deadline" json:"deadline"`
	RequestedBy     string     `gorm:"column:requested_by;type:varchar(32)" json:"requested_by"`
	RequestedAt     *time.Time `gorm:"column:requested_at" json:"requested_at"`

	CourierService string     `gorm:"column:courier_service;type:varchar(50)" json:"courier_service"`
	TrackingNumber string     `gorm:"column:tracking_number;type:varchar(100)" json:"tracking_number"`
	ShippedAt      *time.Time `gorm:"column:shipped_at" json:"shipped_at"`

	ReceivedAt        *time.Time        `gorm:"column:received_at" json:"received_at"`
	ReceivedBy        string            `gorm:"column:received_by;type:varchar(32)" json:"received_by"`
	DocumentCondition DocumentCondition `gorm:"column:document_condition;type:varchar(20)" json:"document_condition"`
	QualityNotes      string            `gorm:"column:quality_notes;type:varchar(1000)" json:"quality_notes"`

	VerifiedBy        string     `gorm:"column:verified_by;type:varchar(32)" json:"verified_by"`
	VerifiedAt        *time.Time `gorm:"column:verified_at" json:"verified_at"`
	VerificationNotes string     `gorm:"column:verification_notes;type:varchar(1000)" json:"verification_notes"`
	IsAuthenticated   bool       `gorm:"column:is_authenticated;not null;default:false" json:"is_authenticated"`
	AuthenticatedAt   *time.Time `gorm:"column:authenticated_at" json:"authenticated_at"`

	// InternalReference 顾问内部归档编号
	InternalReference string `gorm:"column:internal_reference;type:varchar(50)" json:"internal_reference"`

	// 乐观锁版本号
	Version int64 `gorm:"column:version;not null;default:1" json:"version"`
}

// TableName 表名
func (OriginalDocument) TableName() string { return "original_documents" }

// NewOriginalDocument 数字材料评审通过后登记原件追踪记录
func NewOriginalDocument(originalID, documentID, applicationID string, requirementID, stageID uint, requirementName string, isRequired bool) *OriginalDocument {
	return &OriginalDocument{
		OriginalID:      originalID,
		DocumentID:      documentID,
		ApplicationID:   applicationID,
		RequirementID:   requirementID,
		StageID:         stageID,
		RequirementName: requirementName,
		IsRequired:      isRequired,
		Status:          StatusDigitalApproved,
		Version:         1,
	}
}

// Request 向客户发起原件递交请求
func (o *OriginalDocument) Request(shippingAddress string, isUrgent bool, deadline *time.Time, requestedBy string, now time.Time) error {
	if o.Status != StatusDigitalApproved {
		return apperrors.InvalidTransition("original document", string(o.Status), "request")
	}
	if shippingAddress == "" {
		return apperrors.Validation("shipping address is required")
	}
	o.Status = StatusOriginalsRequested
	o.ShippingAddress = shippingAddress
	o.IsUrgent = isUrgent
	o.Deadline = deadline
	o.RequestedBy = requestedBy
	o.RequestedAt = &now
	return nil
}

// UpdateShipping 客户寄出，登记承运与运单信息
func (o *OriginalDocument) UpdateShipping(courierService, trackingNumber string, shippedAt *time.Time, now time.Time) error {
	if o.Status != StatusOriginalsRequested {
		return apperrors.InvalidTransition("original document", string(o.Status), "updateShipping")
	}
	if courierService == "" || trackingNumber == "" {
		return apperrors.Validation("courier_service and tracking_number are required")
	}
	o.Status = StatusOriginalsShipped
	o.CourierService = courierService
	o.TrackingNumber = trackingNumber
	if shippedAt != nil {
		o.ShippedAt = shippedAt
	} else {
		o.ShippedAt = &now
	}
	return nil
}

// ConfirmReceipt 签收并评估品相，damaged 必须附品质备注
func (o *OriginalDocument) ConfirmReceipt(condition DocumentCondition, receivedAt *time.Time, qualityNotes, receivedBy string, now time.Time) error {
	if o.Status != StatusOriginalsShipped {
		return apperrors.InvalidTransition("original document", string(o.Status), "confirmReceipt")
	}
	if !validConditions[condition] {
		return apperrors.Validation("invalid document condition %q", condition)
	}
	if condition == ConditionDamaged && qualityNotes == "" {
		return apperrors.Validation("quality notes are required when condition is damaged")
	}
	o.Status = StatusOriginalsReceived
	o.DocumentCondition = condition
	o.QualityNotes = qualityNotes
	o.ReceivedBy = receivedBy
	if receivedAt != nil {
		o.ReceivedAt = receivedAt
	} else {
		o.ReceivedAt = &now
	}
	return nil
}

// CompleteVerification 核验
// verified 前进到 originals_verified；rejected 停留在 originals_received，
// 被拒的原件只能复检或更换，绝不静默前进。
func (o *OriginalDocument) CompleteVerification(status VerificationStatus, notes string, isAuthenticated bool, verifiedBy string, now time.Time) error {
	if o.Status != StatusOriginalsReceived {
		return apperrors.InvalidTransition("original document", string(o.Status), "completeVerification")
	}
	switch status {
	case VerificationVerified:
		o.Status = StatusOriginalsVerified
		o.VerifiedBy = verifiedBy
		o.VerifiedAt = &now
		o.VerificationNotes = notes
		o.IsAuthenticated = isAuthenticated
		if isAuthenticated {
			o.AuthenticatedAt = &now
		}
		return nil
	case VerificationRejected:
		if notes == "" {
			return apperrors.Validation("verification notes are required when rejecting an original")
		}
		o.VerifiedBy = verifiedBy
		o.VerificationNotes = notes
		return nil
	default:
		return apperrors.Validation("invalid verification status %q", status)
	}
}

// MarkReadyForGovernment 聚合就绪时批量盖章，仅允许 originals_verified 前进
func (o *OriginalDocument) MarkReadyForGovernment() error {
	if o.Status != StatusOriginalsVerified {
		return apperrors.InvalidTransition("original document", string(o.Status), "markReadyForGovernment")
	}
	o.Status = StatusReadyForGovernment
	return nil
}

// CanCancel 取消窗口：originals_requested 至 originals_verified
func (o *OriginalDocument) CanCancel() bool {
	switch o.Status {
	case StatusOriginalsRequested, StatusOriginalsShipped, StatusOriginalsReceived, StatusOriginalsVerified:
		return true
	default:
		return false
	}
}

// CancellationNeedsWarning 原件已寄出或已入库，取消前调用方必须二次确认
func (o *OriginalDocument) CancellationNeedsWarning() bool {
	switch o.Status {
	case StatusOriginalsShipped, StatusOriginalsReceived, StatusOriginalsVerified:
		return true
	default:
		return false
	}
}

// SatisfiesGovernmentReadiness 是否已满足政府递交就绪度
func (o *OriginalDocument) SatisfiesGovernmentReadiness() bool {
	return o.Status == StatusOriginalsVerified || o.Status == StatusReadyForGovernment
}
