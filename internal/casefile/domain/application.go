// Package domain 申请案卷服务领域层
// Application 是顶层聚合：状态机由顾问显式驱动，前进迁移在应用层
// 依据阶段完成度与原件就绪度做门控校验。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"gorm.io/gorm"
)

// ApplicationStatus 申请状态
type ApplicationStatus string

const (
	StatusDraft                 ApplicationStatus = "draft"
	StatusStarted               ApplicationStatus = "started"
	StatusSubmitted             ApplicationStatus = "submitted"
	StatusReadyForSubmission    ApplicationStatus = "ready_for_submission"
	StatusSubmittedToGovernment ApplicationStatus = "submitted_to_government"
	StatusUnderReview           ApplicationStatus = "under_review"
	StatusApproved              ApplicationStatus = "approved"
	StatusRejected              ApplicationStatus = "rejected"
	StatusArchived              ApplicationStatus = "archived"
)

// Priority 优先级，正交属性，任何状态下均可修改
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// statusTransitions 显式迁移表
// 前进链严格单向，rejected → draft 是唯一的回退（整体重来），
// archived 由 Archive 单独处理，可从任何状态进入。
var statusTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:                 {StatusStarted},
	StatusStarted:               {StatusSubmitted},
	StatusSubmitted:             {StatusReadyForSubmission},
	StatusReadyForSubmission:    {StatusSubmittedToGovernment},
	StatusSubmittedToGovernment: {StatusUnderReview},
	StatusUnderReview:           {StatusApproved, StatusRejected},
	StatusApproved:              {},
	StatusRejected:              {StatusDraft},
	StatusArchived:              {},
}

// Application 申请聚合根
type Application struct {
	gorm.Model
	ApplicationID string `gorm:"column:application_id;type:varchar(32);uniqueIndex;not null" json:"application_id"`
	ClientID      string `gorm:"column:client_id;type:varchar(32);index;not null" json:"client_id"`
	ApplicantName string `gorm:"column:applicant_name;type:varchar(150);not null" json:"applicant_name"`
	Email         string `gorm:"column:email;type:varchar(150)" json:"email"`
	Phone         string `gorm:"column:phone;type:varchar(50)" json:"phone"`
	Nationality   string `gorm:"column:nationality;type:varchar(100)" json:"nationality"`

	ProgramID  string `gorm:"column:program_id;type:varchar(32);index;not null" json:"program_id"`
	TemplateID uint   `gorm:"column:template_id;index;not null" json:"template_id"`
	// InvestmentAmount 投资额，精确十进制，绝不用浮点
	InvestmentAmount decimal.Decimal `gorm:"column:investment_amount;type:decimal(18,2);not null" json:"investment_amount"`
	InvestmentOption string          `gorm:"column:investment_option;type:varchar(100)" json:"investment_option"`

	Status          ApplicationStatus `gorm:"column:status;type:varchar(30);index;not null;default:'draft'" json:"status"`
	Priority        Priority          `gorm:"column:priority;type:varchar(10);index;not null;default:'medium'" json:"priority"`
	AssignedAdvisor string            `gorm:"column:assigned_advisor;type:varchar(32);index" json:"assigned_advisor"`

	// GovernmentReady 全部必要原件核验完毕的聚合信号，由物流上下文回写
	GovernmentReady bool `gorm:"column:government_ready;not null;default:false" json:"government_ready"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at"`
	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at"`
	DecidedAt   *time.Time `gorm:"column:decided_at" json:"decided_at"`
	ArchivedAt  *time.Time `gorm:"column:archived_at" json:"archived_at"`
	Notes       string     `gorm:"column:notes;type:varchar(2000)" json:"notes"`

	// 乐观锁版本号
	Version int64 `gorm:"column:version;not null;default:1" json:"version"`
}

// TableName 表名
func (Application) TableName() string { return "applications" }

// NewApplication 创建草稿申请
func NewApplication(applicationID, clientID, applicantName, programID string, templateID uint, amount decimal.Decimal) *Application {
	return &Application{
		ApplicationID:    applicationID,
		ClientID:         clientID,
		ApplicantName:    applicantName,
		ProgramID:        programID,
		TemplateID:       templateID,
		InvestmentAmount: amount,
		Status:           StatusDraft,
		Priority:         PriorityMedium,
		Version:          1,
	}
}

// CanTransitionTo 迁移表查询
func (a *Application) CanTransitionTo(target ApplicationStatus) bool {
	for _, next := range statusTransitions[a.Status] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionTo 执行状态迁移
// 只做迁移表校验，阶段完成度与原件就绪度的门控由应用层负责。
func (a *Application) TransitionTo(target ApplicationStatus, now time.Time) error {
	if !a.CanTransitionTo(target) {
		return apperrors.InvalidTransition("application", string(a.Status), "transition to "+string(target))
	}
	a.Status = target
	switch target {
	case StatusStarted:
		a.StartedAt = &now
	case StatusSubmittedToGovernment:
		a.SubmittedAt = &now
	case StatusApproved, StatusRejected:
		a.DecidedAt = &now
	case StatusDraft:
		// 整体重来，清掉上一轮的时间戳与就绪度
		a.StartedAt = nil
		a.SubmittedAt = nil
		a.DecidedAt = nil
		a.GovernmentReady = false
	}
	return nil
}

// Archive 归档，管理动作，任何状态均可进入且不可逆
func (a *Application) Archive(now time.Time) error {
	if a.Status == StatusArchived {
		return apperrors.InvalidTransition("application", string(a.Status), "archive")
	}
	a.Status = StatusArchived
	a.ArchivedAt = &now
	return nil
}

// SetPriority 修改优先级，任何状态均可
func (a *Application) SetPriority(p Priority) error {
	if !validPriorities[p] {
		return apperrors.Validation("invalid priority %q", p)
	}
	a.Priority = p
	return nil
}

// IsTerminal 是否处于终态
func (a *Application) IsTerminal() bool {
	return a.Status == StatusApproved || a.Status == StatusArchived
}
