package domain

import "time"

// 事件主题
const (
	ApplicationCreatedEventType       = "application.created"
	ApplicationStatusChangedEventType = "application.status.changed"
	StageCompletedEventType           = "application.stage.completed"
	StageSkippedEventType             = "application.stage.skipped"
	StageUnlockedEventType            = "application.stage.unlocked"
)

// ApplicationCreatedEvent 申请已创建
type ApplicationCreatedEvent struct {
	ApplicationID string    `json:"application_id"`
	ClientID      string    `json:"client_id"`
	ProgramID     string    `json:"program_id"`
	TemplateID    uint      `json:"template_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// ApplicationStatusChangedEvent 申请状态已变更
type ApplicationStatusChangedEvent struct {
	ApplicationID string    `json:"application_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	ChangedBy     string    `json:"changed_by"`
	Timestamp     time.Time `json:"timestamp"`
}

// StageCompletedEvent 阶段已完成
type StageCompletedEvent struct {
	ApplicationID string    `json:"application_id"`
	StageID       uint      `json:"stage_id"`
	StageName     string    `json:"stage_name"`
	CompletedBy   string    `json:"completed_by,omitempty"`
	Auto          bool      `json:"auto"`
	Timestamp     time.Time `json:"timestamp"`
}

// StageSkippedEvent 阶段已跳过
type StageSkippedEvent struct {
	ApplicationID string    `json:"application_id"`
	StageID       uint      `json:"stage_id"`
	StageName     string    `json:"stage_name"`
	SkippedBy     string    `json:"skipped_by"`
	Timestamp     time.Time `json:"timestamp"`
}

// StageUnlockedEvent 依赖满足，阶段解锁
type StageUnlockedEvent struct {
	ApplicationID string    `json:"application_id"`
	StageID       uint      `json:"stage_id"`
	StageName     string    `json:"stage_name"`
	Timestamp     time.Time `json:"timestamp"`
}
