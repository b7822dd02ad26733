// Package domain 通知服务领域层
// 消费案件引擎各上下文的事件，转成面向客户与顾问的外发通知。
// 通知发送失败绝不回传到触发它的状态迁移。
package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeEmail NotificationType = "EMAIL"
	NotificationTypeSMS   NotificationType = "SMS"
)

// NotificationStatus 通知状态
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Notification 通知实体
type Notification struct {
	gorm.Model
	// NotificationID 通知 ID
	NotificationID string `gorm:"column:notification_id;type:varchar(32);uniqueIndex;not null" json:"notification_id"`
	// ApplicationID 关联申请
	ApplicationID string `gorm:"column:application_id;type:varchar(32);index" json:"application_id"`
	// Recipient 收件人标识（客户或顾问 ID）
	Recipient string `gorm:"column:recipient;type:varchar(32);index;not null" json:"recipient"`
	// Type 通知类型
	Type NotificationType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	// EventType 触发事件主题
	EventType string `gorm:"column:event_type;type:varchar(60);index" json:"event_type"`
	// Subject 通知主题
	Subject string `gorm:"column:subject;type:varchar(200)" json:"subject"`
	// Content 通知内容
	Content string `gorm:"column:content;type:text" json:"content"`
	// Target 通知目标（邮箱、手机号）
	Target string `gorm:"column:target;type:varchar(100)" json:"target"`
	// Status 通知状态
	Status NotificationStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	// ErrorMessage 错误信息
	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`
	// SentAt 发送时间
	SentAt *time.Time `gorm:"column:sent_at" json:"sent_at"`
}

// TableName 表名
func (Notification) TableName() string { return "notifications" }

// MarkSent 标记已发送
func (n *Notification) MarkSent(now time.Time) {
	n.Status = NotificationStatusSent
	n.SentAt = &now
	n.ErrorMessage = ""
}

// MarkFailed 标记发送失败，留待重发
func (n *Notification) MarkFailed(err error) {
	n.Status = NotificationStatusFailed
	n.ErrorMessage = err.Error()
}

// Sender 通知发送接口
type Sender interface {
	Send(ctx context.Context, target, subject, content string) error
}

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Save(ctx context.Context, notification *Notification) error
	GetByNotificationID(ctx context.Context, notificationID string) (*Notification, error)
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]*Notification, error)
	ListByApplication(ctx context.Context, applicationID string) ([]*Notification, error)
	ListFailed(ctx context.Context, limit int) ([]*Notification, error)
}
