package domain

import "time"

// 事件主题
const (
	OriginalRequestedEventType = "original.requested"
	OriginalShippedEventType   = "original.shipped"
	OriginalReceivedEventType  = "original.received"
	OriginalVerifiedEventType  = "original.verified"
	OriginalRejectedEventType  = "original.verification.rejected"
	OriginalCancelledEventType = "original.cancelled"
	GovernmentReadyEventType   = "original.ready_for_government"
)

// OriginalRequestedEvent 原件递交请求已发出
type OriginalRequestedEvent struct {
	OriginalID      string     `json:"original_id"`
	ApplicationID   string     `json:"application_id"`
	RequirementName string     `json:"requirement_name"`
	ShippingAddress string     `json:"shipping_address"`
	IsUrgent        bool       `json:"is_urgent"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	RequestedAt     time.Time  `json:"requested_at"`
}

// OriginalShippedEvent 客户已寄出原件
type OriginalShippedEvent struct {
	OriginalID     string    `json:"original_id"`
	ApplicationID  string    `json:"application_id"`
	CourierService string    `json:"courier_service"`
	TrackingNumber string    `json:"tracking_number"`
	ShippedAt      time.Time `json:"shipped_at"`
}

// OriginalReceivedEvent 原件已签收
type OriginalReceivedEvent struct {
	OriginalID    string            `json:"original_id"`
	ApplicationID string            `json:"application_id"`
	Condition     DocumentCondition `json:"condition"`
	QualityNotes  string            `json:"quality_notes,omitempty"`
	ReceivedAt    time.Time         `json:"received_at"`
}

// OriginalVerifiedEvent 原件核验完成
type OriginalVerifiedEvent struct {
	OriginalID      string    `json:"original_id"`
	ApplicationID   string    `json:"application_id"`
	RequirementName string    `json:"requirement_name"`
	Verified        bool      `json:"verified"`
	IsAuthenticated bool      `json:"is_authenticated"`
	Notes           string    `json:"notes,omitempty"`
	VerifiedAt      time.Time `json:"verified_at"`
}

// OriginalCancelledEvent 原件追踪已取消
type OriginalCancelledEvent struct {
	OriginalID    string    `json:"original_id"`
	ApplicationID string    `json:"application_id"`
	FromStatus    string    `json:"from_status"`
	CancelledBy   string    `json:"cancelled_by"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

// GovernmentReadyEvent 申请的全部必要原件已核验完毕，可递交政府
type GovernmentReadyEvent struct {
	ApplicationID string    `json:"application_id"`
	OriginalCount int       `json:"original_count"`
	ReadyAt       time.Time `json:"ready_at"`
}
