package domain

import "time"

// 事件主题
const (
	DocumentUploadedEventType      = "document.uploaded"
	DocumentApprovedEventType      = "document.review.approved"
	DocumentRejectedEventType      = "document.review.rejected"
	DocumentClarificationEventType = "document.review.clarification"
	DocumentExpiredEventType       = "document.expired"
)

// DocumentUploadedEvent 材料上传事件
type DocumentUploadedEvent struct {
	DocumentID    string    `json:"document_id"`
	ApplicationID string    `json:"application_id"`
	RequirementID uint      `json:"requirement_id"`
	StageID       uint      `json:"stage_id"`
	FileName      string    `json:"file_name"`
	Resubmission  bool      `json:"resubmission"`
	Timestamp     time.Time `json:"timestamp"`
}

// DocumentApprovedEvent 材料评审通过事件
type DocumentApprovedEvent struct {
	DocumentID     string    `json:"document_id"`
	ApplicationID  string    `json:"application_id"`
	RequirementID  uint      `json:"requirement_id"`
	StageID        uint      `json:"stage_id"`
	Category       string    `json:"category"`
	ReviewedBy     string    `json:"reviewed_by"`
	TracksOriginal bool      `json:"tracks_original"`
	Timestamp      time.Time `json:"timestamp"`
}

// DocumentRejectedEvent 材料评审驳回事件
type DocumentRejectedEvent struct {
	DocumentID    string    `json:"document_id"`
	ApplicationID string    `json:"application_id"`
	RequirementID uint      `json:"requirement_id"`
	StageID       uint      `json:"stage_id"`
	ReviewedBy    string    `json:"reviewed_by"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// DocumentClarificationEvent 澄清请求事件
type DocumentClarificationEvent struct {
	DocumentID    string    `json:"document_id"`
	ApplicationID string    `json:"application_id"`
	RequestedBy   string    `json:"requested_by"`
	Comments      string    `json:"comments"`
	Timestamp     time.Time `json:"timestamp"`
}

// DocumentExpiredEvent 材料过期事件
type DocumentExpiredEvent struct {
	DocumentID    string    `json:"document_id"`
	ApplicationID string    `json:"application_id"`
	RequirementID uint      `json:"requirement_id"`
	StageID       uint      `json:"stage_id"`
	Timestamp     time.Time `json:"timestamp"`
}
