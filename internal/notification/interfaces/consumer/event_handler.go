// Package consumer 通知服务事件消费端
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	casefiledomain "github.com/wyfcoding/magellan/internal/casefile/domain"
	documentdomain "github.com/wyfcoding/magellan/internal/document/domain"
	logisticsapp "github.com/wyfcoding/magellan/internal/logistics/application"
	logisticsdomain "github.com/wyfcoding/magellan/internal/logistics/domain"
	"github.com/wyfcoding/magellan/internal/notification/application"
	"github.com/wyfcoding/magellan/internal/notification/domain"
)

// RecipientDirectory 收件人解析端口，把申请映射到客户与顾问的联系方式
type RecipientDirectory interface {
	ClientContact(ctx context.Context, applicationID string) (recipient, email string, err error)
	AdvisorContact(ctx context.Context, applicationID string) (recipient, email string, err error)
}

// EventHandler 案件引擎事件到外发通知的投影
// 未知主题直接跳过；单条通知构建失败只记日志，不阻塞消费位点。
type EventHandler struct {
	notifications *application.NotificationService
	directory     RecipientDirectory
	logger        *slog.Logger
}

// NewEventHandler 创建事件处理器
func NewEventHandler(notifications *application.NotificationService, directory RecipientDirectory, logger *slog.Logger) *EventHandler {
	return &EventHandler{notifications: notifications, directory: directory, logger: logger}
}

// Handle 消费入口
func (h *EventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	cmd, err := h.build(ctx, msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build notification from event",
			"topic", msg.Topic, "error", err)
		return nil
	}
	if cmd == nil {
		return nil
	}
	if _, err := h.notifications.Notify(ctx, *cmd); err != nil {
		h.logger.ErrorContext(ctx, "failed to send notification", "topic", msg.Topic, "error", err)
	}
	return nil
}

func (h *EventHandler) build(ctx context.Context, msg kafka.Message) (*application.NotifyCommand, error) {
	switch msg.Topic {
	case documentdomain.DocumentRejectedEventType:
		var e documentdomain.DocumentRejectedEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toClient(ctx, e.ApplicationID, msg.Topic,
			"Document requires resubmission",
			fmt.Sprintf("Your document was rejected: %s. Please upload a corrected version.", e.Reason))

	case documentdomain.DocumentClarificationEventType:
		var e documentdomain.DocumentClarificationEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toClient(ctx, e.ApplicationID, msg.Topic,
			"Clarification requested on your document", e.Comments)

	case documentdomain.DocumentExpiredEventType:
		var e documentdomain.DocumentExpiredEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toClient(ctx, e.ApplicationID, msg.Topic,
			"A document on your application has expired",
			"One of your approved documents has passed its validity period and must be re-uploaded.")

	case logisticsdomain.OriginalRequestedEventType:
		var e logisticsdomain.OriginalRequestedEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		content := fmt.Sprintf("Please ship the original of %q to: %s.", e.RequirementName, e.ShippingAddress)
		if e.IsUrgent {
			content += " This request is urgent."
		}
		return h.toClient(ctx, e.ApplicationID, msg.Topic, "Original documents requested", content)

	case logisticsdomain.OriginalReceivedEventType:
		var e logisticsdomain.OriginalReceivedEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toClient(ctx, e.ApplicationID, msg.Topic,
			"Original documents received",
			fmt.Sprintf("We received your originals in %s condition.", e.Condition))

	case logisticsdomain.OriginalRejectedEventType:
		var e logisticsdomain.OriginalVerifiedEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toAdvisor(ctx, e.ApplicationID, msg.Topic,
			"Original verification failed",
			fmt.Sprintf("Original of %q failed verification: %s", e.RequirementName, e.Notes))

	case logisticsdomain.GovernmentReadyEventType:
		var e logisticsdomain.GovernmentReadyEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toAdvisor(ctx, e.ApplicationID, msg.Topic,
			"Application ready for government submission",
			fmt.Sprintf("All required originals for application %s are verified.", e.ApplicationID))

	case logisticsapp.OriginalReminderEventType:
		var e logisticsapp.OriginalReminderEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toClient(ctx, e.ApplicationID, msg.Topic,
			"Reminder: original documents pending",
			fmt.Sprintf("We are still waiting for the original of %q.", e.RequirementName))

	case casefiledomain.ApplicationStatusChangedEventType:
		var e casefiledomain.ApplicationStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toClient(ctx, e.ApplicationID, msg.Topic,
			"Your application status has changed",
			fmt.Sprintf("Application %s moved from %s to %s.", e.ApplicationID, e.FromStatus, e.ToStatus))

	case casefiledomain.StageCompletedEventType:
		var e casefiledomain.StageCompletedEvent
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			return nil, err
		}
		return h.toClient(ctx, e.ApplicationID, msg.Topic,
			"Stage completed",
			fmt.Sprintf("Stage %q of your application is complete.", e.StageName))

	default:
		h.logger.WarnContext(ctx, "unknown event topic", "topic", msg.Topic)
		return nil, nil
	}
}

func (h *EventHandler) toClient(ctx context.Context, applicationID, eventType, subject, content string) (*application.NotifyCommand, error) {
	recipient, email, err := h.directory.ClientContact(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return &application.NotifyCommand{
		ApplicationID: applicationID,
		Recipient:     recipient,
		Target:        email,
		Type:          domain.NotificationTypeEmail,
		EventType:     eventType,
		Subject:       subject,
		Content:       content,
	}, nil
}

func (h *EventHandler) toAdvisor(ctx context.Context, applicationID, eventType, subject, content string) (*application.NotifyCommand, error) {
	recipient, email, err := h.directory.AdvisorContact(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return &application.NotifyCommand{
		ApplicationID: applicationID,
		Recipient:     recipient,
		Target:        email,
		Type:          domain.NotificationTypeEmail,
		EventType:     eventType,
		Subject:       subject,
		Content:       content,
	}, nil
}
