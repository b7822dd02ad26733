package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/magellan/internal/logistics/domain"
	"github.com/wyfcoding/pkg/messagequeue"
)

// OriginalReminderEventType 加急原件催办事件
const OriginalReminderEventType = "original.reminder"

// OriginalReminderEvent 催办提醒
type OriginalReminderEvent struct {
	OriginalID      string     `json:"original_id"`
	ApplicationID   string     `json:"application_id"`
	RequirementName string     `json:"requirement_name"`
	Status          string     `json:"status"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	Overdue         bool       `json:"overdue"`
	Timestamp       time.Time  `json:"timestamp"`
}

// UrgencySweeper 加急原件催办扫描器
// 只读扫描：对加急且临近或超过期限的在途原件发催办事件，
// 从不改变任何原件状态。
type UrgencySweeper struct {
	repo      domain.OriginalRepository
	publisher messagequeue.EventPublisher
	interval  time.Duration
	window    time.Duration
	batch     int
	logger    *slog.Logger
	stop      chan struct{}
}

// NewUrgencySweeper 创建催办扫描器
func NewUrgencySweeper(repo domain.OriginalRepository, publisher messagequeue.EventPublisher, interval, window time.Duration, batch int, logger *slog.Logger) *UrgencySweeper {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if window <= 0 {
		window = 48 * time.Hour
	}
	if batch <= 0 {
		batch = 200
	}
	return &UrgencySweeper{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		window:    window,
		batch:     batch,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

// Start 启动扫描循环
func (w *UrgencySweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.runOnce(ctx)
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop 停止扫描循环
func (w *UrgencySweeper) Stop() {
	close(w.stop)
}

func (w *UrgencySweeper) runOnce(ctx context.Context) {
	originals, err := w.repo.ListUrgentPending(ctx, w.batch)
	if err != nil {
		w.logger.ErrorContext(ctx, "urgency sweep failed", "error", err)
		return
	}
	now := time.Now()
	sent := 0
	for _, o := range originals {
		if o.Deadline != nil && o.Deadline.Sub(now) > w.window {
			continue
		}
		event := OriginalReminderEvent{
			OriginalID:      o.OriginalID,
			ApplicationID:   o.ApplicationID,
			RequirementName: o.RequirementName,
			Status:          string(o.Status),
			Deadline:        o.Deadline,
			Overdue:         o.Deadline != nil && o.Deadline.Before(now),
			Timestamp:       now,
		}
		if err := w.publisher.Publish(ctx, OriginalReminderEventType, o.OriginalID, event); err != nil {
			w.logger.WarnContext(ctx, "failed to publish original reminder", "original_id", o.OriginalID, "error", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		w.logger.InfoContext(ctx, "urgency sweep completed", "reminders", sent)
	}
}
