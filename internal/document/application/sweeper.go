package application

import (
	"context"
	"log/slog"
	"time"
)

// ExpirationSweeper 周期性过期扫描器
// 后台任务只会把 approved 材料推入 expired，不会进出任何
// 顾问控制的状态，因此与用户触发的迁移不存在竞争破坏。
type ExpirationSweeper struct {
	commands *CommandService
	interval time.Duration
	batch    int
	logger   *slog.Logger
	stop     chan struct{}
}

// NewExpirationSweeper 创建过期扫描器
func NewExpirationSweeper(commands *CommandService, interval time.Duration, batch int, logger *slog.Logger) *ExpirationSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if batch <= 0 {
		batch = 200
	}
	return &ExpirationSweeper{
		commands: commands,
		interval: interval,
		batch:    batch,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start 启动扫描循环
func (w *ExpirationSweeper) Start(ctx context.Context) {
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
func (w *ExpirationSweeper) Stop() {
	close(w.stop)
}

func (w *ExpirationSweeper) runOnce(ctx context.Context) {
	expired, err := w.commands.ExpireDueDocuments(ctx, time.Now(), w.batch)
	if err != nil {
		w.logger.ErrorContext(ctx, "expiration sweep failed", "error", err)
		return
	}
	if expired > 0 {
		w.logger.InfoContext(ctx, "expiration sweep completed", "expired", expired)
	}
}
