// Package application 申请案卷服务应用层
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/magellan/internal/casefile/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/messagequeue"
)

// ProgressTracker 阶段进度跟踪器
// 材料状态每次变化后重算所在阶段的完成率；autoProgress 阶段达到
// 100% 自动完成，随后解锁依赖它的下游阶段。已完成或已跳过的阶段
// 不会被后台重算回退。
type ProgressTracker struct {
	appRepo      domain.ApplicationRepository
	progressRepo domain.StageProgressRepository
	catalog      domain.StageCatalog
	docs         domain.DocumentProgressSource
	publisher    messagequeue.EventPublisher
	logger       *slog.Logger
}

// NewProgressTracker 创建进度跟踪器
func NewProgressTracker(
	appRepo domain.ApplicationRepository,
	progressRepo domain.StageProgressRepository,
	catalog domain.StageCatalog,
	docs domain.DocumentProgressSource,
	publisher messagequeue.EventPublisher,
	logger *slog.Logger,
) *ProgressTracker {
	return &ProgressTracker{
		appRepo:      appRepo,
		progressRepo: progressRepo,
		catalog:      catalog,
		docs:         docs,
		publisher:    publisher,
		logger:       logger,
	}
}

// EnsureProgress 惰性创建阶段进度行
// 无前置依赖的阶段直接解锁为 active，其余 pending。
func (t *ProgressTracker) EnsureProgress(ctx context.Context, app *domain.Application) error {
	stages, err := t.catalog.ListStages(ctx, app.TemplateID)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, stage := range stages {
		existing, err := t.progressRepo.Get(ctx, app.ApplicationID, stage.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		row := domain.NewStageProgress(app.ApplicationID, stage.ID, stage.Name)
		if len(stage.DependsOn) == 0 {
			if err := row.Activate(now); err != nil {
				return err
			}
		}
		if err := t.progressRepo.Create(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// StageChanged 材料上下文的进度重算入口
// 在材料状态变更的同一事务内被调用。
func (t *ProgressTracker) StageChanged(ctx context.Context, applicationID string, stageID uint) error {
	app, err := t.appRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app == nil {
		return apperrors.NotFound("application", applicationID)
	}
	stages, err := t.catalog.ListStages(ctx, app.TemplateID)
	if err != nil {
		return err
	}
	var stage *domain.StageInfo
	for _, s := range stages {
		if s.ID == stageID {
			stage = s
			break
		}
	}
	if stage == nil {
		return apperrors.NotFound("stage", "in template")
	}

	row, err := t.progressRepo.Get(ctx, applicationID, stageID)
	if err != nil {
		return err
	}
	if row == nil {
		row = domain.NewStageProgress(applicationID, stageID, stage.Name)
		if err := t.progressRepo.Create(ctx, row); err != nil {
			return err
		}
	}
	if row.Status == domain.StageCompleted || row.Status == domain.StageSkipped {
		return nil
	}

	approved, total, err := t.docs.StageApprovalStats(ctx, applicationID, stageID)
	if err != nil {
		return err
	}
	row.CompletionPercentage = domain.CompletionPercentage(approved, total)

	now := time.Now()
	if row.CompletionPercentage >= 100 && stage.AutoProgress && row.Status == domain.StageActive {
		if err := row.Complete("", now); err != nil {
			return err
		}
		if err := t.progressRepo.Update(ctx, row); err != nil {
			return err
		}
		if err := t.publishStageEvent(ctx, domain.StageCompletedEventType, domain.StageCompletedEvent{
			ApplicationID: applicationID,
			StageID:       stageID,
			StageName:     stage.Name,
			Auto:          true,
			Timestamp:     now,
		}, applicationID); err != nil {
			return err
		}
		return t.unlockDependents(ctx, applicationID, stages)
	}
	return t.progressRepo.Update(ctx, row)
}

// CompleteStage 顾问手动完成 autoProgress=false 的阶段，仍要求 100%
func (t *ProgressTracker) CompleteStage(ctx context.Context, applicationID string, stageID uint, completedBy string) (*domain.StageProgress, error) {
	app, err := t.appRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperrors.NotFound("application", applicationID)
	}
	stages, stage, err := t.findStage(ctx, app.TemplateID, stageID)
	if err != nil {
		return nil, err
	}
	row, err := t.progressRepo.Get(ctx, applicationID, stageID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperrors.NotFound("stage progress", stage.Name)
	}

	approved, total, err := t.docs.StageApprovalStats(ctx, applicationID, stageID)
	if err != nil {
		return nil, err
	}
	if missing := total - approved; missing > 0 {
		return nil, apperrors.PreconditionNotMet(
			"%d required documents not approved in stage %q", missing, stage.Name)
	}

	now := time.Now()
	if err := row.Complete(completedBy, now); err != nil {
		return nil, err
	}
	if err := t.progressRepo.Update(ctx, row); err != nil {
		return nil, err
	}
	if err := t.publishStageEvent(ctx, domain.StageCompletedEventType, domain.StageCompletedEvent{
		ApplicationID: applicationID,
		StageID:       stageID,
		StageName:     stage.Name,
		CompletedBy:   completedBy,
		Auto:          false,
		Timestamp:     now,
	}, applicationID); err != nil {
		return nil, err
	}
	if err := t.unlockDependents(ctx, applicationID, stages); err != nil {
		return nil, err
	}
	return row, nil
}

// SkipStage 顾问跳过阶段，目录 canSkip=false 时拒绝
func (t *ProgressTracker) SkipStage(ctx context.Context, applicationID string, stageID uint, skippedBy string) (*domain.StageProgress, error) {
	app, err := t.appRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperrors.NotFound("application", applicationID)
	}
	stages, stage, err := t.findStage(ctx, app.TemplateID, stageID)
	if err != nil {
		return nil, err
	}
	if !stage.CanSkip {
		return nil, apperrors.PreconditionNotMet("stage %q does not allow skipping", stage.Name)
	}
	row, err := t.progressRepo.Get(ctx, applicationID, stageID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperrors.NotFound("stage progress", stage.Name)
	}

	now := time.Now()
	if err := row.Skip(skippedBy, now); err != nil {
		return nil, err
	}
	if err := t.progressRepo.Update(ctx, row); err != nil {
		return nil, err
	}
	if err := t.publishStageEvent(ctx, domain.StageSkippedEventType, domain.StageSkippedEvent{
		ApplicationID: applicationID,
		StageID:       stageID,
		StageName:     stage.Name,
		SkippedBy:     skippedBy,
		Timestamp:     now,
	}, applicationID); err != nil {
		return nil, err
	}
	if err := t.unlockDependents(ctx, applicationID, stages); err != nil {
		return nil, err
	}
	return row, nil
}

// unlockDependents 依赖全部满足的 pending 阶段解锁为 active
// 显式依赖边是唯一的门控依据，order 只用于展示排序。
// 材料可以在阶段解锁前就全部通过，此时解锁即满足 autoProgress
// 的完成条件，直接完成并继续解锁更下游的阶段，循环至不动点。
func (t *ProgressTracker) unlockDependents(ctx context.Context, applicationID string, stages []*domain.StageInfo) error {
	byID := make(map[uint]*domain.StageInfo, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
	}
	rows, err := t.progressRepo.ListByApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	rowByStage := make(map[uint]*domain.StageProgress, len(rows))
	for _, r := range rows {
		rowByStage[r.StageID] = r
	}

	now := time.Now()
	for changed := true; changed; {
		changed = false
		for _, stage := range stages {
			row := rowByStage[stage.ID]
			if row == nil || row.Status != domain.StagePending {
				continue
			}
			satisfied := true
			for _, depID := range stage.DependsOn {
				dep := byID[depID]
				depRow := rowByStage[depID]
				if dep == nil || depRow == nil || !depRow.Satisfies(dep.CanSkip) {
					satisfied = false
					break
				}
			}
			if !satisfied {
				continue
			}
			if err := row.Activate(now); err != nil {
				return err
			}
			if err := t.publishStageEvent(ctx, domain.StageUnlockedEventType, domain.StageUnlockedEvent{
				ApplicationID: applicationID,
				StageID:       stage.ID,
				StageName:     stage.Name,
				Timestamp:     now,
			}, applicationID); err != nil {
				return err
			}
			if stage.AutoProgress && row.CompletionPercentage >= 100 {
				if err := row.Complete("", now); err != nil {
					return err
				}
				if err := t.publishStageEvent(ctx, domain.StageCompletedEventType, domain.StageCompletedEvent{
					ApplicationID: applicationID,
					StageID:       stage.ID,
					StageName:     stage.Name,
					Auto:          true,
					Timestamp:     now,
				}, applicationID); err != nil {
					return err
				}
			}
			if err := t.progressRepo.Update(ctx, row); err != nil {
				return err
			}
			changed = true
		}
	}
	return nil
}

func (t *ProgressTracker) findStage(ctx context.Context, templateID, stageID uint) ([]*domain.StageInfo, *domain.StageInfo, error) {
	stages, err := t.catalog.ListStages(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range stages {
		if s.ID == stageID {
			return stages, s, nil
		}
	}
	return nil, nil, apperrors.NotFound("stage", "in template")
}

// publishStageEvent 事务内走 outbox，事务外直接投递
func (t *ProgressTracker) publishStageEvent(ctx context.Context, eventType string, event any, key string) error {
	if tx := contextx.GetTx(ctx); tx != nil {
		return t.publisher.PublishInTx(ctx, tx, eventType, key, event)
	}
	return t.publisher.Publish(ctx, eventType, key, event)
}
