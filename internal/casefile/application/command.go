package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/magellan/internal/casefile/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/messagequeue"
)

// CommandService 申请命令服务
// 状态机由顾问显式驱动；ready_for_submission 与 submitted_to_government
// 两个前进迁移分别以阶段完成度和原件就绪度做门控。
type CommandService struct {
	appRepo      domain.ApplicationRepository
	progressRepo domain.StageProgressRepository
	catalog      domain.StageCatalog
	originals    domain.OriginalInventory
	tracker      *ProgressTracker
	publisher    messagequeue.EventPublisher
	logger       *slog.Logger
}

// NewCommandService 创建申请命令服务
func NewCommandService(
	appRepo domain.ApplicationRepository,
	progressRepo domain.StageProgressRepository,
	catalog domain.StageCatalog,
	originals domain.OriginalInventory,
	tracker *ProgressTracker,
	publisher messagequeue.EventPublisher,
	logger *slog.Logger,
) *CommandService {
	return &CommandService{
		appRepo:      appRepo,
		progressRepo: progressRepo,
		catalog:      catalog,
		originals:    originals,
		tracker:      tracker,
		publisher:    publisher,
		logger:       logger,
	}
}

// CreateApplicationCommand 创建申请命令
type CreateApplicationCommand struct {
	ClientID         string
	ApplicantName    string
	Email            string
	Phone            string
	Nationality      string
	ProgramID        string
	TemplateID       uint
	InvestmentAmount decimal.Decimal
	InvestmentOption string
	AssignedAdvisor  string
}

// CreateApplication 创建申请并惰性初始化阶段进度
func (s *CommandService) CreateApplication(ctx context.Context, cmd CreateApplicationCommand) (*domain.Application, error) {
	if cmd.ClientID == "" || cmd.ApplicantName == "" {
		return nil, apperrors.Validation("client_id and applicant_name are required")
	}
	if cmd.ProgramID == "" || cmd.TemplateID == 0 {
		return nil, apperrors.Validation("program_id and template_id are required")
	}
	if cmd.InvestmentAmount.IsNegative() {
		return nil, apperrors.Validation("investment_amount cannot be negative")
	}

	app := domain.NewApplication(
		fmt.Sprintf("APP%s", idgen.GenIDString()),
		cmd.ClientID, cmd.ApplicantName, cmd.ProgramID, cmd.TemplateID, cmd.InvestmentAmount,
	)
	app.Email = cmd.Email
	app.Phone = cmd.Phone
	app.Nationality = cmd.Nationality
	app.InvestmentOption = cmd.InvestmentOption
	app.AssignedAdvisor = cmd.AssignedAdvisor

	now := time.Now()
	err := s.appRepo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.appRepo.Create(txCtx, app); err != nil {
			return err
		}
		if err := s.tracker.EnsureProgress(txCtx, app); err != nil {
			return err
		}
		event := domain.ApplicationCreatedEvent{
			ApplicationID: app.ApplicationID,
			ClientID:      app.ClientID,
			ProgramID:     app.ProgramID,
			TemplateID:    app.TemplateID,
			Timestamp:     now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.ApplicationCreatedEventType, app.ApplicationID, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "application created",
		"application_id", app.ApplicationID, "client_id", app.ClientID, "program_id", app.ProgramID)
	return app, nil
}

// UpdateStatusCommand 状态迁移命令
type UpdateStatusCommand struct {
	ApplicationID string
	TargetStatus  domain.ApplicationStatus
	ChangedBy     string
}

// UpdateStatus 顾问驱动的状态迁移
// 迁移表校验在聚合内完成，这里补充应用级门控。
func (s *CommandService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*domain.Application, error) {
	app, err := s.load(ctx, cmd.ApplicationID)
	if err != nil {
		return nil, err
	}
	from := app.Status

	switch cmd.TargetStatus {
	case domain.StatusReadyForSubmission:
		if err := s.checkRequiredStagesCompleted(ctx, app); err != nil {
			return nil, err
		}
	case domain.StatusSubmittedToGovernment:
		if !app.GovernmentReady {
			// 没有任何原件追踪记录时门控空集为真：模板可以完全不含
			// 原件追踪类别的要求，此时物流上下文从不回写就绪度
			tracked, err := s.originals.HasTrackedOriginals(ctx, app.ApplicationID)
			if err != nil {
				return nil, err
			}
			if tracked {
				return nil, apperrors.PreconditionNotMet(
					"application %s has unverified original documents, government submission is blocked", app.ApplicationID)
			}
		}
	}

	now := time.Now()
	if err := app.TransitionTo(cmd.TargetStatus, now); err != nil {
		return nil, err
	}

	err = s.appRepo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.appRepo.Update(txCtx, app); err != nil {
			return err
		}
		event := domain.ApplicationStatusChangedEvent{
			ApplicationID: app.ApplicationID,
			FromStatus:    string(from),
			ToStatus:      string(app.Status),
			ChangedBy:     cmd.ChangedBy,
			Timestamp:     now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.ApplicationStatusChangedEventType, app.ApplicationID, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "application status changed",
		"application_id", app.ApplicationID, "from", from, "to", app.Status, "changed_by", cmd.ChangedBy)
	return app, nil
}

// Archive 归档，任何状态均可
func (s *CommandService) Archive(ctx context.Context, applicationID, archivedBy string) (*domain.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	from := app.Status
	now := time.Now()
	if err := app.Archive(now); err != nil {
		return nil, err
	}

	err = s.appRepo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.appRepo.Update(txCtx, app); err != nil {
			return err
		}
		event := domain.ApplicationStatusChangedEvent{
			ApplicationID: app.ApplicationID,
			FromStatus:    string(from),
			ToStatus:      string(domain.StatusArchived),
			ChangedBy:     archivedBy,
			Timestamp:     now,
		}
		return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.ApplicationStatusChangedEventType, app.ApplicationID, event)
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// SetPriority 修改优先级，正交属性，不做状态门控
func (s *CommandService) SetPriority(ctx context.Context, applicationID string, priority domain.Priority) (*domain.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := app.SetPriority(priority); err != nil {
		return nil, err
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// AssignAdvisor 指派顾问
func (s *CommandService) AssignAdvisor(ctx context.Context, applicationID, advisor string) (*domain.Application, error) {
	if advisor == "" {
		return nil, apperrors.Validation("advisor is required")
	}
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	app.AssignedAdvisor = advisor
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// SetGovernmentReady 物流上下文回写原件就绪度
// 在核验或取消的事务内被调用。
func (s *CommandService) SetGovernmentReady(ctx context.Context, applicationID string, ready bool) error {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.GovernmentReady == ready {
		return nil
	}
	app.GovernmentReady = ready
	return s.appRepo.Update(ctx, app)
}

// CompleteStage 顾问手动完成阶段
func (s *CommandService) CompleteStage(ctx context.Context, applicationID string, stageID uint, completedBy string) (*domain.StageProgress, error) {
	var row *domain.StageProgress
	err := s.appRepo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		row, err = s.tracker.CompleteStage(txCtx, applicationID, stageID, completedBy)
		return err
	})
	return row, err
}

// SkipStage 顾问跳过阶段
func (s *CommandService) SkipStage(ctx context.Context, applicationID string, stageID uint, skippedBy string) (*domain.StageProgress, error) {
	var row *domain.StageProgress
	err := s.appRepo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		row, err = s.tracker.SkipStage(txCtx, applicationID, stageID, skippedBy)
		return err
	})
	return row, err
}

// checkRequiredStagesCompleted ready_for_submission 门控
// 错误消息点名未完成的阶段与缺口数量。
func (s *CommandService) checkRequiredStagesCompleted(ctx context.Context, app *domain.Application) error {
	stages, err := s.catalog.ListStages(ctx, app.TemplateID)
	if err != nil {
		return err
	}
	rows, err := s.progressRepo.ListByApplication(ctx, app.ApplicationID)
	if err != nil {
		return err
	}
	rowByStage := make(map[uint]*domain.StageProgress, len(rows))
	for _, r := range rows {
		rowByStage[r.StageID] = r
	}
	for _, stage := range stages {
		if !stage.IsRequired {
			continue
		}
		row := rowByStage[stage.ID]
		if row != nil && row.Satisfies(stage.CanSkip) {
			continue
		}
		pct := 0
		if row != nil {
			pct = row.CompletionPercentage
		}
		return apperrors.PreconditionNotMet(
			"required stage %q is not completed (%d%% of required documents approved)", stage.Name, pct)
	}
	return nil
}

func (s *CommandService) load(ctx context.Context, applicationID string) (*domain.Application, error) {
	if applicationID == "" {
		return nil, apperrors.Validation("application_id is required")
	}
	app, err := s.appRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperrors.NotFound("application", applicationID)
	}
	return app, nil
}
