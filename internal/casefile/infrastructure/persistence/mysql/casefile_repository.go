// Package mysql 申请案卷服务基础设施层
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/magellan/internal/casefile/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

type applicationRepository struct{ db *gorm.DB }

// NewApplicationRepository 创建申请仓储
func NewApplicationRepository(db *gorm.DB) domain.ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

func (r *applicationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	return r.getDB(ctx).WithContext(ctx).Create(app).Error
}

// Update 乐观锁更新，版本不匹配返回 CONFLICT
func (r *applicationRepository) Update(ctx context.Context, app *domain.Application) error {
	currentVersion := app.Version
	app.Version++
	res := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ? AND version = ?", app.ID, currentVersion).
		Updates(map[string]any{
			"applicant_name":    app.ApplicantName,
			"email":             app.Email,
			"phone":             app.Phone,
			"nationality":       app.Nationality,
			"investment_amount": app.InvestmentAmount,
			"investment_option": app.InvestmentOption,
			"status":            app.Status,
			"priority":          app.Priority,
			"assigned_advisor":  app.AssignedAdvisor,
			"government_ready":  app.GovernmentReady,
			"started_at":        app.StartedAt,
			"submitted_at":      app.SubmittedAt,
			"decided_at":        app.DecidedAt,
			"archived_at":       app.ArchivedAt,
			"notes":             app.Notes,
			"version":           app.Version,
		})
	if res.Error != nil {
		app.Version = currentVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		app.Version = currentVersion
		return apperrors.Conflict("application", app.ApplicationID)
	}
	return nil
}

func (r *applicationRepository) GetByApplicationID(ctx context.Context, applicationID string) (*domain.Application, error) {
	var app domain.Application
	err := r.getDB(ctx).WithContext(ctx).Where("application_id = ?", applicationID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) ListByClient(ctx context.Context, clientID string) ([]*domain.Application, error) {
	var apps []*domain.Application
	err := r.getDB(ctx).WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) ListByAdvisor(ctx context.Context, advisor string) ([]*domain.Application, error) {
	var apps []*domain.Application
	err := r.getDB(ctx).WithContext(ctx).
		Where("assigned_advisor = ?", advisor).
		Order("priority DESC, created_at DESC").
		Find(&apps).Error
	return apps, err
}

func (r *applicationRepository) CountByStatus(ctx context.Context) (map[domain.ApplicationStatus]int64, error) {
	type row struct {
		Status domain.ApplicationStatus
		Total  int64
	}
	var rows []row
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Application{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ApplicationStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

func (r *applicationRepository) CountByPriority(ctx context.Context) (map[domain.Priority]int64, error) {
	type row struct {
		Priority domain.Priority
		Total    int64
	}
	var rows []row
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Application{}).
		Select("priority, COUNT(*) AS total").
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Priority]int64, len(rows))
	for _, r := range rows {
		out[r.Priority] = r.Total
	}
	return out, nil
}

type stageProgressRepository struct{ db *gorm.DB }

// NewStageProgressRepository 创建阶段进度仓储
func NewStageProgressRepository(db *gorm.DB) domain.StageProgressRepository {
	return &stageProgressRepository{db: db}
}

func (r *stageProgressRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

func (r *stageProgressRepository) Create(ctx context.Context, progress *domain.StageProgress) error {
	return r.getDB(ctx).WithContext(ctx).Create(progress).Error
}

func (r *stageProgressRepository) Update(ctx context.Context, progress *domain.StageProgress) error {
	return r.getDB(ctx).WithContext(ctx).Save(progress).Error
}

func (r *stageProgressRepository) Get(ctx context.Context, applicationID string, stageID uint) (*domain.StageProgress, error) {
	var progress domain.StageProgress
	err := r.getDB(ctx).WithContext(ctx).
		Where("application_id = ? AND stage_id = ?", applicationID, stageID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *stageProgressRepository) ListByApplication(ctx context.Context, applicationID string) ([]*domain.StageProgress, error) {
	var rows []*domain.StageProgress
	err := r.getDB(ctx).WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("stage_id ASC").
		Find(&rows).Error
	return rows, err
}
