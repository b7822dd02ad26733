// Package mysql 目录服务基础设施层
package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/magellan/internal/catalog/domain"
	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
)

func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return db
}

type templateRepository struct{ db *gorm.DB }

// NewTemplateRepository 创建模板仓储
func NewTemplateRepository(db *gorm.DB) domain.TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *templateRepository) Save(ctx context.Context, tpl *domain.ProgramTemplate) error {
	// 级联保存 Stages
	return getDB(ctx, r.db).WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(tpl).Error
}

func (r *templateRepository) GetByID(ctx context.Context, id uint) (*domain.ProgramTemplate, error) {
	var tpl domain.ProgramTemplate
	err := getDB(ctx, r.db).WithContext(ctx).Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("stage_order ASC")
	}).First(&tpl, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) ListStages(ctx context.Context, templateID uint) ([]domain.Stage, error) {
	var stages []domain.Stage
	err := getDB(ctx, r.db).WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("stage_order ASC").
		Find(&stages).Error
	return stages, err
}

func (r *templateRepository) GetStage(ctx context.Context, stageID uint) (*domain.Stage, error) {
	var stage domain.Stage
	err := getDB(ctx, r.db).WithContext(ctx).First(&stage, stageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

type requirementRepository struct{ db *gorm.DB }

// NewRequirementRepository 创建材料要求仓储
func NewRequirementRepository(db *gorm.DB) domain.RequirementRepository {
	return &requirementRepository{db: db}
}

func (r *requirementRepository) SaveBatch(ctx context.Context, reqs []domain.DocumentRequirement) error {
	return getDB(ctx, r.db).WithContext(ctx).Create(&reqs).Error
}

func (r *requirementRepository) GetByID(ctx context.Context, id uint) (*domain.DocumentRequirement, error) {
	var req domain.DocumentRequirement
	err := getDB(ctx, r.db).WithContext(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requirementRepository) ListByStage(ctx context.Context, programID string, stageID uint) ([]domain.DocumentRequirement, error) {
	var reqs []domain.DocumentRequirement
	err := getDB(ctx, r.db).WithContext(ctx).
		Where("program_id = ? AND stage_id = ?", programID, stageID).
		Order("sort_order ASC").
		Find(&reqs).Error
	return reqs, err
}
