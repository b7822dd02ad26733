// Package application 目录服务应用层
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/magellan/internal/catalog/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/idgen"
)

// CatalogService 目录服务门面
// 模板编写 + 材料要求解析。模板一旦保存即视为冻结快照，
// 后续修改通过 CreateTemplate 发布新版本完成。
type CatalogService struct {
	templateRepo    domain.TemplateRepository
	requirementRepo domain.RequirementRepository
	logger          *slog.Logger
}

// NewCatalogService 创建目录服务
func NewCatalogService(
	templateRepo domain.TemplateRepository,
	requirementRepo domain.RequirementRepository,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		templateRepo:    templateRepo,
		requirementRepo: requirementRepo,
		logger:          logger,
	}
}

// StageSpec 模板编写时的阶段定义
// 依赖以阶段序号表述，保存后转换为阶段 ID。
type StageSpec struct {
	Order           int
	Name            string
	EstimatedDays   int
	IsRequired      bool
	CanSkip         bool
	AutoProgress    bool
	DependsOnOrders []int
}

// RequirementSpec 模板编写时的材料要求定义
type RequirementSpec struct {
	StageOrder         int
	Name               string
	Category           domain.DocumentCategory
	IsRequired         bool
	IsClientUploadable bool
	AcceptedFormats    string
	MaxSizeMB          int
	ExpirationMonths   *int
	SortOrder          int
	HelpText           string
}

// CreateTemplateCommand 发布模板版本命令
type CreateTemplateCommand struct {
	ProgramID           string
	Name                string
	Version             int
	EstimatedTimeMonths int
	Stages              []StageSpec
	Requirements        []RequirementSpec
}

// CreateTemplate 发布一个新的模板版本
// 依赖图在编写期校验：序号唯一、依赖存在且只指向更早的阶段。
func (s *CatalogService) CreateTemplate(ctx context.Context, cmd CreateTemplateCommand) (*domain.ProgramTemplate, error) {
	if cmd.ProgramID == "" || cmd.Name == "" {
		return nil, apperrors.Validation("program_id and name are required")
	}
	if len(cmd.Stages) == 0 {
		return nil, apperrors.Validation("template must define at least one stage")
	}
	if err := validateStageSpecs(cmd.Stages); err != nil {
		return nil, err
	}

	tpl := &domain.ProgramTemplate{
		TemplateID:          fmt.Sprintf("TPL%s", idgen.GenIDString()),
		ProgramID:           cmd.ProgramID,
		Name:                cmd.Name,
		Version:             cmd.Version,
		TotalStages:         len(cmd.Stages),
		EstimatedTimeMonths: cmd.EstimatedTimeMonths,
	}
	if tpl.Version < 1 {
		tpl.Version = 1
	}
	for _, spec := range cmd.Stages {
		tpl.Stages = append(tpl.Stages, domain.Stage{
			Order:         spec.Order,
			Name:          spec.Name,
			EstimatedDays: spec.EstimatedDays,
			IsRequired:    spec.IsRequired,
			CanSkip:       spec.CanSkip,
			AutoProgress:  spec.AutoProgress,
		})
	}

	// 整个发布在一个事务内：阶段落库、依赖回填、材料要求批量写
	// 任何一步失败都不能留下半发布的模板版本。
	err := s.templateRepo.WithTx(ctx, func(txCtx context.Context) error {
		// 先落库拿到阶段 ID，再把序号依赖转换为 ID 依赖
		if err := s.templateRepo.Save(txCtx, tpl); err != nil {
			return err
		}
		idByOrder := make(map[int]uint, len(tpl.Stages))
		for i := range tpl.Stages {
			idByOrder[tpl.Stages[i].Order] = tpl.Stages[i].ID
		}
		for i := range tpl.Stages {
			spec := cmd.Stages[i]
			for _, depOrder := range spec.DependsOnOrders {
				tpl.Stages[i].DependsOn = append(tpl.Stages[i].DependsOn, idByOrder[depOrder])
			}
		}
		if err := domain.ValidateStageGraph(tpl.Stages); err != nil {
			return err
		}
		if err := s.templateRepo.Save(txCtx, tpl); err != nil {
			return err
		}

		reqs := make([]domain.DocumentRequirement, 0, len(cmd.Requirements))
		for _, spec := range cmd.Requirements {
			stageID, ok := idByOrder[spec.StageOrder]
			if !ok {
				return apperrors.Validation("requirement %q references unknown stage order %d", spec.Name, spec.StageOrder)
			}
			reqs = append(reqs, domain.DocumentRequirement{
				RequirementID:      fmt.Sprintf("REQ%s", idgen.GenIDString()),
				ProgramID:          cmd.ProgramID,
				StageID:            stageID,
				Name:               spec.Name,
				Category:           spec.Category,
				IsRequired:         spec.IsRequired,
				IsClientUploadable: spec.IsClientUploadable,
				AcceptedFormats:    spec.AcceptedFormats,
				MaxSizeMB:          spec.MaxSizeMB,
				ExpirationMonths:   spec.ExpirationMonths,
				SortOrder:          spec.SortOrder,
				HelpText:           spec.HelpText,
			})
		}
		if len(reqs) > 0 {
			if err := s.requirementRepo.SaveBatch(txCtx, reqs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "program template published",
		"template_id", tpl.TemplateID, "program_id", tpl.ProgramID, "version", tpl.Version, "stages", len(tpl.Stages))
	return tpl, nil
}

// GetTemplate 获取模板及其阶段
func (s *CatalogService) GetTemplate(ctx context.Context, id uint) (*domain.ProgramTemplate, error) {
	tpl, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, apperrors.NotFound("program template", fmt.Sprintf("%d", id))
	}
	return tpl, nil
}

// ListStages 列出模板的全部阶段
func (s *CatalogService) ListStages(ctx context.Context, templateID uint) ([]domain.Stage, error) {
	return s.templateRepo.ListStages(ctx, templateID)
}

// GetStage 获取单个阶段
func (s *CatalogService) GetStage(ctx context.Context, stageID uint) (*domain.Stage, error) {
	stage, err := s.templateRepo.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, apperrors.NotFound("stage", fmt.Sprintf("%d", stageID))
	}
	return stage, nil
}

// GetRequirement 获取单条材料要求
func (s *CatalogService) GetRequirement(ctx context.Context, id uint) (*domain.DocumentRequirement, error) {
	req, err := s.requirementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.NotFound("requirement", fmt.Sprintf("%d", id))
	}
	return req, nil
}

// ResolveRequirements 解析某项目某阶段的材料要求，按 sort_order 排序
func (s *CatalogService) ResolveRequirements(ctx context.Context, programID string, stageID uint) ([]domain.DocumentRequirement, error) {
	if programID == "" {
		return nil, apperrors.Validation("program_id is required")
	}
	return s.requirementRepo.ListByStage(ctx, programID, stageID)
}

// validateStageSpecs 编写期的序号级校验
func validateStageSpecs(specs []StageSpec) error {
	orders := make(map[int]bool, len(specs))
	for _, spec := range specs {
		if spec.Order < 1 {
			return apperrors.Validation("stage %q has invalid order %d, must be >= 1", spec.Name, spec.Order)
		}
		if orders[spec.Order] {
			return apperrors.Validation("duplicate stage order %d in template", spec.Order)
		}
		orders[spec.Order] = true
	}
	for _, spec := range specs {
		for _, dep := range spec.DependsOnOrders {
			if !orders[dep] {
				return apperrors.Validation("stage %q depends on unknown stage order %d", spec.Name, dep)
			}
			if dep >= spec.Order {
				return apperrors.Validation("stage %q (order %d) may not depend on later stage order %d", spec.Name, spec.Order, dep)
			}
		}
	}
	return nil
}
