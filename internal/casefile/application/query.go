package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wyfcoding/magellan/internal/casefile/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

const (
	dashboardStatsKey = "magellan:dashboard:stats"
	dashboardStatsTTL = 30 * time.Second
)

// QueryService 申请查询服务
// 仪表盘统计直接从主库聚合，短 TTL 的 Redis 缓存只为削峰。
type QueryService struct {
	appRepo      domain.ApplicationRepository
	progressRepo domain.StageProgressRepository
	catalog      domain.StageCatalog
	redis        redis.UniversalClient
	logger       *slog.Logger
}

// NewQueryService 创建申请查询服务，redis 可为 nil（不缓存）
func NewQueryService(
	appRepo domain.ApplicationRepository,
	progressRepo domain.StageProgressRepository,
	catalog domain.StageCatalog,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
) *QueryService {
	return &QueryService{
		appRepo:      appRepo,
		progressRepo: progressRepo,
		catalog:      catalog,
		redis:        redisClient,
		logger:       logger,
	}
}

// GetApplication 查询申请详情
func (s *QueryService) GetApplication(ctx context.Context, applicationID string) (*domain.Application, error) {
	app, err := s.appRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperrors.NotFound("application", applicationID)
	}
	return app, nil
}

// ListByClient 按客户列出申请
func (s *QueryService) ListByClient(ctx context.Context, clientID string) ([]*domain.Application, error) {
	if clientID == "" {
		return nil, apperrors.Validation("client_id is required")
	}
	return s.appRepo.ListByClient(ctx, clientID)
}

// ListByAdvisor 按顾问列出申请
func (s *QueryService) ListByAdvisor(ctx context.Context, advisor string) ([]*domain.Application, error) {
	if advisor == "" {
		return nil, apperrors.Validation("advisor is required")
	}
	return s.appRepo.ListByAdvisor(ctx, advisor)
}

// StageView 阶段进度视图条目
type StageView struct {
	StageID              uint               `json:"stage_id"`
	Order                int                `json:"order"`
	Name                 string             `json:"name"`
	IsRequired           bool               `json:"is_required"`
	CanSkip              bool               `json:"can_skip"`
	AutoProgress         bool               `json:"auto_progress"`
	Status               domain.StageStatus `json:"status"`
	CompletionPercentage int                `json:"completion_percentage"`
	CompletedAt          *time.Time         `json:"completed_at,omitempty"`
}

// ProgressView 申请进度视图
type ProgressView struct {
	ApplicationID   string                   `json:"application_id"`
	Status          domain.ApplicationStatus `json:"status"`
	GovernmentReady bool                     `json:"government_ready"`
	Stages          []StageView              `json:"stages"`
	OverallPercent  int                      `json:"overall_percent"`
}

// GetProgress 合并目录阶段与进度行生成视图
func (s *QueryService) GetProgress(ctx context.Context, applicationID string) (*ProgressView, error) {
	app, err := s.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	stages, err := s.catalog.ListStages(ctx, app.TemplateID)
	if err != nil {
		return nil, err
	}
	rows, err := s.progressRepo.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	rowByStage := make(map[uint]*domain.StageProgress, len(rows))
	for _, r := range rows {
		rowByStage[r.StageID] = r
	}

	view := &ProgressView{
		ApplicationID:   app.ApplicationID,
		Status:          app.Status,
		GovernmentReady: app.GovernmentReady,
	}
	requiredTotal, requiredDone := 0, 0
	for _, stage := range stages {
		sv := StageView{
			StageID:      stage.ID,
			Order:        stage.Order,
			Name:         stage.Name,
			IsRequired:   stage.IsRequired,
			CanSkip:      stage.CanSkip,
			AutoProgress: stage.AutoProgress,
			Status:       domain.StagePending,
		}
		if row := rowByStage[stage.ID]; row != nil {
			sv.Status = row.Status
			sv.CompletionPercentage = row.CompletionPercentage
			sv.CompletedAt = row.CompletedAt
		}
		if stage.IsRequired {
			requiredTotal++
			if sv.Status == domain.StageCompleted || (sv.Status == domain.StageSkipped && stage.CanSkip) {
				requiredDone++
			}
		}
		view.Stages = append(view.Stages, sv)
	}
	view.OverallPercent = domain.CompletionPercentage(requiredDone, requiredTotal)
	return view, nil
}

// DashboardStats 仪表盘统计
type DashboardStats struct {
	ByStatus    map[domain.ApplicationStatus]int64 `json:"by_status"`
	ByPriority  map[domain.Priority]int64          `json:"by_priority"`
	Total       int64                              `json:"total"`
	GeneratedAt time.Time                          `json:"generated_at"`
}

// DashboardStatsQuery 仪表盘统计，带短 TTL 缓存
func (s *QueryService) DashboardStatsQuery(ctx context.Context) (*DashboardStats, error) {
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, dashboardStatsKey).Bytes(); err == nil {
			var cached DashboardStats
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	byStatus, err := s.appRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.appRepo.CountByPriority(ctx)
	if err != nil {
		return nil, err
	}
	stats := &DashboardStats{
		ByStatus:    byStatus,
		ByPriority:  byPriority,
		GeneratedAt: time.Now(),
	}
	for _, n := range byStatus {
		stats.Total += n
	}

	if s.redis != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.redis.Set(ctx, dashboardStatsKey, data, dashboardStatsTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "failed to cache dashboard stats", "error", err)
			}
		}
	}
	return stats, nil
}
