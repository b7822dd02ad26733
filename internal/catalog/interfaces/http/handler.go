// Package http 目录服务接口层
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/magellan/internal/catalog/application"
	"github.com/wyfcoding/magellan/internal/catalog/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/logging"
)

// Handler 目录 HTTP 处理器
type Handler struct {
	service *application.CatalogService
}

// NewHandler 创建目录处理器
func NewHandler(service *application.CatalogService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/catalog")
	{
		g.POST("/templates", h.CreateTemplate)
		g.GET("/templates/:id", h.GetTemplate)
		g.GET("/templates/:id/stages", h.ListStages)
		g.GET("/programs/:programID/stages/:stageID/requirements", h.ListRequirements)
	}
}

// StageReq 阶段定义请求体
type StageReq struct {
	Order           int    `json:"order" binding:"required"`
	Name            string `json:"name" binding:"required"`
	EstimatedDays   int    `json:"estimated_days"`
	IsRequired      bool   `json:"is_required"`
	CanSkip         bool   `json:"can_skip"`
	AutoProgress    bool   `json:"auto_progress"`
	DependsOnOrders []int  `json:"depends_on_orders"`
}

// RequirementReq 材料要求定义请求体
type RequirementReq struct {
	StageOrder         int    `json:"stage_order" binding:"required"`
	Name               string `json:"name" binding:"required"`
	Category           string `json:"category" binding:"required"`
	IsRequired         bool   `json:"is_required"`
	IsClientUploadable bool   `json:"is_client_uploadable"`
	AcceptedFormats    string `json:"accepted_formats"`
	MaxSizeMB          int    `json:"max_size_mb"`
	ExpirationMonths   *int   `json:"expiration_months"`
	SortOrder          int    `json:"sort_order"`
	HelpText           string `json:"help_text"`
}

// CreateTemplateReq 发布模板请求体
type CreateTemplateReq struct {
	ProgramID           string           `json:"program_id" binding:"required"`
	Name                string           `json:"name" binding:"required"`
	Version             int              `json:"version"`
	EstimatedTimeMonths int              `json:"estimated_time_months"`
	Stages              []StageReq       `json:"stages" binding:"required"`
	Requirements        []RequirementReq `json:"requirements"`
}

// CreateTemplate 发布模板版本
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}

	cmd := application.CreateTemplateCommand{
		ProgramID:           req.ProgramID,
		Name:                req.Name,
		Version:             req.Version,
		EstimatedTimeMonths: req.EstimatedTimeMonths,
	}
	for _, s := range req.Stages {
		cmd.Stages = append(cmd.Stages, application.StageSpec{
			Order:           s.Order,
			Name:            s.Name,
			EstimatedDays:   s.EstimatedDays,
			IsRequired:      s.IsRequired,
			CanSkip:         s.CanSkip,
			AutoProgress:    s.AutoProgress,
			DependsOnOrders: s.DependsOnOrders,
		})
	}
	for _, q := range req.Requirements {
		cmd.Requirements = append(cmd.Requirements, application.RequirementSpec{
			StageOrder:         q.StageOrder,
			Name:               q.Name,
			Category:           domain.DocumentCategory(q.Category),
			IsRequired:         q.IsRequired,
			IsClientUploadable: q.IsClientUploadable,
			AcceptedFormats:    q.AcceptedFormats,
			MaxSizeMB:          q.MaxSizeMB,
			ExpirationMonths:   q.ExpirationMonths,
			SortOrder:          q.SortOrder,
			HelpText:           q.HelpText,
		})
	}

	tpl, err := h.service.CreateTemplate(c.Request.Context(), cmd)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to create template", "program_id", req.ProgramID, "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// GetTemplate 获取模板
func (h *Handler) GetTemplate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": "invalid template id"})
		return
	}
	tpl, err := h.service.GetTemplate(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// ListStages 列出模板阶段
func (h *Handler) ListStages(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": "invalid template id"})
		return
	}
	stages, err := h.service.ListStages(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages, "total": len(stages)})
}

// ListRequirements 解析某项目某阶段的材料要求
func (h *Handler) ListRequirements(c *gin.Context) {
	stageID, err := strconv.ParseUint(c.Param("stageID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": "invalid stage id"})
		return
	}
	reqs, err := h.service.ResolveRequirements(c.Request.Context(), c.Param("programID"), uint(stageID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requirements": reqs, "total": len(reqs)})
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"code": apperrors.CodeOf(err), "error": err.Error()})
}
