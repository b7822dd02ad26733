// Package http 申请案卷服务接口层
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/magellan/internal/casefile/application"
	"github.com/wyfcoding/magellan/internal/casefile/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/logging"
)

// Handler 申请 HTTP 处理器
type Handler struct {
	commands *application.CommandService
	queries  *application.QueryService
}

// NewHandler 创建申请处理器
func NewHandler(commands *application.CommandService, queries *application.QueryService) *Handler {
	return &Handler{commands: commands, queries: queries}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/applications")
	{
		g.POST("", h.Create)
		g.GET("/:id", h.GetApplication)
		g.PATCH("/:id/status", h.UpdateStatus)
		g.PATCH("/:id/priority", h.SetPriority)
		g.PATCH("/:id/advisor", h.AssignAdvisor)
		g.POST("/:id/archive", h.Archive)
		g.GET("/:id/progress", h.GetProgress)
		g.POST("/:id/stages/:stageId/complete", h.CompleteStage)
		g.POST("/:id/stages/:stageId/skip", h.SkipStage)
	}
	r.GET("/clients/:id/applications", h.ListByClient)
	r.GET("/advisors/:id/applications", h.ListByAdvisor)
	r.GET("/dashboard/stats", h.DashboardStats)
}

// CreateReq 创建申请请求体
type CreateReq struct {
	ClientID         string `json:"client_id" binding:"required"`
	ApplicantName    string `json:"applicant_name" binding:"required"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Nationality      string `json:"nationality"`
	ProgramID        string `json:"program_id" binding:"required"`
	TemplateID       uint   `json:"template_id" binding:"required"`
	InvestmentAmount string `json:"investment_amount" binding:"required"`
	InvestmentOption string `json:"investment_option"`
	AssignedAdvisor  string `json:"assigned_advisor"`
}

// Create 创建申请
func (h *Handler) Create(c *gin.Context) {
	var req CreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.InvestmentAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": "invalid investment_amount"})
		return
	}
	app, err := h.commands.CreateApplication(c.Request.Context(), application.CreateApplicationCommand{
		ClientID:         req.ClientID,
		ApplicantName:    req.ApplicantName,
		Email:            req.Email,
		Phone:            req.Phone,
		Nationality:      req.Nationality,
		ProgramID:        req.ProgramID,
		TemplateID:       req.TemplateID,
		InvestmentAmount: amount,
		InvestmentOption: req.InvestmentOption,
		AssignedAdvisor:  req.AssignedAdvisor,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to create application",
			"client_id", req.ClientID, "program_id", req.ProgramID, "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// StatusReq 状态迁移请求体
type StatusReq struct {
	Status    string `json:"status" binding:"required"`
	ChangedBy string `json:"changed_by" binding:"required"`
}

// UpdateStatus 顾问驱动的状态迁移
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req StatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	app, err := h.commands.UpdateStatus(c.Request.Context(), application.UpdateStatusCommand{
		ApplicationID: c.Param("id"),
		TargetStatus:  domain.ApplicationStatus(req.Status),
		ChangedBy:     req.ChangedBy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// PriorityReq 优先级请求体
type PriorityReq struct {
	Priority string `json:"priority" binding:"required"`
}

// SetPriority 修改优先级
func (h *Handler) SetPriority(c *gin.Context) {
	var req PriorityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	app, err := h.commands.SetPriority(c.Request.Context(), c.Param("id"), domain.Priority(req.Priority))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// AdvisorReq 指派顾问请求体
type AdvisorReq struct {
	Advisor string `json:"advisor" binding:"required"`
}

// AssignAdvisor 指派顾问
func (h *Handler) AssignAdvisor(c *gin.Context) {
	var req AdvisorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	app, err := h.commands.AssignAdvisor(c.Request.Context(), c.Param("id"), req.Advisor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ArchiveReq 归档请求体
type ArchiveReq struct {
	ArchivedBy string `json:"archived_by" binding:"required"`
}

// Archive 归档申请
func (h *Handler) Archive(c *gin.Context) {
	var req ArchiveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	app, err := h.commands.Archive(c.Request.Context(), c.Param("id"), req.ArchivedBy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// StageActorReq 阶段操作请求体
type StageActorReq struct {
	Actor string `json:"actor" binding:"required"`
}

// CompleteStage 顾问手动完成阶段
func (h *Handler) CompleteStage(c *gin.Context) {
	var req StageActorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	stageID, err := strconv.ParseUint(c.Param("stageId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": "invalid stage id"})
		return
	}
	row, err := h.commands.CompleteStage(c.Request.Context(), c.Param("id"), uint(stageID), req.Actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// SkipStage 顾问跳过阶段
func (h *Handler) SkipStage(c *gin.Context) {
	var req StageActorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	stageID, err := strconv.ParseUint(c.Param("stageId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": "invalid stage id"})
		return
	}
	row, err := h.commands.SkipStage(c.Request.Context(), c.Param("id"), uint(stageID), req.Actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// GetApplication 查询申请详情
func (h *Handler) GetApplication(c *gin.Context) {
	app, err := h.queries.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// GetProgress 查询进度视图
func (h *Handler) GetProgress(c *gin.Context) {
	view, err := h.queries.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListByClient 按客户列出申请
func (h *Handler) ListByClient(c *gin.Context) {
	apps, err := h.queries.ListByClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "total": len(apps)})
}

// ListByAdvisor 按顾问列出申请
func (h *Handler) ListByAdvisor(c *gin.Context) {
	apps, err := h.queries.ListByAdvisor(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "total": len(apps)})
}

// DashboardStats 仪表盘统计
func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.queries.DashboardStatsQuery(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"code": apperrors.CodeOf(err), "error": err.Error()})
}
