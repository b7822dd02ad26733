// Package http 原件物流服务接口层
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/magellan/internal/logistics/application"
	"github.com/wyfcoding/magellan/internal/logistics/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/logging"
)

// Handler 原件 HTTP 处理器
type Handler struct {
	commands *application.CommandService
	queries  *application.QueryService
}

// NewHandler 创建原件处理器
func NewHandler(commands *application.CommandService, queries *application.QueryService) *Handler {
	return &Handler{commands: commands, queries: queries}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/originals")
	{
		g.GET("/:id", h.GetOriginal)
		g.POST("/:id/request", h.Request)
		g.POST("/:id/shipping", h.UpdateShipping)
		g.POST("/:id/receipt", h.ConfirmReceipt)
		g.POST("/:id/verification", h.CompleteVerification)
		g.DELETE("/:id", h.Cancel)
	}
	r.GET("/applications/:id/originals", h.ListByApplication)
	r.GET("/applications/:id/originals/readiness", h.GovernmentReadiness)
}

// RequestReq 发起原件递交请求体
type RequestReq struct {
	ShippingAddress string     `json:"shipping_address" binding:"required"`
	IsUrgent        bool       `json:"is_urgent"`
	Deadline        *time.Time `json:"deadline"`
	RequestedBy     string     `json:"requested_by" binding:"required"`
}

// Request 向客户发起原件递交请求
func (h *Handler) Request(c *gin.Context) {
	var req RequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	original, err := h.commands.Request(c.Request.Context(), application.RequestCommand{
		OriginalID:      c.Param("id"),
		ShippingAddress: req.ShippingAddress,
		IsUrgent:        req.IsUrgent,
		Deadline:        req.Deadline,
		RequestedBy:     req.RequestedBy,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to request original",
			"original_id", c.Param("id"), "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, original)
}

// ShippingReq 寄出登记请求体
type ShippingReq struct {
	CourierService string     `json:"courier_service" binding:"required"`
	TrackingNumber string     `json:"tracking_number" binding:"required"`
	ShippedAt      *time.Time `json:"shipped_at"`
}

// UpdateShipping 登记承运与运单信息
func (h *Handler) UpdateShipping(c *gin.Context) {
	var req ShippingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	original, err := h.commands.UpdateShipping(c.Request.Context(), application.ShippingCommand{
		OriginalID:     c.Param("id"),
		CourierService: req.CourierService,
		TrackingNumber: req.TrackingNumber,
		ShippedAt:      req.ShippedAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, original)
}

// ReceiptReq 签收请求体
type ReceiptReq struct {
	Condition    string     `json:"condition" binding:"required"`
	ReceivedAt   *time.Time `json:"received_at"`
	QualityNotes string     `json:"quality_notes"`
	ReceivedBy   string     `json:"received_by" binding:"required"`
}

// ConfirmReceipt 签收并评估品相
func (h *Handler) ConfirmReceipt(c *gin.Context) {
	var req ReceiptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	original, err := h.commands.ConfirmReceipt(c.Request.Context(), application.ReceiptCommand{
		OriginalID:   c.Param("id"),
		Condition:    domain.DocumentCondition(req.Condition),
		ReceivedAt:   req.ReceivedAt,
		QualityNotes: req.QualityNotes,
		ReceivedBy:   req.ReceivedBy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, original)
}

// VerificationReq 核验请求体
type VerificationReq struct {
	Status          string `json:"status" binding:"required"`
	Notes           string `json:"notes"`
	IsAuthenticated bool   `json:"is_authenticated"`
	VerifiedBy      string `json:"verified_by" binding:"required"`
}

// CompleteVerification 完成核验
func (h *Handler) CompleteVerification(c *gin.Context) {
	var req VerificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	original, err := h.commands.CompleteVerification(c.Request.Context(), application.VerificationCommand{
		OriginalID:      c.Param("id"),
		Status:          domain.VerificationStatus(req.Status),
		Notes:           req.Notes,
		IsAuthenticated: req.IsAuthenticated,
		VerifiedBy:      req.VerifiedBy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, original)
}

// Cancel 取消原件追踪
// 原件已寄出或已入库时需带 confirmed=true 二次确认。
func (h *Handler) Cancel(c *gin.Context) {
	confirmed := c.Query("confirmed") == "true"
	cancelledBy := c.Query("cancelled_by")
	if err := h.commands.Cancel(c.Request.Context(), c.Param("id"), cancelledBy, confirmed); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetOriginal 获取原件详情
func (h *Handler) GetOriginal(c *gin.Context) {
	original, err := h.queries.GetOriginal(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, original)
}

// ListByApplication 列出申请名下全部原件
func (h *Handler) ListByApplication(c *gin.Context) {
	originals, err := h.queries.ListByApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"originals": originals, "total": len(originals)})
}

// GovernmentReadiness 政府递交就绪度
func (h *Handler) GovernmentReadiness(c *gin.Context) {
	view, err := h.queries.GovernmentReadiness(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"code": apperrors.CodeOf(err), "error": err.Error()})
}
