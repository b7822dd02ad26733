// Package http 通知服务接口层
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/magellan/internal/notification/application"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

// Handler 通知 HTTP 处理器
type Handler struct {
	service *application.NotificationService
}

// NewHandler 创建通知处理器
func NewHandler(service *application.NotificationService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/notifications")
	{
		g.GET("/recipient/:id", h.ListByRecipient)
		g.POST("/resend", h.ResendFailed)
	}
	r.GET("/applications/:id/notifications", h.ListByApplication)
}

// ListByRecipient 按收件人查询通知
func (h *Handler) ListByRecipient(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := h.service.ListByRecipient(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "total": len(notifications)})
}

// ListByApplication 按申请查询通知
func (h *Handler) ListByApplication(c *gin.Context) {
	notifications, err := h.service.ListByApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "total": len(notifications)})
}

// ResendFailed 重发失败通知
func (h *Handler) ResendFailed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	sent, err := h.service.ResendFailed(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resent": sent})
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"code": apperrors.CodeOf(err), "error": err.Error()})
}
