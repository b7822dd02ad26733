// Package http 数字材料服务接口层
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/magellan/internal/document/application"
	"github.com/wyfcoding/magellan/pkg/apperrors"
	"github.com/wyfcoding/pkg/logging"
)

// Handler 材料 HTTP 处理器
type Handler struct {
	commands *application.CommandService
	queries  *application.QueryService
}

// NewHandler 创建材料处理器
func NewHandler(commands *application.CommandService, queries *application.QueryService) *Handler {
	return &Handler{commands: commands, queries: queries}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/documents")
	{
		g.POST("/upload", h.Upload)
		g.GET("/:id", h.GetDocument)
		g.POST("/:id/review", h.StartReview)
		g.POST("/:id/approve", h.Approve)
		g.POST("/:id/reject", h.Reject)
		g.POST("/:id/clarification", h.RequestClarification)
		g.POST("/waive", h.Waive)
	}
	r.GET("/applications/:id/documents", h.ListByApplication)
}

// UploadReq 上传请求体
// 文件字节走独立的存储服务，引擎只保存元数据与 URL。
type UploadReq struct {
	ApplicationID string `json:"application_id" binding:"required"`
	RequirementID uint   `json:"requirement_id" binding:"required"`
	FileName      string `json:"file_name" binding:"required"`
	FileURL       string `json:"file_url" binding:"required"`
	FileSizeBytes int64  `json:"file_size_bytes" binding:"required"`
	UploadedBy    string `json:"uploaded_by"`
}

// Upload 上传材料
func (h *Handler) Upload(c *gin.Context) {
	var req UploadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	doc, err := h.commands.Upload(c.Request.Context(), application.UploadCommand{
		ApplicationID: req.ApplicationID,
		RequirementID: req.RequirementID,
		FileName:      req.FileName,
		FileURL:       req.FileURL,
		FileSizeBytes: req.FileSizeBytes,
		UploadedBy:    req.UploadedBy,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "failed to upload document",
			"application_id", req.ApplicationID, "requirement_id", req.RequirementID, "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// StartReview 进入评审
func (h *Handler) StartReview(c *gin.Context) {
	doc, err := h.commands.StartReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ApproveReq 评审通过请求体
type ApproveReq struct {
	ReviewedBy string `json:"reviewed_by" binding:"required"`
	Comments   string `json:"comments"`
}

// Approve 评审通过
func (h *Handler) Approve(c *gin.Context) {
	var req ApproveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	doc, err := h.commands.Approve(c.Request.Context(), application.ApproveCommand{
		DocumentID: c.Param("id"),
		ReviewedBy: req.ReviewedBy,
		Comments:   req.Comments,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// RejectReq 评审驳回请求体
type RejectReq struct {
	ReviewedBy string `json:"reviewed_by" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
	Comments   string `json:"comments"`
}

// Reject 评审驳回
func (h *Handler) Reject(c *gin.Context) {
	var req RejectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	doc, err := h.commands.Reject(c.Request.Context(), application.RejectCommand{
		DocumentID: c.Param("id"),
		ReviewedBy: req.ReviewedBy,
		Reason:     req.Reason,
		Comments:   req.Comments,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ClarificationReq 澄清请求体
type ClarificationReq struct {
	RequestedBy string `json:"requested_by" binding:"required"`
	Comments    string `json:"comments" binding:"required"`
}

// RequestClarification 发出澄清请求
func (h *Handler) RequestClarification(c *gin.Context) {
	var req ClarificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	if err := h.commands.RequestClarification(c.Request.Context(), c.Param("id"), req.RequestedBy, req.Comments); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WaiveReq 豁免请求体
type WaiveReq struct {
	ApplicationID string `json:"application_id" binding:"required"`
	RequirementID uint   `json:"requirement_id" binding:"required"`
	WaivedBy      string `json:"waived_by" binding:"required"`
}

// Waive 顾问豁免条件性要求
func (h *Handler) Waive(c *gin.Context) {
	var req WaiveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": apperrors.CodeValidation, "error": err.Error()})
		return
	}
	if err := h.commands.Waive(c.Request.Context(), req.ApplicationID, req.RequirementID, req.WaivedBy); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetDocument 获取材料详情
func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.queries.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ListByApplication 列出申请的全部材料
func (h *Handler) ListByApplication(c *gin.Context) {
	docs, err := h.queries.ListByApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": len(docs)})
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"code": apperrors.CodeOf(err), "error": err.Error()})
}
