// Package documentclient 材料上下文的进程内适配
package documentclient

import (
	"context"
	"time"

	documentdomain "github.com/wyfcoding/magellan/internal/document/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

// Adapter 将材料仓储适配为物流上下文的 DocumentAuthenticator 端口。
// 直接落在仓储上而非材料服务上，避免两个上下文服务互相持有。
type Adapter struct {
	docRepo documentdomain.DocumentRepository
}

// NewAdapter 创建适配器
func NewAdapter(docRepo documentdomain.DocumentRepository) *Adapter {
	return &Adapter{docRepo: docRepo}
}

// MarkAuthenticated 回写原件认证日期，有效期自该日期起算
func (a *Adapter) MarkAuthenticated(ctx context.Context, documentID string, at time.Time) error {
	doc, err := a.docRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperrors.NotFound("document", documentID)
	}
	doc.MarkAuthenticated(at)
	return a.docRepo.Update(ctx, doc)
}
