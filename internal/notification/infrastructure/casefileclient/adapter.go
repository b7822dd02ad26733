// Package casefileclient 案件上下文的进程内适配
package casefileclient

import (
	"context"
	"fmt"

	casefiledomain "github.com/wyfcoding/magellan/internal/casefile/domain"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

// Adapter 将申请仓储适配为通知端的 RecipientDirectory 端口
type Adapter struct {
	appRepo casefiledomain.ApplicationRepository
	// advisorEmailDomain 顾问邮箱域，顾问侧无独立档案，按约定拼接
	advisorEmailDomain string
}

// NewAdapter 创建适配器
func NewAdapter(appRepo casefiledomain.ApplicationRepository, advisorEmailDomain string) *Adapter {
	return &Adapter{appRepo: appRepo, advisorEmailDomain: advisorEmailDomain}
}

// ClientContact 解析申请对应的客户联系方式
func (a *Adapter) ClientContact(ctx context.Context, applicationID string) (string, string, error) {
	app, err := a.load(ctx, applicationID)
	if err != nil {
		return "", "", err
	}
	return app.ClientID, app.Email, nil
}

// AdvisorContact 解析申请对应的顾问联系方式，未分配顾问时无目标地址
func (a *Adapter) AdvisorContact(ctx context.Context, applicationID string) (string, string, error) {
	app, err := a.load(ctx, applicationID)
	if err != nil {
		return "", "", err
	}
	if app.AssignedAdvisor == "" {
		return "", "", nil
	}
	return app.AssignedAdvisor, fmt.Sprintf("%s@%s", app.AssignedAdvisor, a.advisorEmailDomain), nil
}

func (a *Adapter) load(ctx context.Context, applicationID string) (*casefiledomain.Application, error) {
	app, err := a.appRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperrors.NotFound("application", applicationID)
	}
	return app, nil
}
