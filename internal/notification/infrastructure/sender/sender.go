// Package sender 通知发送器实现
package sender

import (
	"context"
	"log/slog"
	"net/smtp"

	"github.com/wyfcoding/magellan/internal/notification/domain"
)

// SMTPSender SMTP 邮件发送器
type SMTPSender struct {
	addr     string
	username string
	password string
	from     string
	host     string
}

// NewSMTPSender 创建 SMTP 发送器
func NewSMTPSender(addr, host, username, password, from string) domain.Sender {
	return &SMTPSender{
		addr:     addr,
		host:     host,
		username: username,
		password: password,
		from:     from,
	}
}

// Send 发送邮件
func (s *SMTPSender) Send(ctx context.Context, target, subject, content string) error {
	msg := []byte("To: " + target + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		content + "\r\n")
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	return smtp.SendMail(s.addr, auth, s.from, []string{target}, msg)
}

// MockEmailSender 模拟邮件发送器，dev 环境使用
type MockEmailSender struct{}

// NewMockEmailSender 创建模拟邮件发送器
func NewMockEmailSender() domain.Sender {
	return &MockEmailSender{}
}

// Send 发送邮件（模拟实现）
func (s *MockEmailSender) Send(ctx context.Context, target, subject, content string) error {
	slog.InfoContext(ctx, "sending email notification",
		"sender", "MockEmailSender",
		"target", target,
		"subject", subject,
	)
	return nil
}
