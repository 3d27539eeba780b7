package notifier

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPMailer 通过 SMTP 投递邮件（gomail 实现）
type SMTPMailer struct {
	dialer *gomail.Dialer
}

// NewSMTPMailer 创建 SMTP 投递通道
// user/password 为该通道独立的账号凭证（如 Gmail 应用专用密码）
func NewSMTPMailer(host string, port int, user, password string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

// Send 投递一封邮件（阻塞直到投递完成或失败）
func (m *SMTPMailer) Send(msg *Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", msg.From)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	if msg.HTMLBody {
		gm.SetBody("text/html", msg.Body)
	} else {
		gm.SetBody("text/plain", msg.Body)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
