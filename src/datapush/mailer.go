package datapush

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"

	"BikeSharingDashboard/src/config"
)

// Mailer 通过 SMTP(显式TLS) 发送报表
type Mailer struct {
	server   string
	username string
	password string
	to       []string
	subject  string
}

// NewMailer 根据配置创建发件器
func NewMailer(c *config.Config) *Mailer {
	m := &Mailer{
		server:   c.SendEmail.Server,
		username: c.SendEmail.Username,
		password: c.SendEmail.Password,
		subject:  c.SendEmail.TargetSubject,
	}
	if c.SendEmail.To != "" {
		m.to = []string{c.SendEmail.To}
	}
	return m
}

// Enabled 服务器、发件人和收件人都配置后才发送
func (m *Mailer) Enabled() bool {
	return m != nil && m.server != "" && m.username != "" && len(m.to) > 0
}

// addr 确保服务器地址包含端口
func (m *Mailer) addr() string {
	if !strings.Contains(m.server, ":") {
		return m.server + ":465" // 默认 SSL 端口
	}
	return m.server
}

func (m *Mailer) compose(body, attachment string) (*email.Email, error) {
	e := email.NewEmail()
	e.From = fmt.Sprintf("Bike Sharing Report <%s>", m.username)
	e.To = m.to
	e.Subject = m.subject
	e.Text = []byte(body)

	if attachment != "" {
		if _, err := os.Stat(attachment); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %w", err)
		}
		if _, err := e.AttachFile(attachment); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}

// Send 发送邮件，attachment 为空时只发正文
func (m *Mailer) Send(body, attachment string) error {
	e, err := m.compose(body, attachment)
	if err != nil {
		return err
	}

	addr := m.addr()
	host := strings.Split(addr, ":")[0]
	err = e.SendWithTLS(
		addr,
		smtp.PlainAuth("", m.username, m.password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, addr)
	}
	return nil
}
