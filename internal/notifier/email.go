package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"job-board/internal/model"
	"job-board/internal/textutil"
)

// EmailConfig 邮件配置。收件人由订阅决定，不在配置中指定。
type EmailConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	From     string `yaml:"from" json:"from"`
	Subject  string `yaml:"subject" json:"subject"`
}

// EmailMessage 表示一封邮件。
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// EmailSender 抽象发送接口，便于测试替换。
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient 封装 SMTP 发送。
type SMTPClient struct {
	addr string
	auth smtp.Auth
}

func NewSMTPClient(cfg EmailConfig) *SMTPClient {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	data := buildEmailData(msg)
	return smtp.SendMail(c.addr, c.auth, msg.From, msg.To, []byte(data))
}

// EmailNotifier 把新发布职位打包成摘要邮件发给单个订阅者。
type EmailNotifier struct {
	cfg    EmailConfig
	sender EmailSender
}

// NewEmailNotifier 创建 EmailNotifier。
func NewEmailNotifier(cfg EmailConfig, sender EmailSender) *EmailNotifier {
	if sender == nil {
		sender = NewSMTPClient(cfg)
	}
	if cfg.Subject == "" {
		cfg.Subject = "New job listings"
	}
	return &EmailNotifier{cfg: cfg, sender: sender}
}

// Notify 向收件人发送职位摘要，列表为空时跳过。
func (n EmailNotifier) Notify(ctx context.Context, recipient string, jobs []model.Job) error {
	if len(jobs) == 0 || recipient == "" {
		return nil
	}

	msg := EmailMessage{
		From:    n.cfg.From,
		To:      []string{recipient},
		Subject: n.cfg.Subject,
		Body:    buildBody(jobs),
	}
	return n.sender.Send(ctx, msg)
}

func buildBody(jobs []model.Job) string {
	var b strings.Builder
	b.WriteString("New job listings matching your alert:\n")
	for _, j := range jobs {
		b.WriteString("- " + j.Title)
		if j.Location != nil {
			b.WriteString(" @ " + *j.Location)
		} else if j.IsRemote {
			b.WriteString(" (remote)")
		}
		if line := salaryLine(j); line != "" {
			b.WriteString(", " + line)
		}
		b.WriteString("\n  " + textutil.Excerpt(j.Description, 120) + "\n")
	}
	return b.String()
}

func salaryLine(j model.Job) string {
	if j.SalaryMin == nil && j.SalaryMax == nil {
		return ""
	}
	var b strings.Builder
	if j.SalaryMin != nil {
		fmt.Fprintf(&b, "%d", *j.SalaryMin)
	}
	b.WriteByte('-')
	if j.SalaryMax != nil {
		fmt.Fprintf(&b, "%d", *j.SalaryMax)
	}
	if j.SalaryCurrency != nil {
		b.WriteString(" " + *j.SalaryCurrency)
	}
	if j.SalaryPeriod != nil {
		b.WriteString("/" + *j.SalaryPeriod)
	}
	return b.String()
}

func buildEmailData(msg EmailMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ",")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
