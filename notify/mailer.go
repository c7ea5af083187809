// Package notify delivers operator alerts by email.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Govind-619/checkout-core/models"
	"github.com/Govind-619/checkout-core/utils"
	"gopkg.in/gomail.v2"
)

// Dialer is the part of *gomail.Dialer the mailer uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailConfig holds SMTP settings for alert mail.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Mailer sends coupon abuse alerts. It implements services.AbuseAlerter.
type Mailer struct {
	cfg    MailConfig
	dialer Dialer
}

func NewMailer(cfg MailConfig) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NewMailerWithDialer is used by tests to capture outgoing mail.
func NewMailerWithDialer(cfg MailConfig, d Dialer) *Mailer {
	return &Mailer{cfg: cfg, dialer: d}
}

// AlertAbuse mails one summary of all findings.
func (m *Mailer) AlertAbuse(ctx context.Context, findings []models.AbuseFinding) error {
	if len(findings) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To)
	msg.SetHeader("Subject", fmt.Sprintf("Coupon over-limit usage: %d holder(s)", len(findings)))
	msg.SetBody("text/html", abuseBody(findings))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send abuse alert: %v", err)
	}
	utils.LogInfo("Abuse alert sent to %s with %d findings", m.cfg.To, len(findings))
	return nil
}

func abuseBody(findings []models.AbuseFinding) string {
	var b strings.Builder
	b.WriteString("<h2>Coupon usage over per-holder limit</h2>\n<table border=\"1\" cellpadding=\"4\">\n")
	b.WriteString("<tr><th>Coupon</th><th>Holder</th><th>Redemptions</th><th>Limit</th></tr>\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%d</td></tr>\n",
			html.EscapeString(f.Code), html.EscapeString(f.HolderID), f.Redemptions, f.MaxUsesPerUser)
	}
	b.WriteString("</table>\n")
	return b.String()
}

// LogAlerter only logs findings. Used when SMTP is not configured.
type LogAlerter struct{}

func (LogAlerter) AlertAbuse(_ context.Context, findings []models.AbuseFinding) error {
	for _, f := range findings {
		utils.LogWarn("Coupon %s used %d times by %s (limit %d)", f.Code, f.Redemptions, f.HolderID, f.MaxUsesPerUser)
	}
	return nil
}
