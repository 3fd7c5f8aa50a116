package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/ian-seymour/gamma/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// NewMailer picks SMTP delivery when a host is configured and falls back to
// logging the link otherwise.
func NewMailer(cfg config.Config, logger *slog.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return &LogMailer{logger: logger}
	}
	return NewSMTPMailer(cfg)
}

type resetEmailData struct {
	Subject  string
	ResetURL string
	Minutes  int
}

const resetEmailSubject = "Reset your Gamma Weather password"

var resetEmailTemplate = template.Must(template.New("password-reset").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: sans-serif; color: #333;">
  <h2>Reset your password</h2>
  <p>Someone asked to reset the password for this account. If it was you, follow the link below.</p>
  <p><a href="{{.ResetURL}}">{{.ResetURL}}</a></p>
  <p>The link expires in {{.Minutes}} minutes. If you did not ask for a reset you can ignore this message.</p>
</body>
</html>`))

type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
}

func (m *SMTPMailer) buildResetMessage(to, resetURL string) (*email.Email, error) {
	data := resetEmailData{
		Subject:  resetEmailSubject,
		ResetURL: resetURL,
		Minutes:  int(ResetTokenTTL.Minutes()),
	}

	var html bytes.Buffer
	if err := resetEmailTemplate.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = resetEmailSubject
	e.Text = []byte(fmt.Sprintf("Reset your password: %s\nThe link expires in %d minutes.\n", resetURL, data.Minutes))
	e.HTML = html.Bytes()
	return e, nil
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	e, err := m.buildResetMessage(to, resetURL)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.host, m.port)
	if m.username == "" {
		return e.Send(addr, nil)
	}

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	return e.SendWithStartTLS(addr, auth, &tls.Config{ServerName: m.host})
}

// LogMailer writes reset links to the log. Used when no SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	m.logger.InfoContext(ctx, "Password reset link generated", "to", to, "url", resetURL)
	return nil
}
