package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/steve-kings/project-management-system/config"
	"github.com/steve-kings/project-management-system/logging"
)

var ErrEmailDisabled = errors.New("email delivery is not configured")

// Invitation carries everything the invitation mail shows.
type Invitation struct {
	RecipientEmail string
	RecipientName  string
	WorkspaceName  string
	InviterName    string
	Role           string
	ClientURL      string
}

type invitationData struct {
	Invitation
	Year int
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Workspace Invitation</h1>
    <p>Hi {{if .RecipientName}}{{.RecipientName}}{{else}}there{{end}},</p>
    <p><strong>{{.InviterName}}</strong> has invited you to join the workspace:</p>
    <h2 style="color: #667eea;">{{.WorkspaceName}}</h2>
    <p>You've been invited as: <strong>{{.Role}}</strong></p>
    <p><a href="{{.ClientURL}}/login">Accept Invitation</a></p>
    <p style="color: #666; font-size: 14px;">If you don't have an account yet, you'll be able to sign up using Google Sign-In.</p>
    <p style="color: #666; font-size: 12px;">If you didn't expect this invitation, you can safely ignore this email. &copy; {{.Year}}</p>
  </div>
</body>
</html>`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends invitation mail over SMTP behind a circuit breaker.
type Mailer struct {
	cfg     config.EmailConfig
	breaker *gobreaker.CircuitBreaker
	send    sendFunc
}

func NewMailer(cfg config.EmailConfig, breaker *gobreaker.CircuitBreaker) *Mailer {
	return &Mailer{cfg: cfg, breaker: breaker, send: smtp.SendMail}
}

// RenderInvitation returns the subject and HTML body of an invitation.
func RenderInvitation(inv Invitation) (string, string, error) {
	var body bytes.Buffer
	data := invitationData{Invitation: inv, Year: time.Now().Year()}
	data.Role = strings.ToUpper(inv.Role)
	if err := invitationTemplate.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render invitation: %w", err)
	}
	return fmt.Sprintf("You've been invited to join %s", inv.WorkspaceName), body.String(), nil
}

func (m *Mailer) SendInvitation(ctx context.Context, inv Invitation) error {
	if !m.cfg.Enabled() {
		logging.Logger.Warnf("Event ID: SEND_EMAIL_DISABLED, Description: Skipping invitation to '%s', SMTP credentials are not set", inv.RecipientEmail)
		return ErrEmailDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := RenderInvitation(inv)
	if err != nil {
		return err
	}

	from := m.cfg.User
	sender := from
	if at := strings.Index(from, "@"); at > 0 {
		sender = fmt.Sprintf("%q <%s>", from[:at], from)
	}
	message := []byte("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n" +
		"From: " + sender + "\r\n" +
		"To: " + inv.RecipientEmail + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", from, m.cfg.Password, m.cfg.SMTPHost)
	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort

	_, err = m.breaker.Execute(func() (interface{}, error) {
		return nil, m.send(addr, auth, from, []string{inv.RecipientEmail}, message)
	})
	if err != nil {
		logging.Logger.Errorf("Event ID: SEND_EMAIL_FAILED, Description: Failed to send invitation to '%s': %v", inv.RecipientEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logging.Logger.Infof("Event ID: SEND_EMAIL_SUCCESS, Description: Invitation sent to '%s' for workspace '%s'", inv.RecipientEmail, inv.WorkspaceName)
	return nil
}
