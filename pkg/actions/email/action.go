// Package email implements the send_email action. Messages are built as
// multipart/alternative MIME (plain text plus optional HTML) and handed
// to an SMTP relay.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/template"
)

var (
	// ErrEmailRecipientInvalid is returned when 'to' is missing from the config.
	ErrEmailRecipientInvalid = errors.New("invalid email recipient")
	// ErrEmailSubjectInvalid is returned when 'subject' is missing from the config.
	ErrEmailSubjectInvalid = errors.New("invalid email subject")
	// ErrSMTPDisabled is returned when no SMTP relay is configured.
	ErrSMTPDisabled = errors.New("smtp relay is not configured")
)

// SMTPConfig holds the relay settings, sourced from the environment by
// the factory.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Enabled reports whether a relay host is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func (c SMTPConfig) addr() string {
	port := c.Port
	if port == "" {
		port = "587"
	}

	return c.Host + ":" + port
}

// sendFunc matches smtp.SendMail; swapped out in tests.
type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Action sends one templated email per execution.
type Action struct {
	smtpConfig SMTPConfig
	send       sendFunc

	To       string
	Subject  string
	Body     string
	HTMLBody string
}

// NewAction creates an email action from configuration.
func NewAction(smtpConfig SMTPConfig, config map[string]any) (*Action, error) {
	to, ok := config["to"].(string)
	if !ok || to == "" {
		return nil, fmt.Errorf("missing or invalid 'to' in configuration: %w", ErrEmailRecipientInvalid)
	}

	subject, ok := config["subject"].(string)
	if !ok || subject == "" {
		return nil, fmt.Errorf("missing or invalid 'subject' in configuration: %w", ErrEmailSubjectInvalid)
	}

	body, _ := config["body"].(string)
	htmlBody, _ := config["html_body"].(string)

	return &Action{
		smtpConfig: smtpConfig,
		send:       smtp.SendMail,
		To:         to,
		Subject:    subject,
		Body:       body,
		HTMLBody:   htmlBody,
	}, nil
}

// Execute renders the templates, builds the MIME message and relays it.
func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "email_action")

	if !a.smtpConfig.Enabled() {
		return nil, ErrSMTPDisabled
	}

	to, err := template.RenderString(a.To, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render recipient template: %w", err)
	}

	subject, err := template.RenderString(a.Subject, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject template: %w", err)
	}

	body, err := template.RenderString(a.Body, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render body template: %w", err)
	}

	htmlBody, err := template.RenderString(a.HTMLBody, execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render html body template: %w", err)
	}

	message, err := a.buildMessage(to, subject, body, htmlBody)
	if err != nil {
		return nil, err
	}

	var auth smtp.Auth
	if a.smtpConfig.Username != "" {
		auth = smtp.PlainAuth("", a.smtpConfig.Username, a.smtpConfig.Password, a.smtpConfig.Host)
	}

	err = a.send(a.smtpConfig.addr(), auth, a.smtpConfig.From, []string{to}, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "to", to, "subject", subject)

	return map[string]any{
		"to":      to,
		"subject": subject,
	}, nil
}

// buildMessage assembles a multipart/alternative MIME message with a
// plain text part and, when configured, an HTML part.
func (a *Action) buildMessage(to, subject, body, htmlBody string) ([]byte, error) {
	var buf bytes.Buffer

	var header mail.Header

	header.SetDate(time.Now())
	header.SetSubject(subject)
	header.SetAddressList("From", []*mail.Address{{Name: a.smtpConfig.FromName, Address: a.smtpConfig.From}})
	header.SetAddressList("To", []*mail.Address{{Address: to}})

	writer, err := mail.CreateWriter(&buf, header)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail writer: %w", err)
	}

	inline, err := writer.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline part: %w", err)
	}

	err = writePart(inline, "text/plain", body)
	if err != nil {
		return nil, err
	}

	if htmlBody != "" {
		err = writePart(inline, "text/html", htmlBody)
		if err != nil {
			return nil, err
		}
	}

	err = inline.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close inline part: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close mail writer: %w", err)
	}

	return buf.Bytes(), nil
}

func writePart(inline *mail.InlineWriter, contentType, content string) error {
	var header mail.InlineHeader

	header.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	part, err := inline.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}

	_, err = io.WriteString(part, content)
	if err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}

	err = part.Close()
	if err != nil {
		return fmt.Errorf("failed to close %s part: %w", contentType, err)
	}

	return nil
}
