package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"winetopia_backend/platform/config"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte // raw file bytes (base64-encoded for Brevo)
	FileName string // e.g. "ticket-WT-000123.png"
	MIMEType string // e.g. "image/png"
}

// Sender delivers the attendee emails.
type Sender interface {
	SendWelcomeEmail(ctx context.Context, toEmail, fullName string, attachments ...Attachment) error
	SendEmailAlreadyUsedEmail(ctx context.Context, toEmail, fullName string) error
}

type NoopSender struct{}

func (NoopSender) SendWelcomeEmail(ctx context.Context, toEmail, fullName string, attachments ...Attachment) error {
	return nil
}

func (NoopSender) SendEmailAlreadyUsedEmail(ctx context.Context, toEmail, fullName string) error {
	return nil
}

// NewSender picks the configured provider. Disabled email yields a NoopSender.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	copyText, err := LoadCopy(cfg.GetEmailCopyFile())
	if err != nil {
		return nil, err
	}

	switch cfg.GetEmailProvider() {
	case config.EmailProviderSMTP:
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(), copyText), nil
	case config.EmailProviderBrevo:
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName(), copyText), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.GetEmailProvider())
	}
}

type BrevoSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	endpoint  string
	copy      Copy
	client    *http.Client
}

type brevoAttachment struct {
	Content string `json:"content"` // base64-encoded file content
	Name    string `json:"name"`
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmailRequest struct {
	Sender struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"sender"`
	To          []brevoRecipient  `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

func NewBrevoSender(apiKey, fromEmail, fromName string, copyText Copy) *BrevoSender {
	return &BrevoSender{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		endpoint:  brevoEndpoint,
		copy:      copyText,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *BrevoSender) SendWelcomeEmail(ctx context.Context, toEmail, fullName string, attachments ...Attachment) error {
	subject, content, err := renderWelcome(b.copy, toEmail, fullName, len(attachments) > 0)
	if err != nil {
		return err
	}
	return b.sendWithAttachments(ctx, toEmail, fullName, subject, content, attachments...)
}

func (b *BrevoSender) SendEmailAlreadyUsedEmail(ctx context.Context, toEmail, fullName string) error {
	subject, content, err := renderEmailAlreadyUsed(b.copy, toEmail, fullName)
	if err != nil {
		return err
	}
	return b.sendWithAttachments(ctx, toEmail, fullName, subject, content)
}

func (b *BrevoSender) sendWithAttachments(ctx context.Context, toEmail, toName, subject, htmlContent string, attachments ...Attachment) error {
	payload := brevoEmailRequest{
		Subject:     subject,
		HTMLContent: htmlContent,
		To:          []brevoRecipient{{Email: toEmail, Name: toName}},
	}
	payload.Sender.Name = b.fromName
	payload.Sender.Email = b.fromEmail

	for _, att := range attachments {
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Content: base64.StdEncoding.EncodeToString(att.Content),
			Name:    att.FileName,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
