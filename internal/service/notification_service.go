package service

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/peoplehub/hr-identity/internal/config"
	"github.com/peoplehub/hr-identity/internal/events"
)

// Attachment is a file sent with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Email is the message handed to the delivery collaborator.
type Email struct {
	From        string
	Recipient   string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a Mailer for environments without SMTP.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the envelope. The body holds a live reset link and is not logged.
func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.logger.Info("email queued",
		zap.String("to", email.Recipient),
		zap.String("subject", email.Subject),
		zap.Int("body_bytes", len(email.HTMLBody)))
	return nil
}

// NotificationService turns identity events into emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     Mailer
	logger     *zap.Logger
	cfg        config.NotificationConfig
	policy     *bluemonday.Policy
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer Mailer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		cfg:        cfg,
		policy:     bluemonday.StrictPolicy(),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventPasswordResetCompleted, n.handlePasswordResetCompleted)
	n.dispatcher.Subscribe(events.EventSessionReuseDetected, n.handleSessionReuseDetected)
}

// ResetLink builds the frontend URL carrying the encrypted token as a path segment.
func (n *NotificationService) ResetLink(token string) string {
	return strings.TrimRight(n.cfg.FrontendBaseURL, "/") + "/reset-password/" + url.PathEscape(token)
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}

	link := n.ResetLink(payload.Token)
	name := n.displayName(payload.Name)
	minutes := int(payload.ExpiresAt.Sub(event.Timestamp) / time.Minute)

	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>We received a request to reset your password. The link below is valid for %d minutes and can be used once.</p>
<p><a href="%s">Reset your password</a></p>
<p>If you did not ask for this, you can ignore this email.</p>`,
		name, minutes, html.EscapeString(link))

	return n.mailer.Send(ctx, Email{
		From:      n.cfg.EmailFrom,
		Recipient: payload.Email,
		Subject:   "Reset your password",
		HTMLBody:  body,
	})
}

func (n *NotificationService) handlePasswordResetCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetCompletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	return n.mailer.Send(ctx, Email{
		From:      n.cfg.EmailFrom,
		Recipient: payload.Email,
		Subject:   "Your password was changed",
		HTMLBody: fmt.Sprintf("<p>Your password was changed on %s. All other sessions were signed out.</p>",
			event.Timestamp.Format(time.RFC1123)),
	})
}

func (n *NotificationService) handleSessionReuseDetected(_ context.Context, event events.Event) error {
	n.logger.Warn("SessionReuseDetected",
		zap.String("subject_id", event.SubjectID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) displayName(name string) string {
	clean := strings.TrimSpace(n.policy.Sanitize(name))
	if clean == "" {
		return "there"
	}
	return clean
}
