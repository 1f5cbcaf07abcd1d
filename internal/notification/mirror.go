package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaharia-lab/formrelay/internal/eventbus"
)

const mirrorSendTimeout = 30 * time.Second

// Payload keys read by MailMirror from submission events.
const (
	PayloadForm         = "form"
	PayloadSubmissionID = "submission_id"
	PayloadStatus       = "status"
	PayloadBody         = "body"
)

// MailMirror emails a copy of every processed submission, and the client
// lifecycle events, through a Provider. It is an eventbus listener.
type MailMirror struct {
	provider Provider
	logger   *slog.Logger
}

// NewMailMirror creates a MailMirror sending through provider.
func NewMailMirror(provider Provider, logger *slog.Logger) *MailMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailMirror{provider: provider, logger: logger}
}

// humanSubject returns a readable subject for an event.
func humanSubject(e eventbus.Event) string {
	switch e.Type {
	case eventbus.EventSubmissionProcessed:
		subject := "New " + e.Payload[PayloadForm] + " submission"
		if s := e.Payload[PayloadStatus]; s != "" {
			subject += " (" + s + ")"
		}
		return subject
	case eventbus.EventWhatsAppReady:
		return "WhatsApp client is ready"
	case eventbus.EventWhatsAppLoggedOut:
		return "WhatsApp device was logged out"
	}
	return e.Type
}

// Handle sends the email for e. Unknown event types are ignored.
func (m *MailMirror) Handle(e eventbus.Event) {
	var body string
	switch e.Type {
	case eventbus.EventSubmissionProcessed:
		body = e.Payload[PayloadBody]
		if id := e.Payload[PayloadSubmissionID]; id != "" {
			body += "\n\nSubmission ID: " + id
		}
	case eventbus.EventWhatsAppReady, eventbus.EventWhatsAppLoggedOut:
		body = "Event time: " + e.Timestamp.Format(time.RFC1123)
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorSendTimeout)
	defer cancel()

	subject := humanSubject(e)
	if err := m.provider.Send(ctx, Message{Subject: subject, Body: body}); err != nil {
		m.logger.Error("failed to send email copy",
			"event", e.Type, "provider", m.provider.Name(), "error", err)
		return
	}
	m.logger.Info("email copy sent", "event", e.Type, "provider", m.provider.Name(), "subject", subject)
}
