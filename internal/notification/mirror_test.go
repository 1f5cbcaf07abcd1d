package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/formrelay/internal/eventbus"
	"github.com/shaharia-lab/formrelay/internal/notification"
)

// --- stub provider ---

type stubProvider struct {
	sent []notification.Message
	err  error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Send(_ context.Context, msg notification.Message) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

// --- tests ---

func TestMailMirror_Submission(t *testing.T) {
	p := &stubProvider{}
	m := notification.NewMailMirror(p, nil)

	m.Handle(eventbus.Event{
		Type: eventbus.EventSubmissionProcessed,
		Payload: map[string]string{
			notification.PayloadForm:         "contact",
			notification.PayloadStatus:       "partial_success",
			notification.PayloadSubmissionID: "abc-123",
			notification.PayloadBody:         "*New Tour Inquiry*",
		},
	})

	require.Len(t, p.sent, 1)
	assert.Equal(t, "New contact submission (partial_success)", p.sent[0].Subject)
	assert.Contains(t, p.sent[0].Body, "*New Tour Inquiry*")
	assert.Contains(t, p.sent[0].Body, "Submission ID: abc-123")
}

func TestMailMirror_Ready(t *testing.T) {
	p := &stubProvider{}
	m := notification.NewMailMirror(p, nil)

	m.Handle(eventbus.Event{Type: eventbus.EventWhatsAppReady, Timestamp: time.Now()})

	require.Len(t, p.sent, 1)
	assert.Equal(t, "WhatsApp client is ready", p.sent[0].Subject)
}

func TestMailMirror_IgnoresUnknownEvents(t *testing.T) {
	p := &stubProvider{}
	m := notification.NewMailMirror(p, nil)

	m.Handle(eventbus.Event{Type: "something.else"})

	assert.Empty(t, p.sent)
}

func TestMailMirror_ProviderError(t *testing.T) {
	p := &stubProvider{err: errors.New("connection refused")}
	m := notification.NewMailMirror(p, nil)

	// Logged, never panics.
	assert.NotPanics(t, func() {
		m.Handle(eventbus.Event{Type: eventbus.EventSubmissionProcessed, Payload: map[string]string{}})
	})
}

func TestSMTPConfig_Enabled(t *testing.T) {
	assert.False(t, notification.SMTPConfig{}.Enabled())
	assert.False(t, notification.SMTPConfig{Host: "smtp.example.com"}.Enabled())
	assert.True(t, notification.SMTPConfig{
		Host:     "smtp.example.com",
		FromAddr: "relay@example.com",
		ToAddrs:  "ops@example.com",
	}.Enabled())
}

func TestSMTPProvider_NoRecipients(t *testing.T) {
	p := notification.NewSMTPProvider(notification.SMTPConfig{
		Host:     "localhost",
		Port:     2525,
		FromAddr: "relay@example.com",
	})
	err := p.Send(context.Background(), notification.Message{Subject: "s", Body: "b"})
	assert.EqualError(t, err, "no email recipients configured")
}
