// Package notification delivers rendered submission messages. WhatsApp
// recipients are reached one by one through a Sender; an optional email copy
// goes out through a Provider.
package notification

import "context"

// Sender delivers a text message to a single recipient on the messaging
// network. Implementations return an error when the message was not accepted.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, recipient, text string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, recipient, text string) error {
	return f(ctx, recipient, text)
}

// Message is the content to be delivered by a Provider.
type Message struct {
	Subject string
	Body    string
	To      []string
}

// Provider is the interface for secondary notification backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}
