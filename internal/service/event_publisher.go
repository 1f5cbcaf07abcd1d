package service

// EventPublisher receives submission events. The relay service publishes one
// event per processed submission; the event bus fans it out to listeners such
// as the email mirror.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}
