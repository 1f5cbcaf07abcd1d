package eventbus

import "time"

// Event types published by the relay.
const (
	// EventSubmissionProcessed fires after a form submission has been handled,
	// whether or not any WhatsApp delivery succeeded.
	EventSubmissionProcessed = "submission.processed"
	// EventWhatsAppReady fires once, when the WhatsApp client first becomes ready.
	EventWhatsAppReady = "whatsapp.ready"
	// EventWhatsAppLoggedOut fires when the linked device is removed from the phone.
	EventWhatsAppLoggedOut = "whatsapp.logged_out"
)

// Event represents an application event published to the bus.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Listener is a function that handles an event.
type Listener func(Event)
