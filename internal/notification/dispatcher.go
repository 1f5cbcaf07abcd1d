package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/shaharia-lab/formrelay/internal/notification"

// Status is the result of a single delivery attempt.
type Status string

// Delivery statuses.
const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// DeliveryOutcome records what happened to one recipient. Detail is nil for
// sent messages and carries the error text for failed ones.
type DeliveryOutcome struct {
	Recipient string  `json:"recipient"`
	Status    Status  `json:"status"`
	Detail    *string `json:"detail"`
}

// Sent reports whether the outcome is a successful delivery.
func (o DeliveryOutcome) Sent() bool {
	return o.Status == StatusSent
}

// Aggregate summarizes a whole fan-out.
type Aggregate string

// Aggregate values.
const (
	AggregateSuccess Aggregate = "success"
	AggregatePartial Aggregate = "partial_success"
	AggregateFailed  Aggregate = "failed"
	AggregateSkipped Aggregate = "skipped"
)

// Summarize folds outcomes into an Aggregate: all sent is success, some sent
// is partial_success, none sent is failed and no outcomes at all is skipped.
func Summarize(outcomes []DeliveryOutcome) Aggregate {
	if len(outcomes) == 0 {
		return AggregateSkipped
	}
	sent := 0
	for _, o := range outcomes {
		if o.Sent() {
			sent++
		}
	}
	switch sent {
	case len(outcomes):
		return AggregateSuccess
	case 0:
		return AggregateFailed
	default:
		return AggregatePartial
	}
}

// Dispatcher fans a message out to recipients one at a time. A failure for
// one recipient never stops delivery to the rest and never reaches the caller
// as an error.
type Dispatcher struct {
	sender   Sender
	logger   *slog.Logger
	duration metric.Float64Histogram
}

// NewDispatcher creates a Dispatcher that delivers through sender.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{sender: sender, logger: logger}
	hist, err := otel.Meter(meterName).Float64Histogram("formrelay.delivery.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent on a single WhatsApp send."))
	if err == nil {
		d.duration = hist
	}
	return d
}

// Dispatch attempts exactly one delivery per recipient, in order, waiting for
// each to finish before starting the next. The returned slice has one outcome
// per recipient in the same order and is empty, not nil, for no recipients.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []string, message string) []DeliveryOutcome {
	outcomes := make([]DeliveryOutcome, 0, len(recipients))
	for _, recipient := range recipients {
		outcomes = append(outcomes, d.deliver(ctx, recipient, message))
	}
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, recipient, message string) (out DeliveryOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("whatsapp sender panicked", "recipient", recipient, "panic", r)
			out = failedOutcome(recipient, fmt.Sprintf("sender panicked: %v", r))
		}
		if d.duration != nil {
			d.duration.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.String("status", string(out.Status))))
		}
	}()

	d.logger.Debug("sending whatsapp message", "recipient", recipient)
	if err := d.sender.Send(ctx, recipient, message); err != nil {
		d.logger.Error("failed to send whatsapp message", "recipient", recipient, "error", err)
		return failedOutcome(recipient, err.Error())
	}

	d.logger.Info("whatsapp message sent", "recipient", recipient)
	return DeliveryOutcome{Recipient: recipient, Status: StatusSent}
}

func failedOutcome(recipient, detail string) DeliveryOutcome {
	return DeliveryOutcome{Recipient: recipient, Status: StatusFailed, Detail: &detail}
}
