package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaharia-lab/formrelay/internal/captcha"
	"github.com/shaharia-lab/formrelay/internal/config"
	"github.com/shaharia-lab/formrelay/internal/eventbus"
	"github.com/shaharia-lab/formrelay/internal/message"
	"github.com/shaharia-lab/formrelay/internal/metrics"
	"github.com/shaharia-lab/formrelay/internal/notification"
	"github.com/shaharia-lab/formrelay/internal/phone"
	"github.com/shaharia-lab/formrelay/internal/whatsapp"
)

// Form names carried on results, events and metrics.
const (
	FormContact       = config.FormContact
	FormLead          = config.FormLead
	FormTest          = config.FormTest
	FormOrderPlaced   = "order_placed"
	FormOrderComplete = "order_complete"
	FormDirect        = "direct"
)

// StatusNotReady is the result status when the WhatsApp client did not become
// ready in time and nothing was sent.
const StatusNotReady = "not_ready"

// statusRejected labels CAPTCHA rejections in metrics.
const statusRejected = "rejected"

// RequestMeta carries request details used for verification.
type RequestMeta struct {
	RemoteIP  string
	UserAgent string
}

// Result describes what happened to one accepted submission.
type Result struct {
	SubmissionID string                         `json:"submission_id"`
	Form         string                         `json:"form"`
	Status       string                         `json:"status"`
	Deliveries   []notification.DeliveryOutcome `json:"deliveries"`
	ReceivedAt   time.Time                      `json:"timestamp"`
}

// RelayService validates form submissions and relays them to WhatsApp.
type RelayService interface {
	// SubmitContact relays a tour inquiry to the staff recipients.
	SubmitContact(ctx context.Context, in message.ContactInquiry, meta RequestMeta) (*Result, error)
	// SubmitLead relays a landing page lead to the staff recipients.
	SubmitLead(ctx context.Context, in message.Lead, meta RequestMeta) (*Result, error)
	// PlaceOrder sends the order summary to the customer, if a number was given.
	PlaceOrder(ctx context.Context, in message.Order) (*Result, error)
	// CompleteOrder tells the customer the order is ready, if a number was given.
	CompleteOrder(ctx context.Context, in message.OrderCompletion) (*Result, error)
	// SendDirect sends free text to one customer.
	SendDirect(ctx context.Context, in message.Direct) (*Result, error)
	// SendTest sends the connectivity test message.
	SendTest(ctx context.Context) (*Result, error)
	// Status reports the WhatsApp client state.
	Status() whatsapp.Info
}

// ReadinessWaiter blocks until the client is ready or the timeout passes.
type ReadinessWaiter interface {
	WaitUntilReady(timeout time.Duration) bool
}

// Dispatcher fans a message out to recipients.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipients []string, message string) []notification.DeliveryOutcome
}

// ClientInfo exposes the WhatsApp client status.
type ClientInfo interface {
	Info() whatsapp.Info
}

// RelayConfig holds the routing and verification settings.
type RelayConfig struct {
	// Recipients are the default staff numbers.
	Recipients []string
	// Routes overrides Recipients per form.
	Routes       config.Routes
	CountryCode  string
	ReadyTimeout time.Duration
	MinScore     float64
}

// RelayDeps bundles the collaborators of the relay service.
type RelayDeps struct {
	Gate       ReadinessWaiter
	Dispatcher Dispatcher
	Verifier   captcha.Verifier
	Renderer   *message.Renderer
	Client     ClientInfo
	Publisher  EventPublisher
	Logger     *slog.Logger
}

// relayServiceImpl implements RelayService.
type relayServiceImpl struct {
	cfg  RelayConfig
	deps RelayDeps
	log  *slog.Logger
}

// NewRelayService creates a new RelayService.
func NewRelayService(cfg RelayConfig, deps RelayDeps) RelayService {
	if deps.Verifier == nil {
		deps.Verifier = captcha.Noop{}
	}
	if deps.Renderer == nil {
		deps.Renderer = message.NewRenderer(time.UTC)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &relayServiceImpl{cfg: cfg, deps: deps, log: logger}
}

func (s *relayServiceImpl) SubmitContact(ctx context.Context, in message.ContactInquiry, meta RequestMeta) (*Result, error) {
	if err := s.verify(ctx, FormContact, in.RecaptchaToken, meta); err != nil {
		return nil, err
	}
	s.log.Info("contact form submission",
		"name", orNotProvided(in.Name), "email", orNotProvided(in.Email),
		"country", orNotProvided(in.Country), "subject", orNotProvided(in.Subject))

	return s.relay(ctx, FormContact, s.staffRecipients(FormContact), s.deps.Renderer.ContactInquiry(in))
}

func (s *relayServiceImpl) SubmitLead(ctx context.Context, in message.Lead, meta RequestMeta) (*Result, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		field := "name"
		if strings.TrimSpace(in.Name) != "" {
			field = "email"
		}
		return nil, &ValidationError{Field: field, Message: "Name and email are required fields"}
	}
	if err := s.verify(ctx, FormLead, in.RecaptchaToken, meta); err != nil {
		return nil, err
	}
	s.log.Info("lead submission",
		"name", in.Name, "email", in.Email,
		"source", in.Source, "interest", in.Interest)

	return s.relay(ctx, FormLead, s.staffRecipients(FormLead), s.deps.Renderer.Lead(in))
}

func (s *relayServiceImpl) PlaceOrder(ctx context.Context, in message.Order) (*Result, error) {
	s.log.Info("order placed",
		"order_id", in.OrderID.String(), "shop", in.ShopName, "items", len(in.Items))

	return s.relay(ctx, FormOrderPlaced, s.customerRecipients(in.ContactNumber.String()), s.deps.Renderer.OrderPlaced(in))
}

func (s *relayServiceImpl) CompleteOrder(ctx context.Context, in message.OrderCompletion) (*Result, error) {
	s.log.Info("order completed",
		"order_id", in.OrderID.String(), "shop", in.ShopName, "payment_status", in.PaymentStatus)

	return s.relay(ctx, FormOrderComplete, s.customerRecipients(in.ContactNumber.String()), s.deps.Renderer.OrderComplete(in))
}

func (s *relayServiceImpl) SendDirect(ctx context.Context, in message.Direct) (*Result, error) {
	if strings.TrimSpace(in.ContactNumber.String()) == "" || strings.TrimSpace(in.Message) == "" {
		field := "contactNumber"
		if strings.TrimSpace(in.ContactNumber.String()) != "" {
			field = "message"
		}
		return nil, &ValidationError{Field: field, Message: "contactNumber and message are required"}
	}

	return s.relay(ctx, FormDirect, s.customerRecipients(in.ContactNumber.String()), s.deps.Renderer.Direct(in))
}

func (s *relayServiceImpl) SendTest(ctx context.Context) (*Result, error) {
	numbers := s.cfg.Routes[FormTest]
	if len(numbers) == 0 && len(s.cfg.Recipients) > 0 {
		numbers = s.cfg.Recipients[:1]
	}
	return s.relay(ctx, FormTest, s.normalizeAll(numbers), message.TestText)
}

func (s *relayServiceImpl) Status() whatsapp.Info {
	if s.deps.Client == nil {
		return whatsapp.Info{}
	}
	return s.deps.Client.Info()
}

// verify runs the CAPTCHA gate. A configured verifier requires a token and a
// successful result scoring at least MinScore.
func (s *relayServiceImpl) verify(ctx context.Context, form, token string, meta RequestMeta) error {
	v := s.deps.Verifier
	if !v.Enabled() {
		return nil
	}

	reject := func(e *VerificationError) error {
		s.log.Warn("submission rejected by captcha", "form", form, "reason", e.Reason, "remote_ip", meta.RemoteIP)
		metrics.ObserveSubmission(form, statusRejected)
		return e
	}

	if strings.TrimSpace(token) == "" {
		return reject(&VerificationError{Reason: "missing recaptcha token"})
	}
	res, err := v.Verify(ctx, token, meta.RemoteIP)
	if err != nil {
		return fmt.Errorf("verifying captcha: %w", err)
	}
	if !res.Success {
		reason := res.Reason
		if reason == "" {
			reason = "token rejected"
		}
		return reject(&VerificationError{Reason: reason, Score: res.Score})
	}
	if res.Score < s.cfg.MinScore {
		return reject(&VerificationError{
			Reason: fmt.Sprintf("score %.2f below threshold %.2f", res.Score, s.cfg.MinScore),
			Score:  res.Score,
		})
	}
	return nil
}

// relay waits for readiness, fans text out to recipients and records the
// outcome. Deliveries run on a context detached from the caller so that a
// client hanging up does not abort sends already under way.
func (s *relayServiceImpl) relay(ctx context.Context, form string, recipients []string, text string) (*Result, error) {
	res := &Result{
		SubmissionID: uuid.NewString(),
		Form:         form,
		Deliveries:   []notification.DeliveryOutcome{},
		ReceivedAt:   time.Now().UTC(),
	}
	log := s.log.With("form", form, "submission_id", res.SubmissionID)

	switch {
	case len(recipients) == 0:
		res.Status = string(notification.AggregateSkipped)
		log.Info("no recipients for submission, nothing sent")

	case !s.waitReady():
		res.Status = StatusNotReady
		log.Warn("whatsapp client is not ready, messages will not be sent",
			"timeout", s.cfg.ReadyTimeout)

	default:
		res.Deliveries = s.deps.Dispatcher.Dispatch(context.WithoutCancel(ctx), recipients, text)
		res.Status = string(notification.Summarize(res.Deliveries))
		for _, o := range res.Deliveries {
			metrics.ObserveDelivery(string(o.Status))
		}
		log.Info("submission relayed", "status", res.Status, "recipients", len(recipients))
	}

	metrics.ObserveSubmission(form, res.Status)
	s.publish(res, text)
	return res, nil
}

func (s *relayServiceImpl) waitReady() bool {
	if s.deps.Gate == nil {
		return false
	}
	start := time.Now()
	ready := s.deps.Gate.WaitUntilReady(s.cfg.ReadyTimeout)
	metrics.ObserveReadyWait(time.Since(start))
	return ready
}

func (s *relayServiceImpl) publish(res *Result, text string) {
	if s.deps.Publisher == nil {
		return
	}
	s.deps.Publisher.Publish(eventbus.EventSubmissionProcessed, map[string]string{
		notification.PayloadForm:         res.Form,
		notification.PayloadSubmissionID: res.SubmissionID,
		notification.PayloadStatus:       res.Status,
		notification.PayloadBody:         text,
		"deliveries":                     strconv.Itoa(len(res.Deliveries)),
	})
}

func (s *relayServiceImpl) staffRecipients(form string) []string {
	return s.normalizeAll(s.cfg.Routes.For(form, s.cfg.Recipients))
}

// normalizeAll turns configured numbers into recipient IDs. Entries that
// already name a server (group or user JIDs) are kept as written.
func (s *relayServiceImpl) normalizeAll(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if strings.Contains(n, "@") {
			out = append(out, strings.TrimSpace(n))
			continue
		}
		if number := phone.Normalize(n, s.cfg.CountryCode); number != "" {
			out = append(out, number)
		}
	}
	return phone.Recipients(out)
}

func (s *relayServiceImpl) customerRecipients(raw string) []string {
	number := phone.Normalize(raw, s.cfg.CountryCode)
	if number == "" {
		return nil
	}
	return []string{phone.Recipient(number)}
}

func orNotProvided(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Not provided"
	}
	return v
}
