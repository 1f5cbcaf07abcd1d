package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/formrelay/internal/captcha"
	"github.com/shaharia-lab/formrelay/internal/config"
	"github.com/shaharia-lab/formrelay/internal/eventbus"
	"github.com/shaharia-lab/formrelay/internal/message"
	"github.com/shaharia-lab/formrelay/internal/notification"
	"github.com/shaharia-lab/formrelay/internal/service"
	"github.com/shaharia-lab/formrelay/internal/whatsapp"
)

// --- collaborators ---

type fixedGate struct {
	ready bool
	calls int
	got   time.Duration
}

func (g *fixedGate) WaitUntilReady(timeout time.Duration) bool {
	g.calls++
	g.got = timeout
	return g.ready
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, recipients []string, msg string) []notification.DeliveryOutcome {
	args := m.Called(ctx, recipients, msg)
	return args.Get(0).([]notification.DeliveryOutcome)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, token, remoteIP string) (*captcha.Result, error) {
	args := m.Called(ctx, token, remoteIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*captcha.Result), args.Error(1)
}

func (m *mockVerifier) Enabled() bool { return true }

type recordingPublisher struct {
	mu     sync.Mutex
	events []map[string]string
}

func (p *recordingPublisher) Publish(eventType string, payload map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	payload["type"] = eventType
	p.events = append(p.events, payload)
}

type staticInfo whatsapp.Info

func (s staticInfo) Info() whatsapp.Info { return whatsapp.Info(s) }

func sent(r string) notification.DeliveryOutcome {
	return notification.DeliveryOutcome{Recipient: r, Status: notification.StatusSent}
}

func failed(r, detail string) notification.DeliveryOutcome {
	return notification.DeliveryOutcome{Recipient: r, Status: notification.StatusFailed, Detail: &detail}
}

var staff = []string{"94771461925", "94778808689"}

var staffIDs = []string{"94771461925@s.whatsapp.net", "94778808689@s.whatsapp.net"}

func newService(gate *fixedGate, d *mockDispatcher, v captcha.Verifier, pub *recordingPublisher) service.RelayService {
	var publisher service.EventPublisher
	if pub != nil {
		publisher = pub
	}
	return service.NewRelayService(
		service.RelayConfig{
			Recipients:   staff,
			CountryCode:  "94",
			ReadyTimeout: 30 * time.Second,
			MinScore:     0.5,
		},
		service.RelayDeps{
			Gate:       gate,
			Dispatcher: d,
			Verifier:   v,
			Renderer:   message.NewRenderer(time.UTC),
			Publisher:  publisher,
		},
	)
}

// --- contact & lead ---

func TestSubmitContact_AllSent(t *testing.T) {
	gate := &fixedGate{ready: true}
	d := &mockDispatcher{}
	pub := &recordingPublisher{}
	d.On("Dispatch", mock.Anything, staffIDs, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "New Tour Inquiry") && strings.Contains(s, "*Name:* A")
	})).Return([]notification.DeliveryOutcome{sent(staffIDs[0]), sent(staffIDs[1])})

	svc := newService(gate, d, nil, pub)
	res, err := svc.SubmitContact(context.Background(), message.ContactInquiry{Name: "A", Email: "a@x"}, service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Len(t, res.Deliveries, 2)
	assert.NotEmpty(t, res.SubmissionID)
	assert.Equal(t, service.FormContact, res.Form)
	assert.Equal(t, 30*time.Second, gate.got)
	d.AssertExpectations(t)

	require.Len(t, pub.events, 1)
	assert.Equal(t, eventbus.EventSubmissionProcessed, pub.events[0]["type"])
	assert.Equal(t, res.SubmissionID, pub.events[0][notification.PayloadSubmissionID])
	assert.Equal(t, "success", pub.events[0][notification.PayloadStatus])
}

func TestSubmitContact_PartialFailure(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, staffIDs, mock.Anything).
		Return([]notification.DeliveryOutcome{failed(staffIDs[0], "invalid id"), sent(staffIDs[1])})

	res, err := newService(&fixedGate{ready: true}, d, nil, nil).
		SubmitContact(context.Background(), message.ContactInquiry{}, service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "partial_success", res.Status)
	require.NotNil(t, res.Deliveries[0].Detail)
	assert.Equal(t, "invalid id", *res.Deliveries[0].Detail)
}

func TestSubmitContact_NotReady(t *testing.T) {
	d := &mockDispatcher{}
	pub := &recordingPublisher{}

	res, err := newService(&fixedGate{ready: false}, d, nil, pub).
		SubmitContact(context.Background(), message.ContactInquiry{Name: "A"}, service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, service.StatusNotReady, res.Status)
	assert.NotNil(t, res.Deliveries)
	assert.Empty(t, res.Deliveries)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, pub.events, 1)
	assert.Equal(t, service.StatusNotReady, pub.events[0][notification.PayloadStatus])
}

func TestSubmitContact_RoutesOverrideRecipients(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, []string{"94770000009@s.whatsapp.net"}, mock.Anything).
		Return([]notification.DeliveryOutcome{sent("94770000009@s.whatsapp.net")})

	svc := service.NewRelayService(
		service.RelayConfig{
			Recipients: staff,
			Routes:     config.Routes{config.FormContact: {"94770000009"}},
		},
		service.RelayDeps{Gate: &fixedGate{ready: true}, Dispatcher: d},
	)
	res, err := svc.SubmitContact(context.Background(), message.ContactInquiry{}, service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	d.AssertExpectations(t)
}

func TestSubmitContact_NormalizesStaffNumbers(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, []string{staffIDs[0], staffIDs[1], "120363000000000000@g.us"}, mock.Anything).
		Return([]notification.DeliveryOutcome{sent(staffIDs[0]), sent(staffIDs[1]), sent("120363000000000000@g.us")})

	svc := service.NewRelayService(
		service.RelayConfig{
			Recipients:  []string{"+94 77 146 1925", "0778808689", " ", "120363000000000000@g.us"},
			CountryCode: "94",
		},
		service.RelayDeps{Gate: &fixedGate{ready: true}, Dispatcher: d},
	)
	res, err := svc.SubmitContact(context.Background(), message.ContactInquiry{}, service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	d.AssertExpectations(t)
}

func TestSendTest_NormalizesRoutedNumber(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, []string{"94770000009@s.whatsapp.net"}, message.TestText).
		Return([]notification.DeliveryOutcome{sent("94770000009@s.whatsapp.net")})

	svc := service.NewRelayService(
		service.RelayConfig{
			Recipients: staff,
			Routes:     config.Routes{config.FormTest: {"077-000-0009"}},
		},
		service.RelayDeps{Gate: &fixedGate{ready: true}, Dispatcher: d},
	)
	res, err := svc.SendTest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	d.AssertExpectations(t)
}

func TestSubmitContact_DispatchSurvivesCallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &mockDispatcher{}
	d.On("Dispatch", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), staffIDs, mock.Anything).
		Return([]notification.DeliveryOutcome{sent(staffIDs[0]), sent(staffIDs[1])})

	res, err := newService(&fixedGate{ready: true}, d, nil, nil).
		SubmitContact(ctx, message.ContactInquiry{}, service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	d.AssertExpectations(t)
}

func TestSubmitLead_Validation(t *testing.T) {
	tests := []struct {
		name  string
		lead  message.Lead
		field string
	}{
		{"missing both", message.Lead{}, "name"},
		{"missing email", message.Lead{Name: "A"}, "email"},
		{"blank name", message.Lead{Name: "  ", Email: "a@x"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := &fixedGate{ready: true}
			_, err := newService(gate, &mockDispatcher{}, nil, nil).
				SubmitLead(context.Background(), tt.lead, service.RequestMeta{})

			var ve *service.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, "Name and email are required fields", ve.Message)
			assert.Zero(t, gate.calls)
		})
	}
}

func TestSubmitLead_CaptchaGate(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		result  *captcha.Result
		callErr error
		wantErr string
		verify  bool
	}{
		{name: "missing token", token: "", wantErr: "missing recaptcha token"},
		{name: "unsuccessful", token: "t", result: &captcha.Result{Success: false, Reason: "invalid-input-response"}, wantErr: "invalid-input-response", verify: true},
		{name: "low score", token: "t", result: &captcha.Result{Success: true, Score: 0.1}, wantErr: "score 0.10 below threshold 0.50", verify: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &mockVerifier{}
			if tt.verify {
				v.On("Verify", mock.Anything, tt.token, "203.0.113.9").Return(tt.result, tt.callErr)
			}
			gate := &fixedGate{ready: true}
			d := &mockDispatcher{}

			_, err := newService(gate, d, v, nil).SubmitLead(context.Background(),
				message.Lead{Name: "A", Email: "a@x", RecaptchaToken: tt.token},
				service.RequestMeta{RemoteIP: "203.0.113.9"})

			var ve *service.VerificationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Reason, tt.wantErr)
			assert.Zero(t, gate.calls)
			d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
			v.AssertExpectations(t)
		})
	}
}

func TestSubmitLead_CaptchaPasses(t *testing.T) {
	v := &mockVerifier{}
	v.On("Verify", mock.Anything, "tok", "").Return(&captcha.Result{Success: true, Score: 0.9}, nil)
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, staffIDs, mock.Anything).
		Return([]notification.DeliveryOutcome{failed(staffIDs[0], "x"), failed(staffIDs[1], "y")})

	res, err := newService(&fixedGate{ready: true}, d, v, nil).
		SubmitLead(context.Background(), message.Lead{Name: "A", Email: "a@x", RecaptchaToken: "tok"}, service.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "failed", res.Status)
}

func TestSubmitLead_VerifierError(t *testing.T) {
	v := &mockVerifier{}
	v.On("Verify", mock.Anything, "tok", "").Return(nil, errors.New("HTTP 503"))

	_, err := newService(&fixedGate{ready: true}, &mockDispatcher{}, v, nil).
		SubmitLead(context.Background(), message.Lead{Name: "A", Email: "a@x", RecaptchaToken: "tok"}, service.RequestMeta{})

	require.Error(t, err)
	var ve *service.VerificationError
	assert.False(t, errors.As(err, &ve))
	assert.ErrorContains(t, err, "HTTP 503")
}

// --- orders & direct ---

func TestPlaceOrder_NormalizesCustomerNumber(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, []string{"94771234567@s.whatsapp.net"}, mock.Anything).
		Return([]notification.DeliveryOutcome{sent("94771234567@s.whatsapp.net")})

	res, err := newService(&fixedGate{ready: true}, d, nil, nil).PlaceOrder(context.Background(), message.Order{
		OrderID:       "17",
		ShopName:      "Juice Bar",
		ContactNumber: "077 123-4567",
	})

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, service.FormOrderPlaced, res.Form)
	d.AssertExpectations(t)
}

func TestPlaceOrder_NoContactNumberSkips(t *testing.T) {
	gate := &fixedGate{ready: true}
	d := &mockDispatcher{}

	res, err := newService(gate, d, nil, nil).PlaceOrder(context.Background(), message.Order{ShopName: "Juice Bar"})

	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Status)
	assert.Zero(t, gate.calls)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteOrder(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, []string{"94771234567@s.whatsapp.net"}, mock.MatchedBy(func(s string) bool {
		return strings.Contains(s, "Please pay the bill Rs.450")
	})).Return([]notification.DeliveryOutcome{sent("94771234567@s.whatsapp.net")})

	res, err := newService(&fixedGate{ready: true}, d, nil, nil).CompleteOrder(context.Background(), message.OrderCompletion{
		ShopName:      "Juice Bar",
		ContactNumber: "+94771234567",
		PaymentStatus: "unpaid",
		PaymentAmount: "450",
	})

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	d.AssertExpectations(t)
}

func TestSendDirect_Validation(t *testing.T) {
	svc := newService(&fixedGate{ready: true}, &mockDispatcher{}, nil, nil)

	_, err := svc.SendDirect(context.Background(), message.Direct{Message: "hi"})
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "contactNumber", ve.Field)

	_, err = svc.SendDirect(context.Background(), message.Direct{ContactNumber: "0771234567"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "message", ve.Field)
	assert.Equal(t, "contactNumber and message are required", ve.Message)
}

func TestSendDirect_WithShopHeader(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, []string{"94771234567@s.whatsapp.net"}, "*Juice Bar*\n\nhello").
		Return([]notification.DeliveryOutcome{sent("94771234567@s.whatsapp.net")})

	res, err := newService(&fixedGate{ready: true}, d, nil, nil).SendDirect(context.Background(),
		message.Direct{ContactNumber: "0771234567", Message: "hello", ShopName: "Juice Bar"})

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	d.AssertExpectations(t)
}

func TestSendTest_FirstStaffRecipient(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, staffIDs[:1], message.TestText).
		Return([]notification.DeliveryOutcome{sent(staffIDs[0])})

	res, err := newService(&fixedGate{ready: true}, d, nil, nil).SendTest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, service.FormTest, res.Form)
	d.AssertExpectations(t)
}

func TestStatus(t *testing.T) {
	svc := service.NewRelayService(service.RelayConfig{}, service.RelayDeps{
		Client: staticInfo{Ready: true, Connected: true, JID: "94770000000@s.whatsapp.net"},
	})
	info := svc.Status()
	assert.True(t, info.Ready)
	assert.Equal(t, "94770000000@s.whatsapp.net", info.JID)

	assert.Equal(t, whatsapp.Info{}, service.NewRelayService(service.RelayConfig{}, service.RelayDeps{}).Status())
}
