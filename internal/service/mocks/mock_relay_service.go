package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/formrelay/internal/message"
	"github.com/shaharia-lab/formrelay/internal/service"
	"github.com/shaharia-lab/formrelay/internal/whatsapp"
)

// MockRelayService is a mock implementation of service.RelayService.
type MockRelayService struct {
	mock.Mock
}

func (m *MockRelayService) result(args mock.Arguments) (*service.Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

//nolint:revive
func (m *MockRelayService) SubmitContact(ctx context.Context, in message.ContactInquiry, meta service.RequestMeta) (*service.Result, error) {
	return m.result(m.Called(ctx, in, meta))
}

//nolint:revive
func (m *MockRelayService) SubmitLead(ctx context.Context, in message.Lead, meta service.RequestMeta) (*service.Result, error) {
	return m.result(m.Called(ctx, in, meta))
}

//nolint:revive
func (m *MockRelayService) PlaceOrder(ctx context.Context, in message.Order) (*service.Result, error) {
	return m.result(m.Called(ctx, in))
}

//nolint:revive
func (m *MockRelayService) CompleteOrder(ctx context.Context, in message.OrderCompletion) (*service.Result, error) {
	return m.result(m.Called(ctx, in))
}

//nolint:revive
func (m *MockRelayService) SendDirect(ctx context.Context, in message.Direct) (*service.Result, error) {
	return m.result(m.Called(ctx, in))
}

//nolint:revive
func (m *MockRelayService) SendTest(ctx context.Context) (*service.Result, error) {
	return m.result(m.Called(ctx))
}

//nolint:revive
func (m *MockRelayService) Status() whatsapp.Info {
	args := m.Called()
	return args.Get(0).(whatsapp.Info)
}
