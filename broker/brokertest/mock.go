// Package brokertest provides a testify mock of broker.Broker.
package brokertest

import (
	"context"

	"github.com/Cyvadra/signal-desk/broker"
	"github.com/stretchr/testify/mock"
)

// MockBroker is a mock implementation of the broker interface
type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockBroker) Initialize(ctx context.Context, credentials *broker.Credentials, settings broker.Settings) error {
	args := m.Called(ctx, credentials, settings)
	return args.Error(0)
}

func (m *MockBroker) TestConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBroker) GetFills(ctx context.Context, q broker.HistoryQuery) ([]broker.Fill, error) {
	args := m.Called(ctx, q)
	fills, _ := args.Get(0).([]broker.Fill)
	return fills, args.Error(1)
}

func (m *MockBroker) GetRealizedPnL(ctx context.Context, q broker.HistoryQuery) ([]broker.Income, error) {
	args := m.Called(ctx, q)
	income, _ := args.Get(0).([]broker.Income)
	return income, args.Error(1)
}

func (m *MockBroker) GetOpenOrders(ctx context.Context, symbol string) ([]broker.Order, error) {
	args := m.Called(ctx, symbol)
	orders, _ := args.Get(0).([]broker.Order)
	return orders, args.Error(1)
}

func (m *MockBroker) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockBroker) Close() error {
	args := m.Called()
	return args.Error(0)
}
