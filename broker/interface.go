package broker

import (
	"context"
	"sort"
)

// Broker is a read-only view of an exchange account's trading history
type Broker interface {
	// Name returns the exchange name
	Name() string

	// Initialize sets up the broker with credentials
	Initialize(ctx context.Context, credentials *Credentials, settings Settings) error

	// TestConnection checks that the exchange is reachable
	TestConnection(ctx context.Context) error

	// GetFills returns executed trades, oldest first
	GetFills(ctx context.Context, q HistoryQuery) ([]Fill, error)

	// GetRealizedPnL returns realized PnL entries, oldest first
	GetRealizedPnL(ctx context.Context, q HistoryQuery) ([]Income, error)

	// GetOpenOrders returns open orders; an empty symbol lists all symbols
	GetOpenOrders(ctx context.Context, symbol string) ([]Order, error)

	IsConnected() bool
	Close() error
}

// BrokerFactory is a factory function type for creating brokers
type BrokerFactory func() Broker

// Registry holds all registered broker factories by exchange name
var Registry = make(map[string]BrokerFactory)

// Register registers a broker factory
func Register(name string, factory BrokerFactory) {
	Registry[name] = factory
}

// Create creates a new broker instance by exchange name
func Create(name string) (Broker, error) {
	factory, exists := Registry[name]
	if !exists {
		return nil, ErrBrokerNotFound
	}
	return factory(), nil
}

// GetRegisteredBrokers returns the sorted names of all registered exchanges
func GetRegisteredBrokers() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
