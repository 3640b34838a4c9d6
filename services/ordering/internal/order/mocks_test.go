package order

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/tableside/services/ordering/internal/rush"
)

type MockOrderSubmitter struct {
	mu              sync.Mutex
	calls           int
	payloads        []Payload
	SubmitOrderFunc func(ctx context.Context, p Payload) (Result, error)
}

func (m *MockOrderSubmitter) SubmitOrder(ctx context.Context, p Payload) (Result, error) {
	m.mu.Lock()
	m.calls++
	m.payloads = append(m.payloads, p)
	m.mu.Unlock()
	if m.SubmitOrderFunc != nil {
		return m.SubmitOrderFunc(ctx, p)
	}
	return Result{Success: true, OrderID: "backend-1"}, nil
}

func (m *MockOrderSubmitter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockOrderSubmitter) Payloads() []Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Payload(nil), m.payloads...)
}

type MockCheckout struct {
	BeginCheckoutFunc func() error
	ConfirmOrderFunc  func(orderID string) error
	begun             int
	aborted           int
	confirmed         []string
}

func (m *MockCheckout) BeginCheckout() error {
	m.begun++
	if m.BeginCheckoutFunc != nil {
		return m.BeginCheckoutFunc()
	}
	return nil
}

func (m *MockCheckout) AbortCheckout() {
	m.aborted++
}

func (m *MockCheckout) ConfirmOrder(orderID string) error {
	m.confirmed = append(m.confirmed, orderID)
	if m.ConfirmOrderFunc != nil {
		return m.ConfirmOrderFunc(orderID)
	}
	return nil
}

type MockRefresher struct {
	PollNowFunc func(ctx context.Context) (rush.Status, error)
	polls       int
}

func (m *MockRefresher) PollNow(ctx context.Context) (rush.Status, error) {
	m.polls++
	if m.PollNowFunc != nil {
		return m.PollNowFunc(ctx)
	}
	return rush.Status{}, nil
}

type MockMetrics struct {
	mu       sync.Mutex
	success  int
	failures int
}

func (m *MockMetrics) ObserveSubmission(scope string, success bool, total float64, prepMinutes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.success++
		return
	}
	m.failures++
}

type MockPublisher struct {
	mu          sync.Mutex
	topics      []string
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	m.topics = append(m.topics, topic)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	return nil
}

func (m *MockPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.topics...)
}

type MockReplayer struct {
	ReplayFunc func(ctx context.Context, limit int) ([]events.StreamMessage, error)
}

func (m *MockReplayer) Replay(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	if m.ReplayFunc != nil {
		return m.ReplayFunc(ctx, limit)
	}
	return nil, nil
}

type MockDiningClient struct {
	ListTableOrdersFunc    func(ctx context.Context) ([]TableOrder, error)
	OpenTableOrderFunc     func(ctx context.Context, tableNumber, customersCount int) (TableOrder, error)
	AddLineFunc            func(ctx context.Context, orderID string, line OrderingLine) error
	SendForPreparationFunc func(ctx context.Context, orderID string) error
	GetTableOrderFunc      func(ctx context.Context, orderID string) (TableOrder, error)

	lines    []OrderingLine
	opened   int
	prepared []string
}

func (m *MockDiningClient) ListTableOrders(ctx context.Context) ([]TableOrder, error) {
	if m.ListTableOrdersFunc != nil {
		return m.ListTableOrdersFunc(ctx)
	}
	return nil, nil
}

func (m *MockDiningClient) OpenTableOrder(ctx context.Context, tableNumber, customersCount int) (TableOrder, error) {
	m.opened++
	if m.OpenTableOrderFunc != nil {
		return m.OpenTableOrderFunc(ctx, tableNumber, customersCount)
	}
	return TableOrder{ID: "new-order", TableNumber: tableNumber, CustomersCount: customersCount}, nil
}

func (m *MockDiningClient) AddLine(ctx context.Context, orderID string, line OrderingLine) error {
	m.lines = append(m.lines, line)
	if m.AddLineFunc != nil {
		return m.AddLineFunc(ctx, orderID, line)
	}
	return nil
}

func (m *MockDiningClient) SendForPreparation(ctx context.Context, orderID string) error {
	m.prepared = append(m.prepared, orderID)
	if m.SendForPreparationFunc != nil {
		return m.SendForPreparationFunc(ctx, orderID)
	}
	return nil
}

func (m *MockDiningClient) GetTableOrder(ctx context.Context, orderID string) (TableOrder, error) {
	if m.GetTableOrderFunc != nil {
		return m.GetTableOrderFunc(ctx, orderID)
	}
	return TableOrder{ID: orderID}, nil
}
