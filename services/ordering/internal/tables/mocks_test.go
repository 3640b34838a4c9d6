package tables

import (
	"context"
	"sync"

	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
	"github.com/appetiteclub/tableside/services/ordering/internal/order"
)

type MockOrderSubmitter struct {
	mu              sync.Mutex
	payloads        []order.Payload
	SubmitOrderFunc func(ctx context.Context, p order.Payload) (order.Result, error)
}

func (m *MockOrderSubmitter) SubmitOrder(ctx context.Context, p order.Payload) (order.Result, error) {
	m.mu.Lock()
	m.payloads = append(m.payloads, p)
	m.mu.Unlock()
	if m.SubmitOrderFunc != nil {
		return m.SubmitOrderFunc(ctx, p)
	}
	return order.Result{Success: true, OrderID: "dining-1"}, nil
}

func (m *MockOrderSubmitter) Payloads() []order.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]order.Payload(nil), m.payloads...)
}

type published struct {
	topic string
	msg   []byte
}

type MockPublisher struct {
	mu          sync.Mutex
	messages    []published
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	m.messages = append(m.messages, published{topic: topic, msg: msg})
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	return nil
}

func (m *MockPublisher) On(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, p := range m.messages {
		if p.topic == topic {
			out = append(out, p.msg)
		}
	}
	return out
}

type MockDiningClient struct {
	ListTableOrdersFunc func(ctx context.Context) ([]order.TableOrder, error)
}

func (m *MockDiningClient) ListTableOrders(ctx context.Context) ([]order.TableOrder, error) {
	if m.ListTableOrdersFunc != nil {
		return m.ListTableOrdersFunc(ctx)
	}
	return nil, nil
}

func (m *MockDiningClient) OpenTableOrder(ctx context.Context, tableNumber, customersCount int) (order.TableOrder, error) {
	return order.TableOrder{ID: "to-1", TableNumber: tableNumber, CustomersCount: customersCount}, nil
}

func (m *MockDiningClient) AddLine(ctx context.Context, orderID string, line order.OrderingLine) error {
	return nil
}

func (m *MockDiningClient) SendForPreparation(ctx context.Context, orderID string) error {
	return nil
}

func (m *MockDiningClient) GetTableOrder(ctx context.Context, orderID string) (order.TableOrder, error) {
	return order.TableOrder{ID: orderID}, nil
}

type MockMenuSink struct {
	mu                 sync.Mutex
	items              []catalog.BackendMenuItem
	CreateMenuItemFunc func(ctx context.Context, item catalog.BackendMenuItem) error
}

func (m *MockMenuSink) CreateMenuItem(ctx context.Context, item catalog.BackendMenuItem) error {
	if m.CreateMenuItemFunc != nil {
		if err := m.CreateMenuItemFunc(ctx, item); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
	return nil
}

func (m *MockMenuSink) Items() []catalog.BackendMenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.BackendMenuItem(nil), m.items...)
}
