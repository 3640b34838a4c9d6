package rush

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt/events"
)

type MockSource struct {
	mu             sync.Mutex
	calls          int
	RushStatusFunc func(ctx context.Context) (Status, error)
}

func (m *MockSource) RushStatus(ctx context.Context) (Status, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.RushStatusFunc != nil {
		return m.RushStatusFunc(ctx)
	}
	return Status{}, nil
}

func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type MockPublisher struct {
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	return nil
}

type MockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	return nil
}
