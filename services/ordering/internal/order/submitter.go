package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
)

// Result is the answer of the order collaborator: either Success with an
// OrderID, or a failure carrying Error.
type Result struct {
	Success        bool        `json:"success"`
	OrderID        string      `json:"order_id,omitempty"`
	ConfirmedOrder interface{} `json:"confirmed_order,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// Submitter sends a payload to the kitchen side. A returned error and a
// failed Result are both treated as a rejected submission.
type Submitter interface {
	SubmitOrder(ctx context.Context, p Payload) (Result, error)
}

// MockSubmitter accepts every order. It stands in for the dining service in
// demos and when no dining URL is configured.
type MockSubmitter struct {
	mu     sync.Mutex
	now    func() time.Time
	logger apt.Logger
	orders []Payload
}

func NewMockSubmitter(logger apt.Logger) *MockSubmitter {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &MockSubmitter{now: time.Now, logger: logger}
}

func (m *MockSubmitter) SubmitOrder(ctx context.Context, p Payload) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	m.orders = append(m.orders, p)
	m.mu.Unlock()

	id := fmt.Sprintf("MOCK-%d-%d", p.TableNumber, m.now().UnixMilli())
	m.logger.Info("mock order accepted", "order_id", p.OrderID, "backend_id", id, "table", p.TableNumber, "lines", len(p.Lines))

	return Result{
		Success: true,
		OrderID: id,
		ConfirmedOrder: map[string]interface{}{
			"tableNumber": p.TableNumber,
			"lines":       p.TotalItems(),
			"mock":        true,
		},
	}, nil
}

// Submitted returns the payloads accepted so far.
func (m *MockSubmitter) Submitted() []Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Payload(nil), m.orders...)
}
