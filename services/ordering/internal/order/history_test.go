package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
)

func receiptAt(orderID string, table int, at time.Time) Receipt {
	return Receipt{OrderID: orderID, TableNumber: table, SubmittedAt: at}
}

func TestMemoryHistory(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryHistory(2)
	base := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)

	_ = h.Save(ctx, receiptAt("second", 1, base.Add(time.Minute)))
	_ = h.Save(ctx, receiptAt("first", 1, base))
	_ = h.Save(ctx, receiptAt("other", 2, base))

	got, _ := h.ListByTable(ctx, 1)
	if len(got) != 2 || got[0].OrderID != "first" || got[1].OrderID != "second" {
		t.Fatalf("ListByTable(1) = %+v, want first then second", got)
	}

	replaced := receiptAt("second", 1, base.Add(time.Minute))
	replaced.BackendID = "backend"
	_ = h.Save(ctx, replaced)
	got, _ = h.ListByTable(ctx, 1)
	if len(got) != 2 || got[1].BackendID != "backend" {
		t.Errorf("Save() of a known order id did not replace it: %+v", got)
	}

	_ = h.Save(ctx, receiptAt("third", 1, base.Add(2*time.Minute)))
	got, _ = h.ListByTable(ctx, 1)
	if len(got) != 2 || got[0].OrderID != "second" || got[1].OrderID != "third" {
		t.Errorf("ListByTable(1) after limit = %+v, want second then third", got)
	}

	if got, _ := h.ListByTable(ctx, 99); len(got) != 0 {
		t.Errorf("ListByTable(99) = %+v, want empty", got)
	}
}

func TestReceiptEventRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
	p := Payload{
		OrderID:     "TABLE-3-P1-1",
		TableNumber: 3,
		Scope:       ScopeIndividual,
		Seat:        1,
		Lines: []PayloadLine{
			{DishID: "A", Name: "Lasagna al forno", Quantity: 2, UnitPrice: catalog.NewMoney(10.5)},
		},
		TotalPrice:    catalog.NewMoney(21),
		TotalPrepTime: 30,
	}
	r := NewReceipt(p, Result{Success: true, OrderID: "dining-9"}, at)

	evt := r.Event()
	if evt.EventType != event.EventOrderSubmitted || evt.BackendID != "dining-9" || evt.TotalPrice != 21 {
		t.Errorf("Event() = %+v", evt)
	}
	if len(evt.Items) != 1 || evt.Items[0].Price != 10.5 {
		t.Errorf("Event().Items = %+v", evt.Items)
	}

	back := ReceiptFromEvent(evt)
	if back.OrderID != r.OrderID || back.TotalPrice != r.TotalPrice || back.Lines[0].UnitPrice != catalog.NewMoney(10.5) {
		t.Errorf("ReceiptFromEvent() = %+v, want %+v", back, r)
	}
	if !back.SubmittedAt.Equal(at) || back.Scope != ScopeIndividual || back.Seat != 1 {
		t.Errorf("ReceiptFromEvent() = %+v", back)
	}
}

func TestWarmHistory(t *testing.T) {
	valid := func(orderID string, table int) []byte {
		raw, _ := json.Marshal(event.OrderSubmittedEvent{
			EventType:   event.EventOrderSubmitted,
			OrderID:     orderID,
			TableNumber: table,
			OccurredAt:  time.Now(),
		})
		return raw
	}

	replayer := &MockReplayer{
		ReplayFunc: func(ctx context.Context, limit int) ([]events.StreamMessage, error) {
			return []events.StreamMessage{
				{Data: valid("one", 1)},
				{Data: []byte("not json")},
				{Data: []byte(`{"event_type":"something.else","order_id":"x"}`)},
				{Data: valid("two", 1)},
			}, nil
		},
	}

	h := NewMemoryHistory(0)
	n, err := WarmHistory(context.Background(), h, replayer, 100, nil)
	if err != nil {
		t.Fatalf("WarmHistory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("WarmHistory() = %d, want 2", n)
	}
	got, _ := h.ListByTable(context.Background(), 1)
	if len(got) != 2 {
		t.Errorf("ListByTable(1) = %d receipts, want 2", len(got))
	}

	replayer.ReplayFunc = func(ctx context.Context, limit int) ([]events.StreamMessage, error) {
		return nil, errors.New("stream unavailable")
	}
	if _, err := WarmHistory(context.Background(), h, replayer, 100, nil); err == nil {
		t.Error("WarmHistory() error = nil on replay failure")
	}

	if n, err := WarmHistory(context.Background(), h, nil, 100, nil); n != 0 || err != nil {
		t.Errorf("WarmHistory(nil replayer) = %d, %v", n, err)
	}
}
