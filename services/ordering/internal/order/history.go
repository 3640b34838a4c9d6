package order

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
)

// Receipt records an accepted order.
type Receipt struct {
	ID            uuid.UUID     `json:"id" bson:"_id"`
	OrderID       string        `json:"order_id" bson:"order_id"`
	BackendID     string        `json:"backend_id,omitempty" bson:"backend_id,omitempty"`
	TableNumber   int           `json:"table_number" bson:"table_number"`
	Scope         Scope         `json:"scope" bson:"scope"`
	Seat          int           `json:"seat,omitempty" bson:"seat,omitempty"`
	Lines         []PayloadLine `json:"lines" bson:"lines"`
	TotalPrice    catalog.Money `json:"total_price" bson:"total_price"`
	TotalPrepTime int           `json:"total_prep_time" bson:"total_prep_time"`
	SubmittedAt   time.Time     `json:"submitted_at" bson:"submitted_at"`
}

func NewReceipt(p Payload, res Result, at time.Time) Receipt {
	return Receipt{
		ID:            uuid.New(),
		OrderID:       p.OrderID,
		BackendID:     res.OrderID,
		TableNumber:   p.TableNumber,
		Scope:         p.Scope,
		Seat:          p.Seat,
		Lines:         append([]PayloadLine(nil), p.Lines...),
		TotalPrice:    p.TotalPrice,
		TotalPrepTime: p.TotalPrepTime,
		SubmittedAt:   at,
	}
}

// Event is the message published on event.OrdersSubmittedTopic.
func (r Receipt) Event() event.OrderSubmittedEvent {
	items := make([]event.OrderLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		items = append(items, event.OrderLine{
			DishID:   l.DishID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.UnitPrice.Float(),
			Freebie:  l.Freebie,
		})
	}
	return event.OrderSubmittedEvent{
		EventType:     event.EventOrderSubmitted,
		OccurredAt:    r.SubmittedAt,
		OrderID:       r.OrderID,
		BackendID:     r.BackendID,
		TableNumber:   r.TableNumber,
		Scope:         string(r.Scope),
		Seat:          r.Seat,
		Items:         items,
		TotalPrice:    r.TotalPrice.Float(),
		TotalPrepTime: r.TotalPrepTime,
	}
}

// ReceiptFromEvent rebuilds a receipt from a replayed event.
func ReceiptFromEvent(e event.OrderSubmittedEvent) Receipt {
	lines := make([]PayloadLine, 0, len(e.Items))
	for _, item := range e.Items {
		lines = append(lines, PayloadLine{
			DishID:    item.DishID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: catalog.NewMoney(item.Price),
			Freebie:   item.Freebie,
		})
	}
	return Receipt{
		ID:            uuid.New(),
		OrderID:       e.OrderID,
		BackendID:     e.BackendID,
		TableNumber:   e.TableNumber,
		Scope:         Scope(e.Scope),
		Seat:          e.Seat,
		Lines:         lines,
		TotalPrice:    catalog.NewMoney(e.TotalPrice),
		TotalPrepTime: e.TotalPrepTime,
		SubmittedAt:   e.OccurredAt,
	}
}

type History interface {
	Save(ctx context.Context, r Receipt) error
	ListByTable(ctx context.Context, tableNumber int) ([]Receipt, error)
}

// DefaultHistoryLimit bounds the receipts kept per table in memory.
const DefaultHistoryLimit = 200

// MemoryHistory keeps receipts per table, most recent last. Saving an order
// id already known replaces the stored receipt.
type MemoryHistory struct {
	mu      sync.RWMutex
	byTable map[int][]Receipt
	limit   int
}

func NewMemoryHistory(limit int) *MemoryHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryHistory{byTable: make(map[int][]Receipt), limit: limit}
}

func (h *MemoryHistory) Save(_ context.Context, r Receipt) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	receipts := h.byTable[r.TableNumber]
	for i := range receipts {
		if receipts[i].OrderID == r.OrderID {
			receipts[i] = r
			return nil
		}
	}
	receipts = append(receipts, r)
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].SubmittedAt.Before(receipts[j].SubmittedAt)
	})
	if len(receipts) > h.limit {
		receipts = receipts[len(receipts)-h.limit:]
	}
	h.byTable[r.TableNumber] = receipts
	return nil
}

func (h *MemoryHistory) ListByTable(_ context.Context, tableNumber int) ([]Receipt, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Receipt(nil), h.byTable[tableNumber]...), nil
}

// Replayer returns stored order events, oldest first.
type Replayer interface {
	Replay(ctx context.Context, limit int) ([]events.StreamMessage, error)
}

// WarmHistory loads replayed receipts into h. Undecodable messages are
// skipped.
func WarmHistory(ctx context.Context, h History, replayer Replayer, limit int, logger apt.Logger) (int, error) {
	if replayer == nil || h == nil {
		return 0, nil
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	messages, err := replayer.Replay(ctx, limit)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, msg := range messages {
		var e event.OrderSubmittedEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			logger.Debug("skipping undecodable receipt", "error", err)
			continue
		}
		if e.EventType != event.EventOrderSubmitted || e.OrderID == "" {
			continue
		}
		if err := h.Save(ctx, ReceiptFromEvent(e)); err != nil {
			logger.Error("cannot restore receipt", "order_id", e.OrderID, "error", err)
			continue
		}
		loaded++
	}
	logger.Info("order history restored", "receipts", loaded)
	return loaded, nil
}
