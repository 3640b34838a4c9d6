package order

import (
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

type Scope string

const (
	ScopeIndividual Scope = "individual"
	ScopeShared     Scope = "shared"
)

// Metadata describes who is paying. Seat is zero for the shared cart.
type Metadata struct {
	Scope          Scope  `json:"scope"`
	Seat           int    `json:"seat,omitempty"`
	CustomersCount int    `json:"customers_count"`
	UserMode       string `json:"user_mode,omitempty"`
	DeviceType     string `json:"device_type,omitempty"`
}

type PayloadLine struct {
	DishID    string        `json:"dish_id" bson:"dish_id"`
	Name      string        `json:"name" bson:"name"`
	Quantity  int           `json:"quantity" bson:"quantity"`
	UnitPrice catalog.Money `json:"unit_price" bson:"unit_price"`
	Category  string        `json:"category" bson:"category"`
	PrepTime  int           `json:"prep_time" bson:"prep_time"`
	Freebie   bool          `json:"freebie,omitempty" bson:"freebie,omitempty"`
}

func (l PayloadLine) Subtotal() catalog.Money {
	return l.UnitPrice.Times(l.Quantity)
}

// Payload is the snapshot handed to the submitter. It is never modified after
// BuildPayload returns it.
type Payload struct {
	OrderID        string        `json:"order_id"`
	TableNumber    int           `json:"table_number"`
	Scope          Scope         `json:"scope"`
	Seat           int           `json:"seat,omitempty"`
	CustomersCount int           `json:"customers_count"`
	UserMode       string        `json:"user_mode,omitempty"`
	DeviceType     string        `json:"device_type,omitempty"`
	Lines          []PayloadLine `json:"lines"`
	TotalPrice     catalog.Money `json:"total_price"`
	TotalPrepTime  int           `json:"total_prep_time"`
	CreatedAt      time.Time     `json:"created_at"`
}

// BuildPayload snapshots lines into a Payload. A zero table number means the
// table is unknown and is rejected like any out of range number.
func BuildPayload(lines []cart.LineItem, tableNumber int, meta Metadata, orderID string, at time.Time) (Payload, error) {
	if tableNumber == 0 {
		return Payload{}, &ValidationError{Field: "table_number", Message: "a table number is required to submit an order"}
	}
	if err := session.ValidateTableNumber(tableNumber); err != nil {
		return Payload{}, err
	}
	if len(lines) == 0 {
		return Payload{}, &ValidationError{Field: "cart", Message: "cart is empty"}
	}
	if meta.Scope == "" {
		meta.Scope = ScopeIndividual
	}
	if meta.CustomersCount <= 0 {
		meta.CustomersCount = 1
	}

	p := Payload{
		OrderID:        orderID,
		TableNumber:    tableNumber,
		Scope:          meta.Scope,
		Seat:           meta.Seat,
		CustomersCount: meta.CustomersCount,
		UserMode:       meta.UserMode,
		DeviceType:     meta.DeviceType,
		Lines:          make([]PayloadLine, 0, len(lines)),
		TotalPrepTime:  ComputeTotalPrepTime(lines),
		CreatedAt:      at,
	}
	for _, l := range lines {
		line := PayloadLine{
			DishID:    l.DishID(),
			Name:      l.Dish.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Dish.Price,
			Category:  l.Dish.Category,
			PrepTime:  l.Dish.PrepTime,
			Freebie:   l.Locked(),
		}
		p.Lines = append(p.Lines, line)
		p.TotalPrice += line.Subtotal()
	}
	return p, nil
}

// ComputeTotalPrepTime sums prep time times quantity. Zero for no lines.
func ComputeTotalPrepTime(lines []cart.LineItem) int {
	total := 0
	for _, l := range lines {
		total += l.PrepMinutes()
	}
	return total
}

func (p Payload) TotalItems() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}

// IDGenerator builds order ids from the table, the scope and a millisecond
// clock that never repeats a value.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next(tableNumber int, meta Metadata) string {
	g.mu.Lock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	g.mu.Unlock()

	if meta.Scope == ScopeShared {
		return fmt.Sprintf("TABLE-%d-SHARED-%d", tableNumber, ms)
	}
	return fmt.Sprintf("TABLE-%d-P%d-%d", tableNumber, meta.Seat, ms)
}
