package event

import "time"

const (
	OrdersSubmittedTopic = "orders.submitted"
	EventOrderSubmitted  = "order.submitted"
)

// OrderSubmittedEvent is published once the dining service accepted an order.
// Kitchen dashboards and the history stream consume it.
type OrderSubmittedEvent struct {
	EventType     string      `json:"event_type"`
	OccurredAt    time.Time   `json:"occurred_at"`
	OrderID       string      `json:"order_id"`
	BackendID     string      `json:"backend_id,omitempty"`
	TableNumber   int         `json:"table_number"`
	Scope         string      `json:"scope"`
	Seat          int         `json:"seat,omitempty"`
	Items         []OrderLine `json:"items"`
	TotalPrice    float64     `json:"total_price"`
	TotalPrepTime int         `json:"total_prep_time"`
}

type OrderLine struct {
	DishID   string  `json:"dish_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Freebie  bool    `json:"freebie,omitempty"`
}
