package event

import "time"

const (
	RushStatusTopic        = "rush.status"
	EventRushStatusChanged = "rush.status.changed"
)

// RushStatusEvent carries a derived rush status whenever the monitor sees it change.
type RushStatusEvent struct {
	EventType             string    `json:"event_type"`
	OccurredAt            time.Time `json:"occurred_at"`
	IsRushMode            bool      `json:"is_rush_mode"`
	OrdersInProgress      int       `json:"orders_in_progress"`
	ThresholdMinutes      int       `json:"threshold_minutes"`
	CumulativePrepMinutes int       `json:"cumulative_prep_minutes"`
	PreviousRushMode      bool      `json:"previous_rush_mode"`
}
