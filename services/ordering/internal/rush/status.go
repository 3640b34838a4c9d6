package rush

import (
	"time"

	"github.com/appetiteclub/tableside/pkg/event"
)

const (
	DefaultThreshold           = 100
	DefaultAverageOrderMinutes = 20
	DefaultInterval            = 10 * time.Second
)

// Status is the rush state derived from the accumulator on one poll.
type Status struct {
	OrdersInProgress      int       `json:"ordersInProgress"`
	IsRushMode            bool      `json:"isRushMode"`
	ThresholdMinutes      int       `json:"thresholdMinutes"`
	CumulativePrepMinutes int       `json:"cumulativePrepMinutes"`
	CheckedAt             time.Time `json:"checkedAt"`
}

// Thresholds configures the derivation.
type Thresholds struct {
	Threshold           int
	AverageOrderMinutes int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Threshold: DefaultThreshold, AverageOrderMinutes: DefaultAverageOrderMinutes}
}

// Derive computes the status for value. Rush mode starts strictly above the
// threshold and has no hysteresis.
func Derive(value int, t Thresholds, now time.Time) Status {
	orders := 0
	if t.AverageOrderMinutes > 0 {
		orders = value / t.AverageOrderMinutes
	}
	return Status{
		OrdersInProgress:      orders,
		IsRushMode:            value > t.Threshold,
		ThresholdMinutes:      t.Threshold,
		CumulativePrepMinutes: value,
		CheckedAt:             now,
	}
}

// Differs reports a change listeners care about.
func (s Status) Differs(other Status) bool {
	return s.IsRushMode != other.IsRushMode || s.CumulativePrepMinutes != other.CumulativePrepMinutes
}

// Event builds the bus representation of s.
func (s Status) Event(previousRushMode bool) event.RushStatusEvent {
	return event.RushStatusEvent{
		EventType:             event.EventRushStatusChanged,
		OccurredAt:            s.CheckedAt,
		IsRushMode:            s.IsRushMode,
		OrdersInProgress:      s.OrdersInProgress,
		ThresholdMinutes:      s.ThresholdMinutes,
		CumulativePrepMinutes: s.CumulativePrepMinutes,
		PreviousRushMode:      previousRushMode,
	}
}
