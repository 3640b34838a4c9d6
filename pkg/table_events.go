package pkg

import "time"

const (
	// TableSessionTopic delivers lifecycle changes of table sessions.
	TableSessionTopic = "tables.sessions"
	// RushResetTopic carries operator commands that zero the prep time accumulator.
	RushResetTopic = "tableside.rush.reset"

	// EventTableSessionOpened identifies a table session that was opened.
	EventTableSessionOpened = "table.session.opened"
	// EventTableSessionClosed identifies a table session that was discarded.
	EventTableSessionClosed = "table.session.closed"
	// EventRushResetRequested identifies an operator reset command.
	EventRushResetRequested = "rush.reset.requested"
)

// TableSessionEvent announces that a table device started or ended a session.
type TableSessionEvent struct {
	EventType   string    `json:"event_type"`
	SessionID   string    `json:"session_id"`
	TableNumber int       `json:"table_number"`
	Seats       int       `json:"seats"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// RushResetCommand asks every tableside instance to reset its accumulator.
type RushResetCommand struct {
	EventType  string    `json:"event_type"`
	Operator   string    `json:"operator,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
