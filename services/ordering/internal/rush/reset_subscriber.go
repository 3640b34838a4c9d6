package rush

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/tableside/pkg"
)

// ResetSubscriber zeroes the accumulator when an operator reset command is
// published on the bus.
type ResetSubscriber struct {
	subscriber events.Subscriber
	acc        *Accumulator
	monitor    *Monitor
	logger     apt.Logger
}

func NewResetSubscriber(sub events.Subscriber, acc *Accumulator, monitor *Monitor, logger apt.Logger) *ResetSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &ResetSubscriber{
		subscriber: sub,
		acc:        acc,
		monitor:    monitor,
		logger:     logger,
	}
}

func (s *ResetSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting rush reset subscriber", "topic", pkg.RushResetTopic)
	if s.subscriber == nil {
		return fmt.Errorf("rush reset subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, pkg.RushResetTopic, s.handleEvent)
}

func (s *ResetSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var cmd pkg.RushResetCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		s.logger.Info("invalid rush reset command", "error", err)
		return nil
	}
	if cmd.EventType != "" && cmd.EventType != pkg.EventRushResetRequested {
		s.logger.Debug("ignoring rush reset message", "event_type", cmd.EventType)
		return nil
	}

	before := s.acc.Value()
	s.acc.Reset()
	s.logger.Info("prep time accumulator reset", "operator", cmd.Operator, "reason", cmd.Reason, "previous_minutes", before)

	if s.monitor != nil {
		_, _ = s.monitor.PollNow(ctx)
	}
	return nil
}
