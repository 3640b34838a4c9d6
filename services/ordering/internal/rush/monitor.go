package rush

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
)

// Listener is called with the previous and the new status after a change.
type Listener func(ctx context.Context, prev, next Status)

// Monitor polls a Source on a fixed interval from a single goroutine, so two
// polls never run at the same time. A failed poll keeps the last status.
type Monitor struct {
	source   Source
	interval time.Duration
	logger   apt.Logger

	pollMu sync.Mutex

	mu        sync.RWMutex
	current   Status
	known     bool
	listeners []Listener

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(source Source, interval time.Duration, logger apt.Logger) *Monitor {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// OnChange registers l. Listeners run on the polling goroutine.
func (m *Monitor) OnChange(l Listener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Current returns the last known status and whether any poll succeeded yet.
func (m *Monitor) Current() (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.known
}

// PollNow runs one poll immediately. It waits for an in-flight tick to finish.
func (m *Monitor) PollNow(ctx context.Context) (Status, error) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	next, err := m.source.RushStatus(ctx)
	if err != nil {
		pollErr := &PollError{Err: err}
		m.logger.Error("rush status poll failed, keeping last status", "error", err)
		st, _ := m.Current()
		return st, pollErr
	}

	m.mu.Lock()
	prev, known := m.current, m.known
	m.current, m.known = next, true
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if !known || prev.Differs(next) {
		if prev.IsRushMode != next.IsRushMode {
			m.logger.Info("rush mode changed", "rush", next.IsRushMode, "cumulative_prep_minutes", next.CumulativePrepMinutes)
		}
		for _, l := range listeners {
			l(ctx, prev, next)
		}
	}
	return next, nil
}

// Start takes a first sample and launches the polling loop. It never fails on
// a poll error.
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return nil
	}

	_, _ = m.PollNow(ctx)

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx, m.done)

	m.logger.Info("rush status monitor started", "interval", m.interval.String())
	return nil
}

// Stop cancels the loop and waits for the current tick to return.
func (m *Monitor) Stop(ctx context.Context) error {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		m.logger.Info("rush status monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = m.PollNow(ctx)
		}
	}
}
