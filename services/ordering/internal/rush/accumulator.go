package rush

import (
	"errors"
	"sync"
)

var ErrNegativeMinutes = errors.New("prep time minutes cannot be negative")

// Accumulator is the process-wide counter of cumulative preparation minutes.
// It only grows until an operator resets it.
type Accumulator struct {
	mu    sync.Mutex
	value int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add increases the counter. Zero is accepted and changes nothing.
func (a *Accumulator) Add(minutes int) error {
	if minutes < 0 {
		return ErrNegativeMinutes
	}
	if minutes == 0 {
		return nil
	}
	a.mu.Lock()
	a.value += minutes
	a.mu.Unlock()
	return nil
}

func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.value = 0
	a.mu.Unlock()
}

func (a *Accumulator) Value() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}
