package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/tableside/pkg/enums/screen"
)

// UserMode is the ordering experience chosen after the table number.
type UserMode string

const (
	ModeNormal UserMode = "normal"
	ModeChild  UserMode = "child"
)

const DefaultDismissAfter = 3 * time.Second

var (
	ErrRushInactive       = errors.New("rush mode is not active")
	ErrCheckoutInProgress = errors.New("an order is being submitted")
)

// TransitionError is returned for an action the current screen does not allow.
type TransitionError struct {
	From   string
	Action string
	Err    error
}

func (e *TransitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot %s from %s: %v", e.Action, e.From, e.Err)
	}
	return fmt.Sprintf("cannot %s from %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// State is a snapshot of the controller.
type State struct {
	Screen      string   `json:"screen"`
	TableNumber int      `json:"table_number,omitempty"`
	UserMode    UserMode `json:"user_mode,omitempty"`
	LastOrderID string   `json:"last_order_id,omitempty"`
	CheckingOut bool     `json:"checking_out"`
}

// Controller is the screen state machine of one table device. Transition
// methods are the only way to change the active screen.
type Controller struct {
	mu           sync.Mutex
	screen       screen.Screen
	table        int
	mode         UserMode
	lastOrderID  string
	checkouts    int
	dismissAfter time.Duration
	dismissTimer *time.Timer
	dismissGen   int
	listeners    []func(State)
	logger       apt.Logger
}

func NewController(dismissAfter time.Duration, logger apt.Logger) *Controller {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}
	return &Controller{
		screen:       screen.Screens.TableSelection,
		dismissAfter: dismissAfter,
		logger:       logger,
	}
}

// OnChange registers fn, called with the new state after every transition.
func (c *Controller) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) Screen() screen.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen
}

// EnterTable parses raw and moves to mode selection. Invalid input leaves the
// controller on table selection.
func (c *Controller) EnterTable(raw string) (int, error) {
	n, err := ParseTableNumber(raw)
	if err != nil {
		return 0, err
	}
	return n, c.SetTable(n)
}

// SetTable is EnterTable for an already parsed number.
func (c *Controller) SetTable(n int) error {
	if err := ValidateTableNumber(n); err != nil {
		return err
	}
	return c.transition("enter table", func() error {
		if c.screen != screen.Screens.TableSelection {
			return c.invalid("enter table", nil)
		}
		c.table = n
		c.screen = screen.Screens.ModeSelection
		return nil
	})
}

func (c *Controller) ChooseMode(mode UserMode) error {
	var next screen.Screen
	switch mode {
	case ModeNormal:
		next = screen.Screens.Normal
	case ModeChild:
		next = screen.Screens.Child
	default:
		return &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", mode)}
	}

	return c.transition("choose mode", func() error {
		if c.screen != screen.Screens.ModeSelection {
			return c.invalid("choose mode", nil)
		}
		c.mode = mode
		c.screen = next
		return nil
	})
}

// EnterRush opens the rush menu. It is only offered while rushActive is true.
func (c *Controller) EnterRush(rushActive bool) error {
	return c.transition("enter rush", func() error {
		if c.screen != screen.Screens.Normal {
			return c.invalid("enter rush", nil)
		}
		if !rushActive {
			return c.invalid("enter rush", ErrRushInactive)
		}
		c.screen = screen.Screens.Rush
		return nil
	})
}

func (c *Controller) LeaveRush() error {
	return c.transition("leave rush", func() error {
		if c.screen != screen.Screens.Rush {
			return c.invalid("leave rush", nil)
		}
		c.screen = screen.Screens.Normal
		return nil
	})
}

func (c *Controller) OpenCart() error {
	return c.transition("open cart", func() error {
		if !c.screen.IsMenu() {
			return c.invalid("open cart", nil)
		}
		c.screen = screen.Screens.Cart
		return nil
	})
}

func (c *Controller) CloseCart() error {
	return c.transition("close cart", func() error {
		if c.screen != screen.Screens.Cart {
			return c.invalid("close cart", nil)
		}
		c.screen = screen.Screens.Normal
		return nil
	})
}

// BeginCheckout marks a submission in flight. Checkout happens in the cart
// view, so a menu screen or a pending confirmation first moves to Cart.
func (c *Controller) BeginCheckout() error {
	return c.transition("begin checkout", func() error {
		switch {
		case c.screen == screen.Screens.Cart:
		case c.screen.IsMenu(), c.screen == screen.Screens.OrderConfirmation:
			c.stopDismissLocked()
			c.screen = screen.Screens.Cart
		default:
			return c.invalid("begin checkout", nil)
		}
		c.checkouts++
		return nil
	})
}

// AbortCheckout ends a failed submission. The screen stays on Cart.
func (c *Controller) AbortCheckout() {
	_ = c.transition("abort checkout", func() error {
		if c.checkouts > 0 {
			c.checkouts--
		}
		return nil
	})
}

// ConfirmOrder moves Cart to OrderConfirmation and schedules the auto dismiss.
func (c *Controller) ConfirmOrder(orderID string) error {
	return c.transition("confirm order", func() error {
		if c.checkouts > 0 {
			c.checkouts--
		}
		if c.screen != screen.Screens.Cart && c.screen != screen.Screens.OrderConfirmation {
			return c.invalid("confirm order", nil)
		}
		c.lastOrderID = orderID
		c.screen = screen.Screens.OrderConfirmation
		c.stopDismissLocked()
		gen := c.dismissGen
		c.dismissTimer = time.AfterFunc(c.dismissAfter, func() { c.autoDismiss(gen) })
		return nil
	})
}

func (c *Controller) DismissConfirmation() error {
	return c.transition("dismiss confirmation", func() error {
		if c.screen != screen.Screens.OrderConfirmation {
			return c.invalid("dismiss confirmation", nil)
		}
		c.stopDismissLocked()
		c.screen = screen.Screens.Normal
		return nil
	})
}

// Reset returns to mode selection, or to table selection when no table was
// entered. It is refused while a checkout is in flight.
func (c *Controller) Reset() error {
	return c.transition("reset", func() error {
		if c.checkouts > 0 {
			return c.invalid("reset", ErrCheckoutInProgress)
		}
		c.stopDismissLocked()
		c.mode = ""
		if c.table == 0 {
			c.screen = screen.Screens.TableSelection
			return nil
		}
		c.screen = screen.Screens.ModeSelection
		return nil
	})
}

// ResetTable forgets the table number and returns to table selection.
func (c *Controller) ResetTable() error {
	return c.transition("reset table", func() error {
		if c.checkouts > 0 {
			return c.invalid("reset table", ErrCheckoutInProgress)
		}
		c.stopDismissLocked()
		c.mode = ""
		c.table = 0
		c.lastOrderID = ""
		c.screen = screen.Screens.TableSelection
		return nil
	})
}

// Close stops the pending auto dismiss.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopDismissLocked()
	c.mu.Unlock()
}

func (c *Controller) autoDismiss(gen int) {
	err := c.transition("auto dismiss", func() error {
		if gen != c.dismissGen || c.screen != screen.Screens.OrderConfirmation {
			return c.invalid("auto dismiss", nil)
		}
		c.dismissTimer = nil
		c.screen = screen.Screens.Normal
		return nil
	})
	if err != nil {
		c.logger.Debug("auto dismiss skipped", "error", err)
	}
}

func (c *Controller) transition(action string, apply func() error) error {
	c.mu.Lock()
	before := c.stateLocked()
	if err := apply(); err != nil {
		c.mu.Unlock()
		return err
	}
	after := c.stateLocked()
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	if before != after {
		c.logger.Debug("screen transition", "action", action, "from", before.Screen, "to", after.Screen, "table", after.TableNumber)
		for _, fn := range listeners {
			fn(after)
		}
	}
	return nil
}

func (c *Controller) invalid(action string, err error) error {
	return &TransitionError{From: c.screen.Code(), Action: action, Err: err}
}

func (c *Controller) stopDismissLocked() {
	c.dismissGen++
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
}

func (c *Controller) stateLocked() State {
	return State{
		Screen:      c.screen.Code(),
		TableNumber: c.table,
		UserMode:    c.mode,
		LastOrderID: c.lastOrderID,
		CheckingOut: c.checkouts > 0,
	}
}
