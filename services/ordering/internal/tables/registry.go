package tables

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
	"github.com/appetiteclub/tableside/services/ordering/internal/kids"
	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

const (
	DefaultSeats = 4
	MaxSeats     = 8
)

var (
	ErrTableNotFound = errors.New("table session not found")
	ErrSeatNotFound  = errors.New("seat not found")
	ErrDishNotFound  = errors.New("dish not found")
)

// Session is the ordering state of one table: a personal cart and a child
// mission per seat, the shared cart and the screen controller.
type Session struct {
	ID          uuid.UUID
	TableNumber int
	OpenedAt    time.Time
	Controller  *session.Controller

	seats    []*cart.Cart
	missions []*kids.Mission
	shared   *cart.Cart
}

func newSession(tableNumber, seats int, dismissAfter time.Duration, logger apt.Logger) (*Session, error) {
	ctrl := session.NewController(dismissAfter, logger.With("table", tableNumber))
	if err := ctrl.SetTable(tableNumber); err != nil {
		return nil, err
	}

	s := &Session{
		ID:          uuid.New(),
		TableNumber: tableNumber,
		OpenedAt:    time.Now().UTC(),
		Controller:  ctrl,
		shared:      cart.NewShared(),
	}
	for i := 1; i <= seats; i++ {
		s.seats = append(s.seats, cart.NewPersonal(i))
		s.missions = append(s.missions, kids.NewMission())
	}
	return s, nil
}

func (s *Session) SeatCount() int {
	return len(s.seats)
}

func (s *Session) Seat(n int) (*cart.Cart, error) {
	if n < 1 || n > len(s.seats) {
		return nil, fmt.Errorf("%w: %d (table has %d seats)", ErrSeatNotFound, n, len(s.seats))
	}
	return s.seats[n-1], nil
}

func (s *Session) Mission(n int) (*kids.Mission, error) {
	if n < 1 || n > len(s.missions) {
		return nil, fmt.Errorf("%w: %d (table has %d seats)", ErrSeatNotFound, n, len(s.missions))
	}
	return s.missions[n-1], nil
}

func (s *Session) Shared() *cart.Cart {
	return s.shared
}

// Reset empties every cart and restarts the child missions.
func (s *Session) Reset() {
	for i := range s.seats {
		s.seats[i].Clear()
		s.missions[i].Restart()
	}
	s.shared.Clear()
}

// CartView is the JSON shape of a cart.
type CartView struct {
	Seat          int             `json:"seat,omitempty"`
	Shared        bool            `json:"shared"`
	Items         []cart.LineItem `json:"items"`
	TotalItems    int             `json:"total_items"`
	TotalPrice    catalog.Money   `json:"total_price"`
	TotalPrepTime int             `json:"total_prep_time"`
	Submitting    bool            `json:"submitting"`
}

func ViewOf(c *cart.Cart, submitting bool) CartView {
	items := c.Items()
	v := CartView{
		Seat:       c.Seat(),
		Shared:     c.IsShared(),
		Items:      items,
		Submitting: submitting,
	}
	for _, l := range items {
		v.TotalItems += l.Quantity
		v.TotalPrice += l.Subtotal()
		v.TotalPrepTime += l.PrepMinutes()
	}
	return v
}

// View is the JSON shape of a session.
type View struct {
	ID          uuid.UUID     `json:"id"`
	TableNumber int           `json:"table_number"`
	OpenedAt    time.Time     `json:"opened_at"`
	State       session.State `json:"state"`
	Seats       []CartView    `json:"seats"`
	Shared      CartView      `json:"shared"`
}

// Registry holds the open table sessions keyed by table number.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[int]*Session
	seats        int
	dismissAfter time.Duration
	logger       apt.Logger
	onCount      func(int)
}

func NewRegistry(seats int, dismissAfter time.Duration, logger apt.Logger) *Registry {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if seats <= 0 {
		seats = DefaultSeats
	}
	if seats > MaxSeats {
		seats = MaxSeats
	}
	return &Registry{
		sessions:     make(map[int]*Session),
		seats:        seats,
		dismissAfter: dismissAfter,
		logger:       logger,
	}
}

// OnCount registers fn, called with the number of open sessions after each
// open or close.
func (r *Registry) OnCount(fn func(int)) {
	r.mu.Lock()
	r.onCount = fn
	r.mu.Unlock()
}

// Open returns the session of tableNumber, creating it when needed. The bool
// is true for a new session.
func (r *Registry) Open(tableNumber int) (*Session, bool, error) {
	if err := session.ValidateTableNumber(tableNumber); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	if s, ok := r.sessions[tableNumber]; ok {
		r.mu.Unlock()
		return s, false, nil
	}
	s, err := newSession(tableNumber, r.seats, r.dismissAfter, r.logger)
	if err != nil {
		r.mu.Unlock()
		return nil, false, err
	}
	r.sessions[tableNumber] = s
	count, notify := len(r.sessions), r.onCount
	r.mu.Unlock()

	r.logger.Info("table session opened", "table", tableNumber, "session_id", s.ID.String(), "seats", r.seats)
	if notify != nil {
		notify(count)
	}
	return s, true, nil
}

func (r *Registry) Get(tableNumber int) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[tableNumber]
	if !ok {
		return nil, fmt.Errorf("%w: table %d", ErrTableNotFound, tableNumber)
	}
	return s, nil
}

// Close discards the session. It is refused while an order is being submitted.
func (r *Registry) Close(tableNumber int) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[tableNumber]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: table %d", ErrTableNotFound, tableNumber)
	}
	if s.Controller.State().CheckingOut {
		r.mu.Unlock()
		return nil, session.ErrCheckoutInProgress
	}
	delete(r.sessions, tableNumber)
	count, notify := len(r.sessions), r.onCount
	r.mu.Unlock()

	s.Controller.Close()
	r.logger.Info("table session closed", "table", tableNumber, "session_id", s.ID.String())
	if notify != nil {
		notify(count)
	}
	return s, nil
}

// List returns the open sessions ordered by table number.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll stops every pending confirmation timer. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.Controller.Close()
	}
}
