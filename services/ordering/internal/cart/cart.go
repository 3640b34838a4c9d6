package cart

import (
	"strings"
	"sync"

	"github.com/appetiteclub/tableside/pkg/enums/category"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
)

type LineKind string

const (
	LineDish   LineKind = "dish"
	LineReward LineKind = "reward"
)

// LineItem is a dish and its quantity. Reward lines are freebies: no price,
// no preparation time and no quantity controls.
type LineItem struct {
	Dish     catalog.Dish `json:"dish"`
	Quantity int          `json:"quantity"`
	Kind     LineKind     `json:"kind"`
	FromSeat int          `json:"from_seat,omitempty"`
}

func (l LineItem) DishID() string {
	return l.Dish.ID
}

// Locked reports a freebie line, which has no quantity controls.
func (l LineItem) Locked() bool {
	return l.Kind == LineReward
}

func (l LineItem) Subtotal() catalog.Money {
	return l.Dish.Price.Times(l.Quantity)
}

func (l LineItem) PrepMinutes() int {
	return l.Dish.PrepTime * l.Quantity
}

type lineKey struct {
	kind LineKind
	id   string
}

func keyOf(l LineItem) lineKey {
	return lineKey{kind: l.Kind, id: l.Dish.ID}
}

// Cart is a set of line items keyed by dish id, kept in insertion order.
// All methods are safe for concurrent use; each cart serializes its own mutations.
type Cart struct {
	mu    sync.Mutex
	seat  int
	items map[lineKey]*LineItem
	order []lineKey
}

// NewPersonal creates the cart owned by seat (1..N).
func NewPersonal(seat int) *Cart {
	return &Cart{seat: seat, items: make(map[lineKey]*LineItem)}
}

// NewShared creates a table-wide cart.
func NewShared() *Cart {
	return &Cart{items: make(map[lineKey]*LineItem)}
}

// Seat returns the owning seat, 0 for the shared cart.
func (c *Cart) Seat() int {
	return c.seat
}

func (c *Cart) IsShared() bool {
	return c.seat == 0
}

// AddItem adds quantity units of d. A negative quantity decrements, and a line
// that drops to zero or below is removed.
func (c *Cart) AddItem(d catalog.Dish, quantity int) {
	if d.ID == "" || quantity == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(LineItem{Dish: d, Quantity: quantity, Kind: LineDish})
}

// AddReward adds a reward as a freebie line.
func (c *Cart) AddReward(r catalog.Reward) {
	if r.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(LineItem{Dish: RewardDish(r), Quantity: 1, Kind: LineReward})
}

// SetQuantity overwrites the quantity of a dish line. n <= 0 removes it.
// Reward lines are locked: only removal applies to them.
func (c *Cart) SetQuantity(dishID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := lineKey{kind: LineDish, id: dishID}
	line, ok := c.items[key]
	if !ok {
		if n <= 0 {
			c.remove(lineKey{kind: LineReward, id: dishID})
		}
		return
	}
	if n <= 0 {
		c.remove(key)
		return
	}
	line.Quantity = n
}

func (c *Cart) RemoveItem(dishID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(lineKey{kind: LineDish, id: dishID})
}

func (c *Cart) RemoveReward(rewardID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(lineKey{kind: LineReward, id: rewardID})
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, line := range c.items {
		total += line.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() catalog.Money {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total catalog.Money
	for _, line := range c.items {
		total += line.Subtotal()
	}
	return total
}

func (c *Cart) TotalPrepTime() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, line := range c.items {
		total += line.PrepMinutes()
	}
	return total
}

// MergeFrom adds items into c. A dish already present has its quantity
// increased, a new one is appended and tagged with seat.
func (c *Cart) MergeFrom(items []LineItem, seat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range items {
		if line.Quantity <= 0 {
			continue
		}
		if seat > 0 && line.FromSeat == 0 {
			line.FromSeat = seat
		}
		c.add(line)
	}
}

// SendTo moves every line of c into dst and empties c. Both steps happen while
// c is locked, so no line added to c in between can be lost. It returns the
// number of units moved.
func (c *Cart) SendTo(dst *Cart) int {
	if dst == nil || dst == c {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.snapshot()
	if len(items) == 0 {
		return 0
	}
	dst.MergeFrom(items, c.seat)

	moved := 0
	for _, line := range items {
		moved += line.Quantity
	}
	c.clear()
	return moved
}

// Deduct removes the quantities of a previously taken snapshot. Lines added
// after the snapshot stay in the cart.
func (c *Cart) Deduct(items []LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range items {
		key := keyOf(line)
		existing, ok := c.items[key]
		if !ok {
			continue
		}
		existing.Quantity -= line.Quantity
		if existing.Quantity <= 0 {
			c.remove(key)
		}
	}
}

func (c *Cart) add(line LineItem) {
	key := keyOf(line)
	if existing, ok := c.items[key]; ok {
		existing.Quantity += line.Quantity
		if existing.Quantity <= 0 {
			c.remove(key)
		}
		return
	}
	if line.Quantity <= 0 {
		return
	}
	stored := line
	c.items[key] = &stored
	c.order = append(c.order, key)
}

func (c *Cart) remove(key lineKey) {
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) clear() {
	c.items = make(map[lineKey]*LineItem)
	c.order = nil
}

func (c *Cart) snapshot() []LineItem {
	out := make([]LineItem, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.items[key])
	}
	return out
}

// RewardDish describes a reward as a zero-priced dessert so it can travel
// through carts and orders like any other line.
func RewardDish(r catalog.Reward) catalog.Dish {
	name := r.Name
	if r.Emoji != "" {
		name = strings.TrimSpace(r.Emoji + " " + r.Name)
	}
	return catalog.Dish{
		ID:          r.ID,
		Name:        name,
		Description: r.Description,
		Category:    category.Categories.Dessert.Code(),
		ImageURL:    r.ImageURL,
		KidFriendly: true,
	}
}
