package kids

import (
	"errors"
	"fmt"
	"sync"

	"github.com/appetiteclub/tableside/pkg/enums/category"
	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
)

type Step string

const (
	StepWelcome  Step = "welcome"
	StepStarter  Step = "entrée"
	StepMain     Step = "plat"
	StepDessert  Step = "dessert"
	StepComplete Step = "complete"
	StepCart     Step = "cart"
	StepRewards  Step = "rewards"
)

// MaxChoices is the number of dishes offered on each course step.
const MaxChoices = 6

var (
	ErrWrongStep       = errors.New("action not available on this step")
	ErrNotKidFriendly  = errors.New("dish is not kid friendly")
	ErrWrongCourse     = errors.New("dish does not belong to this course")
	ErrNotEnoughStars  = errors.New("not enough stars")
	ErrNothingToFinish = errors.New("plate is empty and no reward selected")
)

var starsPerCourse = map[string]int{
	category.Categories.Starter.Code(): 2,
	category.Categories.Main.Code():    4,
	category.Categories.Dessert.Code(): 2,
}

var portionMultiplier = map[string]float64{
	category.Categories.Starter.Code(): 0.6,
	category.Categories.Main.Code():    0.6,
	category.Categories.Dessert.Code(): 0.7,
}

// StarsFor returns the stars earned by filling course.
func StarsFor(course string) int {
	return starsPerCourse[course]
}

// ChildPortion derives the reduced portion of d that goes into the cart.
func ChildPortion(d catalog.Dish) catalog.Dish {
	factor, ok := portionMultiplier[d.Category]
	if !ok {
		factor = 1
	}
	portion := d
	portion.ID = d.ID + "-child"
	portion.Name = d.Name + " (Portion enfant)"
	portion.Price = d.Price.Scale(factor)
	if d.Description != "" {
		portion.Description = d.Description + " - Portion adaptée aux enfants"
	}
	portion.Ingredients = append([]string(nil), d.Ingredients...)
	return portion
}

// Snapshot is the state shown to the child.
type Snapshot struct {
	Step           Step                    `json:"step"`
	Plate          map[string]catalog.Dish `json:"plate"`
	Stars          int                     `json:"stars"`
	SpentStars     int                     `json:"spent_stars"`
	RemainingStars int                     `json:"remaining_stars"`
	Rewards        []catalog.Reward        `json:"rewards"`
	PlateTotal     catalog.Money           `json:"plate_total"`
}

// Mission walks a child through one dish per course and a reward shop.
type Mission struct {
	mu      sync.Mutex
	step    Step
	plate   map[string]catalog.Dish
	stars   int
	rewards []catalog.Reward
}

func NewMission() *Mission {
	return &Mission{step: StepWelcome, plate: make(map[string]catalog.Dish)}
}

func (m *Mission) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	plate := make(map[string]catalog.Dish, len(m.plate))
	var total catalog.Money
	for course, d := range m.plate {
		plate[course] = d
		total += ChildPortion(d).Price
	}
	spent := m.spentLocked()
	return Snapshot{
		Step:           m.step,
		Plate:          plate,
		Stars:          m.stars,
		SpentStars:     spent,
		RemainingStars: m.stars - spent,
		Rewards:        append([]catalog.Reward(nil), m.rewards...),
		PlateTotal:     total,
	}
}

func (m *Mission) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepWelcome {
		return m.wrongStep("start")
	}
	m.step = StepStarter
	return nil
}

// Choices lists the kid friendly dishes of the current course.
func (m *Mission) Choices(c *catalog.Catalog) []catalog.Dish {
	m.mu.Lock()
	step := m.step
	m.mu.Unlock()

	if !isCourse(step) || c == nil {
		return nil
	}
	dishes := c.KidFriendly(string(step))
	if len(dishes) > MaxChoices {
		dishes = dishes[:MaxChoices]
	}
	return dishes
}

// Pick puts d on the plate and moves to the next course. Replacing a dish
// already chosen for the course earns no extra stars.
func (m *Mission) Pick(d catalog.Dish) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isCourse(m.step) {
		return m.wrongStep("pick")
	}
	if d.Category != string(m.step) {
		return fmt.Errorf("%w: %s is %s, step is %s", ErrWrongCourse, d.ID, d.Category, m.step)
	}
	if !d.KidFriendly {
		return fmt.Errorf("%w: %s", ErrNotKidFriendly, d.ID)
	}

	course := string(m.step)
	if _, filled := m.plate[course]; !filled {
		m.stars += starsPerCourse[course]
	}
	m.plate[course] = d
	m.step = nextCourse(m.step)
	return nil
}

func (m *Mission) Skip() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !isCourse(m.step) {
		return m.wrongStep("skip")
	}
	m.step = nextCourse(m.step)
	return nil
}

func (m *Mission) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.step {
	case StepMain:
		m.step = StepStarter
	case StepDessert:
		m.step = StepMain
	case StepComplete:
		m.step = StepDessert
	case StepCart:
		m.step = StepComplete
	case StepRewards:
		m.step = StepCart
	default:
		return m.wrongStep("go back")
	}
	return nil
}

// Unpick removes the dish of course and the stars it earned. Rewards that no
// longer fit the budget are dropped, most recent first.
func (m *Mission) Unpick(course string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plate[course]; !ok {
		return nil
	}
	delete(m.plate, course)
	m.stars -= starsPerCourse[course]
	for len(m.rewards) > 0 && m.spentLocked() > m.stars {
		m.rewards = m.rewards[:len(m.rewards)-1]
	}
	return nil
}

func (m *Mission) GoToCart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepComplete {
		return m.wrongStep("open cart")
	}
	m.step = StepCart
	return nil
}

func (m *Mission) GoToRewards() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepCart {
		return m.wrongStep("open rewards")
	}
	m.step = StepRewards
	return nil
}

// SelectReward adds r if the remaining stars cover it. The same reward can be
// chosen more than once.
func (m *Mission) SelectReward(r catalog.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != StepRewards {
		return m.wrongStep("select reward")
	}
	if m.spentLocked()+r.Stars > m.stars {
		return fmt.Errorf("%w: %s costs %d, %d left", ErrNotEnoughStars, r.ID, r.Stars, m.stars-m.spentLocked())
	}
	m.rewards = append(m.rewards, r)
	return nil
}

func (m *Mission) RemoveReward(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.rewards) {
		return fmt.Errorf("reward index %d out of range", index)
	}
	m.rewards = append(m.rewards[:index], m.rewards[index+1:]...)
	return nil
}

func (m *Mission) Restart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

// Finalize adds the child portions and the rewards to c and restarts the
// mission. It returns the number of lines added.
func (m *Mission) Finalize(c *cart.Cart) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.step {
	case StepComplete, StepCart, StepRewards:
	default:
		return 0, m.wrongStep("finalize")
	}
	if len(m.plate) == 0 && len(m.rewards) == 0 {
		return 0, ErrNothingToFinish
	}

	added := 0
	for _, course := range category.Courses {
		d, ok := m.plate[course.Code()]
		if !ok {
			continue
		}
		c.AddItem(ChildPortion(d), 1)
		added++
	}
	for _, r := range m.rewards {
		c.AddReward(r)
		added++
	}

	m.resetLocked()
	return added, nil
}

func (m *Mission) resetLocked() {
	m.step = StepWelcome
	m.plate = make(map[string]catalog.Dish)
	m.stars = 0
	m.rewards = nil
}

func (m *Mission) spentLocked() int {
	spent := 0
	for _, r := range m.rewards {
		spent += r.Stars
	}
	return spent
}

func (m *Mission) wrongStep(action string) error {
	return fmt.Errorf("%w: cannot %s on %s", ErrWrongStep, action, m.step)
}

func isCourse(s Step) bool {
	return s == StepStarter || s == StepMain || s == StepDessert
}

func nextCourse(s Step) Step {
	switch s {
	case StepStarter:
		return StepMain
	case StepMain:
		return StepDessert
	default:
		return StepComplete
	}
}
