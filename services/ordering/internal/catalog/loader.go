package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/tableside/pkg/enums/category"
)

// BackendItem is a menu service record.
type BackendItem struct {
	ID        string  `json:"_id"`
	FullName  string  `json:"fullName"`
	ShortName string  `json:"shortName"`
	Price     float64 `json:"price"`
	Category  string  `json:"category"`
	Image     string  `json:"image"`
}

// Recipe is a kitchen service recipe. Only the mean cooking time is used here.
type Recipe struct {
	ID                   string `json:"_id"`
	ShortName            string `json:"shortName"`
	MeanCookingTimeInSec int    `json:"meanCookingTimeInSec"`
}

type MenuSource interface {
	ListMenuItems(ctx context.Context) ([]BackendItem, error)
}

type RecipeSource interface {
	ListRecipes(ctx context.Context) ([]Recipe, error)
}

var ErrNoClient = errors.New("service client not configured")

// LoadError reports that the remote catalog could not be used and the
// built-in menu was served instead.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog load failed, serving fallback menu: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// MenuDataAccess reads the menu service.
type MenuDataAccess struct {
	client *apt.ServiceClient
}

func NewMenuDataAccess(client *apt.ServiceClient) *MenuDataAccess {
	return &MenuDataAccess{client: client}
}

func (d *MenuDataAccess) ListMenuItems(ctx context.Context) ([]BackendItem, error) {
	if d == nil || d.client == nil {
		return nil, ErrNoClient
	}
	resp, err := d.client.List(ctx, "menus")
	if err != nil {
		return nil, fmt.Errorf("cannot list menu items: %w", err)
	}
	var items []BackendItem
	if err := decodeSuccessResponse(resp, &items); err != nil {
		return nil, fmt.Errorf("cannot decode menu items: %w", err)
	}
	return items, nil
}

// CreateMenuItem adds one item to the menu service.
func (d *MenuDataAccess) CreateMenuItem(ctx context.Context, item BackendMenuItem) error {
	if d == nil || d.client == nil {
		return ErrNoClient
	}
	if _, err := d.client.Create(ctx, "menus", item); err != nil {
		return fmt.Errorf("cannot create menu item %q: %w", item.FullName, err)
	}
	return nil
}

// KitchenDataAccess reads recipes from the kitchen service.
type KitchenDataAccess struct {
	client *apt.ServiceClient
}

func NewKitchenDataAccess(client *apt.ServiceClient) *KitchenDataAccess {
	return &KitchenDataAccess{client: client}
}

func (d *KitchenDataAccess) ListRecipes(ctx context.Context) ([]Recipe, error) {
	if d == nil || d.client == nil {
		return nil, ErrNoClient
	}
	resp, err := d.client.List(ctx, "recipes")
	if err != nil {
		return nil, fmt.Errorf("cannot list recipes: %w", err)
	}
	var recipes []Recipe
	if err := decodeSuccessResponse(resp, &recipes); err != nil {
		return nil, fmt.Errorf("cannot decode recipes: %w", err)
	}
	return recipes, nil
}

// Loader builds catalogs from the menu service, falling back to the built-in menu.
type Loader struct {
	menu       MenuSource
	recipes    RecipeSource
	enrichment map[string]Enrichment
	logger     apt.Logger
}

// NewLoader creates a loader. A nil menu source always serves the fallback menu,
// a nil recipe source leaves prep times at DefaultPrepMinutes.
func NewLoader(menu MenuSource, recipes RecipeSource, logger apt.Logger) *Loader {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Loader{
		menu:       menu,
		recipes:    recipes,
		enrichment: FallbackEnrichment(),
		logger:     logger,
	}
}

// Load always returns a usable catalog. The error is a *LoadError when the
// remote menu failed and the fallback was served.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	if l.menu == nil {
		l.logger.Info("menu service disabled, serving fallback catalog")
		return l.fallback()
	}

	items, err := l.menu.ListMenuItems(ctx)
	if err == nil && len(items) == 0 {
		err = errors.New("menu service returned no items")
	}
	if err != nil {
		loadErr := &LoadError{Err: err}
		l.logger.Error("cannot load remote catalog", "error", err)
		c, fbErr := l.fallback()
		if fbErr != nil {
			return c, errors.Join(loadErr, fbErr)
		}
		return c, loadErr
	}

	prep := l.prepTimes(ctx)
	dishes := make([]Dish, 0, len(items))
	for _, item := range items {
		dishes = append(dishes, l.mapItem(item, prep))
	}

	fb, _ := Fallback()
	var rewards []Reward
	if fb != nil {
		rewards = fb.Rewards()
	}

	c := New(dishes, rewards, SourceRemote)
	l.logger.Info("catalog loaded", "source", SourceRemote, "dishes", c.Len())
	return c, nil
}

func (l *Loader) fallback() (*Catalog, error) {
	c, err := Fallback()
	if err != nil {
		return New(nil, nil, SourceFallback), err
	}
	return c, nil
}

func (l *Loader) prepTimes(ctx context.Context) map[string]int {
	out := make(map[string]int)
	if l.recipes == nil {
		return out
	}
	recipes, err := l.recipes.ListRecipes(ctx)
	if err != nil {
		l.logger.Info("kitchen recipes unavailable, using default prep times", "error", err)
		return out
	}
	for _, r := range recipes {
		if r.MeanCookingTimeInSec > 0 {
			out[r.ShortName] = int(math.Ceil(float64(r.MeanCookingTimeInSec) / 60))
		}
	}
	return out
}

var (
	meatPattern   = regexp.MustCompile(`(?i)viande|poulet|boeuf|porc|poisson|saumon|thon`)
	animalPattern = regexp.MustCompile(`(?i)viande|poulet|boeuf|porc|poisson|lait|crème|fromage|oeuf|beurre`)
	glutenPattern = regexp.MustCompile(`(?i)gluten`)
)

func (l *Loader) mapItem(item BackendItem, prep map[string]int) Dish {
	enrich, ok := l.enrichment[item.ShortName]
	if !ok {
		l.logger.Debug("no enrichment for menu item", "short_name", item.ShortName)
		enrich = Enrichment{Description: "Description not available"}
	}

	prepTime := DefaultPrepMinutes
	if p, ok := prep[item.ShortName]; ok {
		prepTime = p
	}

	spicy := 0
	if enrich.Spicy {
		spicy = 2
	}

	return Dish{
		ID:           item.ID,
		Name:         item.FullName,
		Description:  enrich.Description,
		Category:     category.FromBackend(item.Category).Code(),
		Price:        NewMoney(item.Price),
		PrepTime:     prepTime,
		Popularity:   3,
		IsQuick:      prepTime <= QuickPrepMinutes,
		ImageURL:     item.Image,
		Ingredients:  enrich.Ingredients,
		SpicyLevel:   spicy,
		IsVegetarian: !anyMatch(meatPattern, enrich.Ingredients),
		IsVegan:      !anyMatch(animalPattern, enrich.Ingredients),
		IsGlutenFree: !anyMatch(glutenPattern, enrich.Allergens),
	}
}

func anyMatch(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// Store holds the catalog currently served. It is never empty.
type Store struct {
	mu      sync.RWMutex
	current *Catalog
	loader  *Loader
	logger  apt.Logger
}

func NewStore(loader *Loader, logger apt.Logger) *Store {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	current, err := Fallback()
	if err != nil {
		logger.Error("built-in catalog is invalid", "error", err)
		current = New(nil, nil, SourceFallback)
	}
	return &Store{current: current, loader: loader, logger: logger}
}

func (s *Store) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload replaces the catalog. The previous catalog is discarded even when the
// load fell back to the built-in menu.
func (s *Store) Reload(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	c, err := s.loader.Load(ctx)
	if c != nil && c.Len() > 0 {
		s.mu.Lock()
		s.current = c
		s.mu.Unlock()
	}
	return err
}

// Start loads the catalog at boot. A failed load is logged, never fatal.
func (s *Store) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		s.logger.Info("catalog started on fallback menu", "error", err)
	}
	return nil
}

func decodeSuccessResponse(resp *apt.SuccessResponse, target interface{}) error {
	if resp == nil {
		return fmt.Errorf("nil success response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, target)
}
