package catalog

import (
	"sort"
	"strings"
	"time"
)

const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"

	// PopularThreshold is the minimum popularity of a dish listed as popular.
	PopularThreshold = 4
	// QuickPrepMinutes is the longest preparation a dish can have and still be quick.
	QuickPrepMinutes = 15
	// DefaultPrepMinutes is used when no kitchen estimate exists.
	DefaultPrepMinutes = 15
)

const (
	CuisineFrench        = "française"
	CuisineItalian       = "italienne"
	CuisineAsian         = "asiatique"
	CuisineMediterranean = "méditerranéenne"
)

type Dish struct {
	ID                     string   `json:"id" yaml:"id"`
	Name                   string   `json:"name" yaml:"name"`
	Description            string   `json:"description" yaml:"description"`
	Category               string   `json:"category" yaml:"category"`
	Subcategory            string   `json:"subcategory,omitempty" yaml:"subcategory"`
	Price                  Money    `json:"price" yaml:"price"`
	PrepTime               int      `json:"prep_time" yaml:"prep_time"`
	Popularity             int      `json:"popularity" yaml:"popularity"`
	IsSpecialOfDay         bool     `json:"is_special_of_day" yaml:"is_special_of_day"`
	IsQuick                bool     `json:"is_quick" yaml:"is_quick"`
	ImageURL               string   `json:"image_url,omitempty" yaml:"image_url"`
	KidFriendly            bool     `json:"kid_friendly" yaml:"kid_friendly"`
	KidFriendlyDescription string   `json:"kid_friendly_description,omitempty" yaml:"kid_friendly_description"`
	HasVegetables          bool     `json:"has_vegetables" yaml:"has_vegetables"`
	Ingredients            []string `json:"ingredients" yaml:"ingredients"`
	IsVegetarian           bool     `json:"is_vegetarian" yaml:"is_vegetarian"`
	IsVegan                bool     `json:"is_vegan" yaml:"is_vegan"`
	IsGlutenFree           bool     `json:"is_gluten_free" yaml:"is_gluten_free"`
	SpicyLevel             int      `json:"spicy_level" yaml:"spicy_level"`
	IsLight                bool     `json:"is_light" yaml:"is_light"`
	IsLocal                bool     `json:"is_local" yaml:"is_local"`
	Cuisine                string   `json:"cuisine,omitempty" yaml:"cuisine"`
}

// HasIngredient reports whether any ingredient contains term, ignoring case.
func (d Dish) HasIngredient(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	for _, ing := range d.Ingredients {
		if strings.Contains(strings.ToLower(ing), term) {
			return true
		}
	}
	return false
}

// Reward is a gift a child can unlock with the stars earned in child mode.
type Reward struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Emoji       string `json:"emoji" yaml:"emoji"`
	Stars       int    `json:"stars" yaml:"stars"`
	Description string `json:"description" yaml:"description"`
	ImageURL    string `json:"image_url,omitempty" yaml:"image_url"`
}

// Catalog is an immutable dish list. A reload builds a new Catalog.
type Catalog struct {
	dishes   []Dish
	byID     map[string]int
	rewards  []Reward
	source   string
	loadedAt time.Time
}

// New builds a catalog. Dishes without id and repeated ids are dropped, negative
// prices and prep times are clamped to zero.
func New(dishes []Dish, rewards []Reward, source string) *Catalog {
	c := &Catalog{
		byID:     make(map[string]int, len(dishes)),
		source:   source,
		loadedAt: time.Now(),
	}

	for _, d := range dishes {
		if d.ID == "" {
			continue
		}
		if _, dup := c.byID[d.ID]; dup {
			continue
		}
		if d.Price < 0 {
			d.Price = 0
		}
		if d.PrepTime < 0 {
			d.PrepTime = 0
		}
		if d.SpicyLevel < 0 {
			d.SpicyLevel = 0
		}
		if d.SpicyLevel > 3 {
			d.SpicyLevel = 3
		}
		d.Ingredients = append([]string(nil), d.Ingredients...)
		c.byID[d.ID] = len(c.dishes)
		c.dishes = append(c.dishes, d)
	}

	c.rewards = append([]Reward(nil), rewards...)
	return c
}

func (c *Catalog) Len() int {
	return len(c.dishes)
}

func (c *Catalog) Source() string {
	return c.source
}

func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

func (c *Catalog) All() []Dish {
	return append([]Dish(nil), c.dishes...)
}

func (c *Catalog) Dish(id string) (Dish, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Dish{}, false
	}
	return c.dishes[i], true
}

func (c *Catalog) ByCategory(category string) []Dish {
	return c.where(func(d Dish) bool { return d.Category == category })
}

// Subcategories lists the subcategories of a category in catalog order.
func (c *Catalog) Subcategories(category string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.dishes {
		if d.Category != category || d.Subcategory == "" || seen[d.Subcategory] {
			continue
		}
		seen[d.Subcategory] = true
		out = append(out, d.Subcategory)
	}
	return out
}

func (c *Catalog) BySubcategory(category, subcategory string) []Dish {
	return c.where(func(d Dish) bool {
		return d.Category == category && d.Subcategory == subcategory
	})
}

// KidFriendly returns kid-friendly dishes, restricted to category unless it is empty.
func (c *Catalog) KidFriendly(category string) []Dish {
	return c.where(func(d Dish) bool {
		return d.KidFriendly && (category == "" || d.Category == category)
	})
}

func (c *Catalog) Quick() []Dish {
	return c.where(func(d Dish) bool { return d.IsQuick })
}

func (c *Catalog) SpecialOfDay() (Dish, bool) {
	for _, d := range c.dishes {
		if d.IsSpecialOfDay {
			return d, true
		}
	}
	return Dish{}, false
}

// Popular returns dishes at or above PopularThreshold, most popular first.
// A limit <= 0 returns all of them.
func (c *Catalog) Popular(limit int) []Dish {
	popular := c.where(func(d Dish) bool { return d.Popularity >= PopularThreshold })
	sort.SliceStable(popular, func(i, j int) bool {
		return popular[i].Popularity > popular[j].Popularity
	})
	if limit > 0 && len(popular) > limit {
		popular = popular[:limit]
	}
	return popular
}

// Ingredients returns every distinct ingredient, sorted.
func (c *Catalog) Ingredients() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.dishes {
		for _, ing := range d.Ingredients {
			if ing == "" || seen[ing] {
				continue
			}
			seen[ing] = true
			out = append(out, ing)
		}
	}
	sort.Strings(out)
	return out
}

// SuggestIngredients returns up to limit ingredients containing prefix.
func (c *Catalog) SuggestIngredients(prefix string, limit int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil
	}
	var out []string
	for _, ing := range c.Ingredients() {
		if strings.Contains(strings.ToLower(ing), prefix) {
			out = append(out, ing)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func (c *Catalog) Rewards() []Reward {
	return append([]Reward(nil), c.rewards...)
}

func (c *Catalog) Reward(id string) (Reward, bool) {
	for _, r := range c.rewards {
		if r.ID == id {
			return r, true
		}
	}
	return Reward{}, false
}

// AffordableRewards returns the rewards costing at most stars.
func (c *Catalog) AffordableRewards(stars int) []Reward {
	var out []Reward
	for _, r := range c.rewards {
		if r.Stars <= stars {
			out = append(out, r)
		}
	}
	return out
}

func (c *Catalog) where(keep func(Dish) bool) []Dish {
	var out []Dish
	for _, d := range c.dishes {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
