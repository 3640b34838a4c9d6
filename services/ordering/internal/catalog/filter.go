package catalog

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/appetiteclub/tableside/pkg/enums/category"
)

type Diet string

const (
	DietVegetarian Diet = "vegetarian"
	DietVegan      Diet = "vegan"
	DietGlutenFree Diet = "glutenFree"
)

type Trait string

const (
	TraitLight Trait = "light"
	TraitLocal Trait = "local"
	TraitSpicy Trait = "spicy"
)

// Filter narrows the menu. Zero values match everything.
// Included ingredients must all be present, excluded ones must all be absent.
// Diets and cuisines match any of the listed values, traits must all hold.
type Filter struct {
	Category    string
	Subcategory string
	Query       string
	Included    []string
	Excluded    []string
	Dietary     []Diet
	Traits      []Trait
	Cuisines    []string
	KidFriendly bool
	MaxPrepTime int
}

func (f Filter) Match(d Dish) bool {
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	if f.Subcategory != "" && d.Subcategory != f.Subcategory {
		return false
	}
	if f.KidFriendly && !d.KidFriendly {
		return false
	}
	if f.MaxPrepTime > 0 && d.PrepTime > f.MaxPrepTime {
		return false
	}
	if f.Query != "" && !matchesQuery(d, f.Query) {
		return false
	}

	for _, ing := range f.Included {
		if !d.HasIngredient(ing) {
			return false
		}
	}
	for _, ing := range f.Excluded {
		if d.HasIngredient(ing) {
			return false
		}
	}

	if len(f.Dietary) > 0 && !matchesAnyDiet(d, f.Dietary) {
		return false
	}

	for _, t := range f.Traits {
		switch t {
		case TraitLight:
			if !d.IsLight {
				return false
			}
		case TraitLocal:
			if !d.IsLocal {
				return false
			}
		case TraitSpicy:
			if d.SpicyLevel == 0 {
				return false
			}
		}
	}

	if len(f.Cuisines) > 0 {
		if d.Cuisine == "" {
			return false
		}
		found := false
		for _, c := range f.Cuisines {
			if c == d.Cuisine {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func matchesAnyDiet(d Dish, diets []Diet) bool {
	for _, diet := range diets {
		switch diet {
		case DietVegetarian:
			if d.IsVegetarian {
				return true
			}
		case DietVegan:
			if d.IsVegan {
				return true
			}
		case DietGlutenFree:
			if d.IsGlutenFree {
				return true
			}
		}
	}
	return false
}

func matchesQuery(d Dish, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Name), q) ||
		strings.Contains(strings.ToLower(d.Description), q) ||
		d.HasIngredient(q)
}

// Search returns the dishes matching f in catalog order.
func (c *Catalog) Search(f Filter) []Dish {
	return c.where(f.Match)
}

// FilterFromQuery reads a Filter from URL query values. List values are
// comma separated: ?include=tomate,basilic&diet=vegan&trait=light.
func FilterFromQuery(q url.Values) Filter {
	f := Filter{
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Query:       q.Get("q"),
		Included:    splitList(q.Get("include")),
		Excluded:    splitList(q.Get("exclude")),
		Cuisines:    splitList(q.Get("cuisine")),
		KidFriendly: q.Get("kid_friendly") == "true",
	}
	for _, d := range splitList(q.Get("diet")) {
		f.Dietary = append(f.Dietary, Diet(d))
	}
	for _, t := range splitList(q.Get("trait")) {
		f.Traits = append(f.Traits, Trait(t))
	}
	if maxPrep, err := strconv.Atoi(q.Get("max_prep")); err == nil && maxPrep > 0 {
		f.MaxPrepTime = maxPrep
	}
	return f
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Rush menu windows, in minutes of preparation.
const (
	RushWindowShort = 30
	RushWindowLong  = 60
)

// RushCategory is one shelf of the rush-hour quick menu.
type RushCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Dishes      []Dish `json:"dishes"`
}

type rushShelf struct {
	id, name, description string
	keep                  func(Dish) bool
}

var rushShelves = []rushShelf{
	{"express-light", "Express & light", "Fast and healthy", func(d Dish) bool {
		return d.PrepTime <= QuickPrepMinutes && d.IsLight
	}},
	{"popular-fast", "Most requested", "Guest favourites", func(d Dish) bool {
		return d.Popularity >= PopularThreshold
	}},
	{"complete-meals", "Complete meals", "A real meal", func(d Dish) bool {
		return d.Category == category.Categories.Main.Code()
	}},
	{"quick-starters", "Quick starters", "To get going", func(d Dish) bool {
		return d.Category == category.Categories.Starter.Code()
	}},
	{"quick-desserts", "Quick desserts", "To finish", func(d Dish) bool {
		return d.Category == category.Categories.Dessert.Code()
	}},
}

// RushSelections builds the rush menu for guests who can wait at most maxPrep
// minutes. Each shelf is sorted by preparation time, fastest first.
func (c *Catalog) RushSelections(maxPrep int) []RushCategory {
	if maxPrep <= 0 {
		maxPrep = RushWindowLong
	}

	out := make([]RushCategory, 0, len(rushShelves))
	for _, shelf := range rushShelves {
		dishes := c.where(func(d Dish) bool {
			return d.PrepTime <= maxPrep && shelf.keep(d)
		})
		sort.SliceStable(dishes, func(i, j int) bool {
			return dishes[i].PrepTime < dishes[j].PrepTime
		})
		out = append(out, RushCategory{
			ID:          shelf.id,
			Name:        shelf.name,
			Description: shelf.description,
			Dishes:      dishes,
		})
	}
	return out
}
