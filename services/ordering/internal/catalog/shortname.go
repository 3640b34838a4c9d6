package catalog

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/appetiteclub/apt"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/appetiteclub/tableside/pkg/enums/category"
)

const placeholderImage = "https://via.placeholder.com/400x300?text=No+Image"

// knownShortNames maps menu service full names to the short names the dining
// service indexes lines by.
var knownShortNames = map[string]string{
	"Homemade foie gras terrine":                                     "foie gras",
	"Soft-boiled egg breaded with breadcrumbs and nuts":              "soft-boiled egg",
	`Goat cheese foom from "Valbonne goat farm"`:                     "goat cheese",
	"Homemade dill salmon gravlax":                                   "salmon",
	"Crab maki with fresh mango":                                     "crab maki",
	"Burrata Mozzarella":                                             "burrata",
	"Delicious Pizza Regina":                                         "pizza",
	"Lasagna al forno":                                               "lasagna",
	"Homemade beef burger":                                           "beef burger",
	"Beef chuck cooked 48 hours at low temperature":                  "beef chuck",
	"Half cooked tuna and octopus grilled on the plancha":            "half cooked tuna",
	"Brownie (home made)":                                            "brownie",
	"Valrhona chocolate declination with salted chocolate ice cream": "chocolate",
	"Marmalade of Menton's lemon - Lemon cream - Limoncello jelly and sorbet - Homemade meringue": "lemon",
	"Fresh raspberries and peaches": "rasp and peaches",
}

var (
	nonShortNameChars = regexp.MustCompile(`[^a-z0-9\s]`)
	nonSlugChars      = regexp.MustCompile(`[^a-z0-9]+`)
)

// ShortName returns the dining service short name for a dish full name.
func ShortName(fullName string) string {
	if short, ok := knownShortNames[fullName]; ok {
		return short
	}
	return strings.TrimSpace(nonShortNameChars.ReplaceAllString(strings.ToLower(fullName), ""))
}

// Slug lowercases name, strips accents and joins the remaining words with dashes.
func Slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		plain = strings.ToLower(name)
	}
	return strings.Trim(nonSlugChars.ReplaceAllString(plain, "-"), "-")
}

// BackendMenuItem is the create payload of the menu service.
type BackendMenuItem struct {
	FullName  string  `json:"fullName"`
	ShortName string  `json:"shortName"`
	Price     float64 `json:"price"`
	Category  string  `json:"category"`
	Image     string  `json:"image"`
}

var ErrIncompleteDish = errors.New("name, price and category are required")

// PrepareForBackend converts a dish into the menu service create payload.
func PrepareForBackend(d Dish) (BackendMenuItem, error) {
	if strings.TrimSpace(d.Name) == "" || d.Price <= 0 || d.Category == "" {
		return BackendMenuItem{}, ErrIncompleteDish
	}

	image := d.ImageURL
	if image == "" {
		image = placeholderImage
	}

	return BackendMenuItem{
		FullName:  d.Name,
		ShortName: Slug(d.Name),
		Price:     d.Price.Float(),
		Category:  category.ToBackend(d.Category),
		Image:     image,
	}, nil
}

// MenuSink accepts menu items for the menu service.
type MenuSink interface {
	CreateMenuItem(ctx context.Context, item BackendMenuItem) error
}

// SeedResult counts the outcome of a Seed run.
type SeedResult struct {
	Created int      `json:"created"`
	Skipped []string `json:"skipped,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// Seed pushes dishes to the menu service. Incomplete dishes are skipped and a
// failed create does not stop the run.
func Seed(ctx context.Context, sink MenuSink, dishes []Dish, logger apt.Logger) (SeedResult, error) {
	if sink == nil {
		return SeedResult{}, ErrNoClient
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	var res SeedResult
	for _, d := range dishes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		item, err := PrepareForBackend(d)
		if err != nil {
			res.Skipped = append(res.Skipped, d.ID)
			continue
		}
		if err := sink.CreateMenuItem(ctx, item); err != nil {
			logger.Error("cannot create menu item", "dish", d.ID, "error", err)
			res.Failed = append(res.Failed, d.ID)
			continue
		}
		res.Created++
	}

	logger.Info("menu seeded", "created", res.Created, "skipped", len(res.Skipped), "failed", len(res.Failed))
	return res, nil
}
