package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// Enrichment completes a menu service item, which only carries name, price,
// category and image.
type Enrichment struct {
	Description string   `yaml:"description"`
	Ingredients []string `yaml:"ingredients"`
	Allergens   []string `yaml:"allergens"`
	Spicy       bool     `yaml:"spicy"`
}

type fallbackData struct {
	Dishes     []Dish                `yaml:"dishes"`
	Rewards    []Reward              `yaml:"rewards"`
	Enrichment map[string]Enrichment `yaml:"enrichment"`
}

// ParseFallback decodes a fallback document.
func ParseFallback(raw []byte) ([]Dish, []Reward, map[string]Enrichment, error) {
	var data fallbackData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, nil, nil, fmt.Errorf("cannot decode fallback catalog: %w", err)
	}
	if len(data.Dishes) == 0 {
		return nil, nil, nil, fmt.Errorf("fallback catalog has no dishes")
	}
	return data.Dishes, data.Rewards, data.Enrichment, nil
}

// Fallback returns the built-in catalog.
func Fallback() (*Catalog, error) {
	dishes, rewards, _, err := ParseFallback(fallbackYAML)
	if err != nil {
		return nil, err
	}
	return New(dishes, rewards, SourceFallback), nil
}

// FallbackEnrichment returns the built-in enrichment table.
func FallbackEnrichment() map[string]Enrichment {
	_, _, enrichment, err := ParseFallback(fallbackYAML)
	if err != nil {
		return nil
	}
	return enrichment
}
