package catalog

import (
	"context"
	"sync"
)

type MockMenuSource struct {
	ListMenuItemsFunc func(ctx context.Context) ([]BackendItem, error)
}

func (m *MockMenuSource) ListMenuItems(ctx context.Context) ([]BackendItem, error) {
	if m.ListMenuItemsFunc != nil {
		return m.ListMenuItemsFunc(ctx)
	}
	return nil, nil
}

type MockRecipeSource struct {
	ListRecipesFunc func(ctx context.Context) ([]Recipe, error)
}

func (m *MockRecipeSource) ListRecipes(ctx context.Context) ([]Recipe, error) {
	if m.ListRecipesFunc != nil {
		return m.ListRecipesFunc(ctx)
	}
	return nil, nil
}

type MockMenuSink struct {
	mu                 sync.Mutex
	items              []BackendMenuItem
	CreateMenuItemFunc func(ctx context.Context, item BackendMenuItem) error
}

func (m *MockMenuSink) CreateMenuItem(ctx context.Context, item BackendMenuItem) error {
	if m.CreateMenuItemFunc != nil {
		if err := m.CreateMenuItemFunc(ctx, item); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
	return nil
}

func (m *MockMenuSink) Items() []BackendMenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BackendMenuItem(nil), m.items...)
}

func testDishes() []Dish {
	return []Dish{
		{ID: "salad", Name: "Garden salad", Category: "entrée", Subcategory: "Salades", Price: NewMoney(7), PrepTime: 5, Popularity: 4, IsQuick: true, IsLight: true, IsVegetarian: true, IsVegan: true, Ingredients: []string{"Laitue", "Tomate", "Huile d'olive"}, Cuisine: CuisineFrench, KidFriendly: true},
		{ID: "soup", Name: "Onion soup", Category: "entrée", Subcategory: "Soupes", Price: NewMoney(8.5), PrepTime: 20, Popularity: 2, IsVegetarian: true, Ingredients: []string{"Oignons", "Beurre", "Fromage"}, Cuisine: CuisineFrench},
		{ID: "curry", Name: "Green curry", Category: "plat", Price: NewMoney(15), PrepTime: 25, Popularity: 5, SpicyLevel: 3, IsVegan: true, IsVegetarian: true, IsGlutenFree: true, Ingredients: []string{"Lait de coco", "Poivrons"}, Cuisine: CuisineAsian},
		{ID: "steak", Name: "Steak frites", Category: "plat", Price: NewMoney(21), PrepTime: 40, Popularity: 4, IsLocal: true, Ingredients: []string{"Boeuf", "Pommes de terre"}, KidFriendly: true},
		{ID: "tart", Name: "Lemon tart", Category: "dessert", Price: NewMoney(6), PrepTime: 10, Popularity: 3, IsSpecialOfDay: true, IsQuick: true, IsLight: true, Ingredients: []string{"Citron", "Beurre", "Farine"}, Cuisine: CuisineFrench},
	}
}

func testCatalog() *Catalog {
	rewards := []Reward{
		{ID: "sticker", Name: "Sticker", Stars: 2},
		{ID: "hat", Name: "Chef hat", Stars: 8},
	}
	return New(testDishes(), rewards, SourceFallback)
}
