package kids

import (
	"errors"
	"testing"

	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
)

var (
	nuggets  = catalog.Dish{ID: "nuggets", Name: "Nuggets", Category: "entrée", Price: catalog.NewMoney(10), PrepTime: 10, KidFriendly: true}
	burger   = catalog.Dish{ID: "burger", Name: "Burger", Category: "plat", Price: catalog.NewMoney(15), PrepTime: 20, KidFriendly: true}
	pasta    = catalog.Dish{ID: "pasta", Name: "Pasta", Category: "plat", Price: catalog.NewMoney(12), PrepTime: 15, KidFriendly: true}
	brownie  = catalog.Dish{ID: "brownie", Name: "Brownie", Category: "dessert", Price: catalog.NewMoney(9), PrepTime: 5, KidFriendly: true}
	tartare  = catalog.Dish{ID: "tartare", Name: "Tartare", Category: "plat", Price: catalog.NewMoney(20), PrepTime: 10}
	sticker  = catalog.Reward{ID: "sticker", Name: "Sticker", Emoji: "⭐", Stars: 2}
	icecream = catalog.Reward{ID: "ice-cream", Name: "Glace", Emoji: "🍦", Stars: 4}
	chefHat  = catalog.Reward{ID: "chef-hat", Name: "Toque", Emoji: "👨‍🍳", Stars: 8}
)

func completedMission(t *testing.T) *Mission {
	t.Helper()
	m := NewMission()
	steps := []func() error{
		m.Start,
		func() error { return m.Pick(nuggets) },
		func() error { return m.Pick(burger) },
		func() error { return m.Pick(brownie) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}
	return m
}

func TestMissionFullPlateEarnsEightStars(t *testing.T) {
	m := completedMission(t)
	s := m.Snapshot()

	if s.Step != StepComplete {
		t.Errorf("Step = %s, want complete", s.Step)
	}
	if s.Stars != 8 {
		t.Errorf("Stars = %d, want 8", s.Stars)
	}
	if len(s.Plate) != 3 {
		t.Errorf("Plate = %d dishes, want 3", len(s.Plate))
	}
	// 6.00 + 9.00 + 6.30
	if s.PlateTotal != catalog.NewMoney(21.3) {
		t.Errorf("PlateTotal = %v, want 21.30", s.PlateTotal)
	}
}

func TestMissionPick(t *testing.T) {
	tests := []struct {
		name    string
		dish    catalog.Dish
		wantErr error
	}{
		{name: "wrongCourse", dish: burger, wantErr: ErrWrongCourse},
		{name: "notKidFriendly", dish: catalog.Dish{ID: "x", Category: "entrée"}, wantErr: ErrNotKidFriendly},
		{name: "ok", dish: nuggets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMission()
			_ = m.Start()
			err := m.Pick(tt.dish)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Pick() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && m.Snapshot().Stars != 0 {
				t.Errorf("rejected pick earned stars")
			}
		})
	}

	m := NewMission()
	if err := m.Pick(nuggets); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Pick() on welcome error = %v, want ErrWrongStep", err)
	}
}

func TestMissionReplacingDishKeepsStars(t *testing.T) {
	m := NewMission()
	_ = m.Start()
	_ = m.Skip()
	_ = m.Pick(burger)
	_ = m.Back()
	_ = m.Pick(pasta)

	s := m.Snapshot()
	if s.Stars != 4 {
		t.Errorf("Stars = %d, want 4", s.Stars)
	}
	if s.Plate["plat"].ID != "pasta" {
		t.Errorf("plat = %s, want pasta", s.Plate["plat"].ID)
	}
	if err := m.Pick(tartare); err == nil {
		t.Error("Pick(tartare) error = nil on dessert step")
	}
}

func TestMissionSkipAndBack(t *testing.T) {
	m := NewMission()
	_ = m.Start()

	for _, want := range []Step{StepMain, StepDessert, StepComplete} {
		if err := m.Skip(); err != nil {
			t.Fatalf("Skip() error = %v", err)
		}
		if got := m.Snapshot().Step; got != want {
			t.Errorf("Step = %s, want %s", got, want)
		}
	}
	if err := m.Skip(); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Skip() on complete error = %v", err)
	}
	if m.Snapshot().Stars != 0 {
		t.Error("skipping earned stars")
	}

	_ = m.GoToCart()
	_ = m.GoToRewards()
	for _, want := range []Step{StepCart, StepComplete, StepDessert, StepMain, StepStarter} {
		if err := m.Back(); err != nil {
			t.Fatalf("Back() error = %v", err)
		}
		if got := m.Snapshot().Step; got != want {
			t.Errorf("Step = %s, want %s", got, want)
		}
	}
	if err := m.Back(); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Back() on entrée error = %v", err)
	}
}

func TestMissionRewards(t *testing.T) {
	m := completedMission(t)
	if err := m.SelectReward(sticker); !errors.Is(err, ErrWrongStep) {
		t.Errorf("SelectReward() before rewards step error = %v", err)
	}

	_ = m.GoToCart()
	_ = m.GoToRewards()

	if err := m.SelectReward(icecream); err != nil {
		t.Fatalf("SelectReward(ice-cream) error = %v", err)
	}
	if err := m.SelectReward(sticker); err != nil {
		t.Fatalf("SelectReward(sticker) error = %v", err)
	}
	if err := m.SelectReward(sticker); err != nil {
		t.Fatalf("second SelectReward(sticker) error = %v", err)
	}
	if err := m.SelectReward(sticker); !errors.Is(err, ErrNotEnoughStars) {
		t.Errorf("SelectReward() over budget error = %v, want ErrNotEnoughStars", err)
	}

	s := m.Snapshot()
	if s.SpentStars != 8 || s.RemainingStars != 0 || len(s.Rewards) != 3 {
		t.Errorf("Snapshot() = spent %d remaining %d rewards %d", s.SpentStars, s.RemainingStars, len(s.Rewards))
	}

	if err := m.RemoveReward(0); err != nil {
		t.Fatalf("RemoveReward(0) error = %v", err)
	}
	if err := m.RemoveReward(5); err == nil {
		t.Error("RemoveReward(5) error = nil")
	}
	if got := m.Snapshot().RemainingStars; got != 4 {
		t.Errorf("RemainingStars = %d, want 4", got)
	}
}

func TestMissionUnpickDropsUnaffordableRewards(t *testing.T) {
	m := completedMission(t)
	_ = m.GoToCart()
	_ = m.GoToRewards()
	_ = m.SelectReward(chefHat)

	if err := m.Unpick("dessert"); err != nil {
		t.Fatalf("Unpick() error = %v", err)
	}

	s := m.Snapshot()
	if s.Stars != 6 {
		t.Errorf("Stars = %d, want 6", s.Stars)
	}
	if len(s.Rewards) != 0 {
		t.Errorf("Rewards = %v, want none", s.Rewards)
	}
	if _, ok := s.Plate["dessert"]; ok {
		t.Error("dessert still on the plate")
	}

	if err := m.Unpick("dessert"); err != nil {
		t.Errorf("second Unpick() error = %v", err)
	}
	if m.Snapshot().Stars != 6 {
		t.Error("second Unpick() changed stars")
	}
}

func TestChildPortion(t *testing.T) {
	tests := []struct {
		name      string
		dish      catalog.Dish
		wantPrice catalog.Money
	}{
		{name: "starter", dish: nuggets, wantPrice: catalog.NewMoney(6)},
		{name: "main", dish: burger, wantPrice: catalog.NewMoney(9)},
		{name: "dessert", dish: brownie, wantPrice: catalog.NewMoney(6.3)},
		{name: "roundsToCents", dish: catalog.Dish{ID: "d", Category: "dessert", Price: catalog.NewMoney(8.5)}, wantPrice: catalog.NewMoney(5.95)},
		{name: "otherCategoryFullPrice", dish: catalog.Dish{ID: "b", Category: "beverage", Price: catalog.NewMoney(4)}, wantPrice: catalog.NewMoney(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ChildPortion(tt.dish)
			if p.Price != tt.wantPrice {
				t.Errorf("Price = %v, want %v", p.Price, tt.wantPrice)
			}
			if p.ID != tt.dish.ID+"-child" {
				t.Errorf("ID = %q", p.ID)
			}
			if p.Name != tt.dish.Name+" (Portion enfant)" {
				t.Errorf("Name = %q", p.Name)
			}
			if p.PrepTime != tt.dish.PrepTime {
				t.Errorf("PrepTime = %d, want %d", p.PrepTime, tt.dish.PrepTime)
			}
		})
	}
}

func TestMissionFinalize(t *testing.T) {
	m := completedMission(t)
	_ = m.GoToCart()
	_ = m.GoToRewards()
	_ = m.SelectReward(sticker)

	c := cart.NewPersonal(2)
	added, err := m.Finalize(c)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if added != 4 {
		t.Errorf("Finalize() added %d lines, want 4", added)
	}

	items := c.Items()
	wantIDs := []string{"nuggets-child", "burger-child", "brownie-child", "sticker"}
	for i, id := range wantIDs {
		if items[i].DishID() != id {
			t.Errorf("Items()[%d] = %s, want %s", i, items[i].DishID(), id)
		}
	}
	if !items[3].Locked() {
		t.Error("reward line is not locked")
	}
	if got := c.TotalPrice(); got != catalog.NewMoney(21.3) {
		t.Errorf("TotalPrice() = %v, want 21.30", got)
	}
	if got := c.TotalPrepTime(); got != 35 {
		t.Errorf("TotalPrepTime() = %d, want 35", got)
	}

	if s := m.Snapshot(); s.Step != StepWelcome || s.Stars != 0 || len(s.Plate) != 0 {
		t.Errorf("mission not restarted: %+v", s)
	}
}

func TestMissionFinalizeErrors(t *testing.T) {
	m := NewMission()
	if _, err := m.Finalize(cart.NewPersonal(1)); !errors.Is(err, ErrWrongStep) {
		t.Errorf("Finalize() on welcome error = %v", err)
	}

	_ = m.Start()
	_ = m.Skip()
	_ = m.Skip()
	_ = m.Skip()
	if _, err := m.Finalize(cart.NewPersonal(1)); !errors.Is(err, ErrNothingToFinish) {
		t.Errorf("Finalize() with empty plate error = %v", err)
	}
}

func TestMissionChoices(t *testing.T) {
	dishes := []catalog.Dish{nuggets, burger, pasta, brownie, tartare}
	for i := 0; i < 8; i++ {
		dishes = append(dishes, catalog.Dish{ID: "starter-" + string(rune('a'+i)), Category: "entrée", KidFriendly: true})
	}
	c := catalog.New(dishes, nil, catalog.SourceFallback)

	m := NewMission()
	if got := m.Choices(c); got != nil {
		t.Errorf("Choices() on welcome = %v, want nil", got)
	}

	_ = m.Start()
	if got := m.Choices(c); len(got) != MaxChoices {
		t.Errorf("Choices() = %d dishes, want %d", len(got), MaxChoices)
	}

	_ = m.Skip()
	got := m.Choices(c)
	if len(got) != 2 {
		t.Fatalf("Choices() on plat = %d dishes, want 2", len(got))
	}
	for _, d := range got {
		if d.ID == "tartare" {
			t.Error("Choices() offered a dish that is not kid friendly")
		}
	}
}

func TestStarsFor(t *testing.T) {
	if StarsFor("entrée") != 2 || StarsFor("plat") != 4 || StarsFor("dessert") != 2 || StarsFor("beverage") != 0 {
		t.Error("StarsFor() returned unexpected values")
	}
}
