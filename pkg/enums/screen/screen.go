package screen

type Screen struct {
	Name string
}

func (s Screen) Code() string {
	return s.Name
}

func (s Screen) String() string {
	return s.Name
}

type Enum struct {
	TableSelection    Screen
	ModeSelection     Screen
	Normal            Screen
	Rush              Screen
	Child             Screen
	Cart              Screen
	OrderConfirmation Screen
}

var Screens = Enum{
	TableSelection:    Screen{Name: "table-selection"},
	ModeSelection:     Screen{Name: "mode-selection"},
	Normal:            Screen{Name: "normal"},
	Rush:              Screen{Name: "rush"},
	Child:             Screen{Name: "child"},
	Cart:              Screen{Name: "cart"},
	OrderConfirmation: Screen{Name: "order-confirmation"},
}

// IsMenu reports whether s is one of the browsing screens a cart can be opened from.
func (s Screen) IsMenu() bool {
	return s == Screens.Normal || s == Screens.Rush || s == Screens.Child
}
