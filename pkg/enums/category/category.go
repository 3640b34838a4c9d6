package category

import "strings"

// Category is a menu section. Name is the value stored on dishes, BackendCode
// the value used by the menu service.
type Category struct {
	Name        string
	BackendCode string
}

func (c Category) Code() string {
	return c.Name
}

type Enum struct {
	Starter  Category
	Main     Category
	Dessert  Category
	Beverage Category
}

var Categories = Enum{
	Starter:  Category{Name: "entrée", BackendCode: "STARTER"},
	Main:     Category{Name: "plat", BackendCode: "MAIN"},
	Dessert:  Category{Name: "dessert", BackendCode: "DESSERT"},
	Beverage: Category{Name: "beverage", BackendCode: "BEVERAGE"},
}

var All = []Category{
	Categories.Starter,
	Categories.Main,
	Categories.Dessert,
	Categories.Beverage,
}

// Courses are the categories a child plate is built from, in serving order.
var Courses = []Category{
	Categories.Starter,
	Categories.Main,
	Categories.Dessert,
}

// ByName returns the category for a given name, or nil if not found
func ByName(name string) *Category {
	for _, c := range All {
		if c.Name == name {
			return &c
		}
	}
	return nil
}

// FromBackend maps a menu service code to a category. Unknown codes fall back to Main.
func FromBackend(code string) Category {
	for _, c := range All {
		if c.BackendCode == strings.ToUpper(code) {
			return c
		}
	}
	return Categories.Main
}

// ToBackend maps a category name to its menu service code. Unknown names map to MAIN.
func ToBackend(name string) string {
	if c := ByName(strings.ToLower(name)); c != nil {
		return c.BackendCode
	}
	return Categories.Main.BackendCode
}
