// Package meal defines the static diet-planner catalog.
package meal

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Food is a single checklist entry within a meal section.
type Food struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Section groups the foods suggested for one meal of the day. Icon carries a
// display hint for clients and has no server-side meaning.
type Section struct {
	Name  string `yaml:"name" json:"name"`
	Icon  string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Foods []Food `yaml:"foods" json:"foods"`
}

// Catalog is the ordered set of meal sections. It is fixed configuration,
// never derived from the row store, and read-only at runtime.
type Catalog struct {
	Sections []Section `yaml:"sections" json:"sections"`
}

// Default returns the built-in diet planner catalog.
func Default() Catalog {
	return Catalog{Sections: []Section{
		{
			Name: "Breakfast",
			Icon: "cafe-outline",
			Foods: []Food{
				{ID: "oats", Name: "Oats Porridge"},
				{ID: "egg", Name: "Boiled Egg"},
			},
		},
		{
			Name: "Lunch",
			Icon: "fast-food-outline",
			Foods: []Food{
				{ID: "salad", Name: "Vegetable Salad"},
				{ID: "dal", Name: "Dal"},
				{ID: "roti", Name: "Whole Wheat Roti"},
			},
		},
		{
			Name: "Snack",
			Icon: "ice-cream-outline",
			Foods: []Food{
				{ID: "nuts", Name: "Handful of Nuts"},
				{ID: "fruit", Name: "Low GI Fruit"},
			},
		},
		{
			Name: "Dinner",
			Icon: "restaurant-outline",
			Foods: []Food{
				{ID: "grilled", Name: "Grilled Chicken/Fish"},
				{ID: "soup", Name: "Vegetable Soup"},
			},
		},
	}}
}

// Load reads a catalog from a YAML file. Deployments use this to reshape the
// planner without a rebuild.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	if len(cat.Sections) == 0 {
		return Catalog{}, fmt.Errorf("catalog %s defines no sections", path)
	}
	for _, sec := range cat.Sections {
		if sec.Name == "" {
			return Catalog{}, fmt.Errorf("catalog %s contains an unnamed section", path)
		}
		for _, food := range sec.Foods {
			if food.ID == "" || food.Name == "" {
				return Catalog{}, fmt.Errorf("catalog %s: section %s contains a food without id or name", path, sec.Name)
			}
		}
	}
	return cat, nil
}

// Food looks up a catalog food by id.
func (c Catalog) Food(id string) (Food, bool) {
	for _, sec := range c.Sections {
		for _, food := range sec.Foods {
			if food.ID == id {
				return food, true
			}
		}
	}
	return Food{}, false
}

// SearchFoods returns the foods whose name contains the query,
// case-insensitively, preserving catalog order. An empty query matches
// everything.
func (c Catalog) SearchFoods(query string) []Food {
	query = strings.ToLower(strings.TrimSpace(query))

	var out []Food
	for _, sec := range c.Sections {
		for _, food := range sec.Foods {
			if query == "" || strings.Contains(strings.ToLower(food.Name), query) {
				out = append(out, food)
			}
		}
	}
	return out
}
