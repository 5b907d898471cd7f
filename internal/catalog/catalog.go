// Package catalog lists the home-service categories the locator searches for.
package catalog

import "strings"

// Category is one searchable trade.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

var categories = []Category{
	{ID: "concrete", Name: "Concrete", Icon: "Blocks", Description: "Driveways, patios, foundations, and concrete repairs"},
	{ID: "electrical", Name: "Electrical", Icon: "Zap", Description: "Wiring, outlets, panels, and electrical installations"},
	{ID: "plumbing", Name: "Plumbing", Icon: "Droplet", Description: "Pipes, fixtures, water heaters, and drain cleaning"},
	{ID: "roofing", Name: "Roofing", Icon: "Home", Description: "Roof repairs, replacements, and inspections"},
	{ID: "hvac", Name: "HVAC/A/C", Icon: "Wind", Description: "Air conditioning, heating, and ventilation systems"},
	{ID: "painting", Name: "Painting", Icon: "Paintbrush", Description: "Interior and exterior painting services"},
	{ID: "general-contractor", Name: "General Contractor", Icon: "Hammer", Description: "Complete renovation and construction projects"},
	{ID: "pool-services", Name: "Pool Services", Icon: "Waves", Description: "Pool maintenance, repairs, and installations"},
}

// All returns a copy of the catalogue in display order.
func All() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Lookup finds a category by id or display name, case-insensitively.
func Lookup(idOrName string) (Category, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.ID, idOrName) || strings.EqualFold(c.Name, idOrName) {
			return c, true
		}
	}
	return Category{}, false
}
