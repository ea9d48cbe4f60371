package model

import "time"

// Availability records whether a component is stocked in the live inventory.
type Availability uint8

const (
	// AvailabilityUnknown means purchasability must be resolved by the inventory oracle.
	AvailabilityUnknown Availability = iota
	// AvailabilityPurchasable marks a component loaded from the live inventory.
	AvailabilityPurchasable
	// AvailabilityReferenceOnly marks a component known only from the reference dataset.
	AvailabilityReferenceOnly
)

func (a Availability) String() string {
	switch a {
	case AvailabilityPurchasable:
		return "purchasable"
	case AvailabilityReferenceOnly:
		return "reference"
	default:
		return "unknown"
	}
}

// Key scopes a component id to its category. Ids are only unique per category.
type Key struct {
	ID       int
	Category Category
}

// Component is one catalog row. Specs holds the category-specific attributes.
type Component struct {
	ID           int
	Category     Category
	ModelName    string
	Brand        string
	Price        *float64
	Availability Availability
	Specs        Specs
}

// Key returns the (id, category) lookup key.
func (c *Component) Key() Key {
	return Key{ID: c.ID, Category: c.Category}
}

// Attribute returns the textual value of a named attribute, if present.
func (c *Component) Attribute(name string) (string, bool) {
	if name == "brand" {
		return c.Brand, c.Brand != ""
	}
	if c.Specs == nil {
		return "", false
	}
	return c.Specs.Attribute(name)
}

// Build maps a category to the component id chosen for it.
type Build map[Category]int

// ParseBuild converts a loosely keyed build into a Build. Keys that are not
// known categories are returned separately and left out.
func ParseBuild(raw map[string]int) (Build, []string) {
	b := make(Build, len(raw))
	var invalid []string
	for k, id := range raw {
		c, err := ParseCategory(k)
		if err != nil {
			invalid = append(invalid, k)
			continue
		}
		b[c] = id
	}
	return b, invalid
}

// RebuildRequest asks for the catalog snapshot to be rebuilt.
type RebuildRequest struct {
	ID          string    // request id, reported back to callers
	Reason      string    // why, e.g. "startup", "retrain", "inventory_add"
	RequestedAt time.Time // enqueue time
}
