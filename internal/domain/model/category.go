// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Category identifies a hardware component family.
type Category string

// Supported categories.
const (
	CategoryCPU         Category = "cpu"
	CategoryGPU         Category = "gpu"
	CategoryMotherboard Category = "motherboard"
	CategoryRAM         Category = "ram"
	CategoryStorage     Category = "storage"
	CategoryPSU         Category = "psu"
	CategoryCase        Category = "case"
	CategoryCooling     Category = "cooling"
)

// Categories lists every supported category in canonical order.
func Categories() []Category {
	return []Category{
		CategoryCPU,
		CategoryGPU,
		CategoryMotherboard,
		CategoryRAM,
		CategoryStorage,
		CategoryPSU,
		CategoryCase,
		CategoryCooling,
	}
}

// ParseCategory normalizes s and returns the matching category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCPU, CategoryGPU, CategoryMotherboard, CategoryRAM,
		CategoryStorage, CategoryPSU, CategoryCase, CategoryCooling:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }
