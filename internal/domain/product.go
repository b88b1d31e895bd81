package domain

import (
	"github.com/google/uuid"
)

// Category is the closed set of product categories
type Category string

const (
	CategoryElectronics    Category = "Electronics"
	CategoryHomeAppliances Category = "HomeAppliances"
	CategoryFurniture      Category = "Furniture"
	CategoryAccessories    Category = "Accessories"
)

// Categories lists every recognized category in declaration order
func Categories() []Category {
	return []Category{
		CategoryElectronics,
		CategoryHomeAppliances,
		CategoryFurniture,
		CategoryAccessories,
	}
}

// IsValid reports whether c belongs to the category set
func (c Category) IsValid() bool {
	switch c {
	case CategoryElectronics, CategoryHomeAppliances, CategoryFurniture, CategoryAccessories:
		return true
	}
	return false
}

// Product represents the product entity
type Product struct {
	ProductID       uuid.UUID
	ProductName     string
	Category        Category
	UnitPrice       float64
	QuantityInStock int
}

// Clone returns a copy so callers cannot mutate stored state
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
