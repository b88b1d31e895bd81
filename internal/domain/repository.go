package domain

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the contract for product storage.
//
// Absence is reported as a nil product (or false for Delete) with a nil
// error. A non-nil error always means the store itself failed.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]*Product, error)
	GetAllByCondition(ctx context.Context, spec Spec) ([]*Product, error)
	GetOneByCondition(ctx context.Context, spec Spec) (*Product, error)
	// Add assigns a ProductID when the product has none.
	Add(ctx context.Context, product *Product) (*Product, error)
	// Update overwrites every mutable field; nil when the id is unknown.
	Update(ctx context.Context, product *Product) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
