package domain

import (
	"context"

	"github.com/google/uuid"
)

const (
	ProductCreatedRoutingKey = "product.created"
	ProductUpdatedRoutingKey = "product.updated"
	ProductDeletedRoutingKey = "product.deleted"
)

// EventPublisher sends a message to the product exchange under routingKey
type EventPublisher interface {
	Publish(ctx context.Context, message any, routingKey string) error
}

// ProductEvent is the payload announced for created and updated products
type ProductEvent struct {
	ProductID       uuid.UUID `json:"ProductID"`
	ProductName     string    `json:"ProductName"`
	Category        Category  `json:"Category"`
	UnitPrice       float64   `json:"UnitPrice"`
	QuantityInStock int       `json:"QuantityInStock"`
}

// ProductDeletedEvent is the payload announced when a product is removed
type ProductDeletedEvent struct {
	ProductID uuid.UUID `json:"ProductID"`
}

// NewProductEvent builds the event payload for p
func NewProductEvent(p *Product) ProductEvent {
	return ProductEvent{
		ProductID:       p.ProductID,
		ProductName:     p.ProductName,
		Category:        p.Category,
		UnitPrice:       p.UnitPrice,
		QuantityInStock: p.QuantityInStock,
	}
}
