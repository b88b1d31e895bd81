package dto

import (
	"github.com/google/uuid"
	"github.com/mrops-br/products-catalog-api/internal/domain"
)

// AddRequest represents the request to create a product
type AddRequest struct {
	ProductName     string          `json:"ProductName"`
	Category        domain.Category `json:"Category"`
	UnitPrice       float64         `json:"UnitPrice"`
	QuantityInStock int             `json:"QuantityInStock"`
}

// UpdateRequest represents the request to overwrite an existing product
type UpdateRequest struct {
	ProductID       uuid.UUID       `json:"ProductID"`
	ProductName     string          `json:"ProductName"`
	Category        domain.Category `json:"Category"`
	UnitPrice       float64         `json:"UnitPrice"`
	QuantityInStock int             `json:"QuantityInStock"`
}

// ProductResponse represents the product response
type ProductResponse struct {
	ProductID       uuid.UUID       `json:"ProductID"`
	ProductName     string          `json:"ProductName"`
	Category        domain.Category `json:"Category"`
	UnitPrice       float64         `json:"UnitPrice"`
	QuantityInStock int             `json:"QuantityInStock"`
}

// ToProduct maps an add request to a new entity without an id
func (r *AddRequest) ToProduct() *domain.Product {
	return &domain.Product{
		ProductName:     r.ProductName,
		Category:        r.Category,
		UnitPrice:       r.UnitPrice,
		QuantityInStock: r.QuantityInStock,
	}
}

// ToProduct maps an update request to the entity it overwrites
func (r *UpdateRequest) ToProduct() *domain.Product {
	return &domain.Product{
		ProductID:       r.ProductID,
		ProductName:     r.ProductName,
		Category:        r.Category,
		UnitPrice:       r.UnitPrice,
		QuantityInStock: r.QuantityInStock,
	}
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *domain.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{
		ProductID:       p.ProductID,
		ProductName:     p.ProductName,
		Category:        p.Category,
		UnitPrice:       p.UnitPrice,
		QuantityInStock: p.QuantityInStock,
	}
}

// ToProductResponseList converts a list of domain Products to ProductResponse list
func ToProductResponseList(products []*domain.Product) []*ProductResponse {
	responses := make([]*ProductResponse, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		responses = append(responses, ToProductResponse(p))
	}
	return responses
}
