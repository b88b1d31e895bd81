// Package validator checks add/update product requests against the field
// rules shared by the HTTP boundary and the product service.
package validator

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/mrops-br/products-catalog-api/internal/app/dto"
	"github.com/mrops-br/products-catalog-api/internal/domain"
)

// MaxQuantityInStock is the largest quantity the store accepts
const MaxQuantityInStock = math.MaxInt32

var (
	msgProductIDRequired   = "ProductID is required."
	msgProductNameRequired = "Product name is required."
	msgInvalidCategory     = "Invalid category."
	msgUnitPriceRange      = fmt.Sprintf("Price should be between 0 to %v", math.MaxFloat64)
	msgQuantityRange       = fmt.Sprintf("Quantity in Stock should be between 0 to %d", MaxQuantityInStock)
)

// Violation is a single failed field rule
type Violation struct {
	Field   string
	Message string
}

// ValidateAdd returns the ordered violations of req; empty means valid
func ValidateAdd(req *dto.AddRequest) []Violation {
	if req == nil {
		return nil
	}
	return validateFields(req.ProductName, req.Category, req.UnitPrice, req.QuantityInStock, nil)
}

// ValidateUpdate is ValidateAdd plus a non-nil ProductID. Whether the id
// exists is not checked here.
func ValidateUpdate(req *dto.UpdateRequest) []Violation {
	if req == nil {
		return nil
	}

	var violations []Violation
	if req.ProductID == uuid.Nil {
		violations = append(violations, Violation{Field: string(domain.FieldProductID), Message: msgProductIDRequired})
	}
	return validateFields(req.ProductName, req.Category, req.UnitPrice, req.QuantityInStock, violations)
}

func validateFields(name string, category domain.Category, price float64, qty int, violations []Violation) []Violation {
	if strings.TrimSpace(name) == "" {
		violations = append(violations, Violation{Field: string(domain.FieldProductName), Message: msgProductNameRequired})
	}
	if !category.IsValid() {
		violations = append(violations, Violation{Field: string(domain.FieldCategory), Message: msgInvalidCategory})
	}
	// NaN fails both comparisons
	if !(price >= 0 && price <= math.MaxFloat64) {
		violations = append(violations, Violation{Field: string(domain.FieldUnitPrice), Message: msgUnitPriceRange})
	}
	if qty < 0 || qty > MaxQuantityInStock {
		violations = append(violations, Violation{Field: string(domain.FieldQuantityInStock), Message: msgQuantityRange})
	}
	return violations
}

// Messages flattens violations into their messages, preserving order
func Messages(violations []Violation) []string {
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.Message
	}
	return msgs
}

// FieldMap groups violation messages by field
func FieldMap(violations []Violation) map[string][]string {
	out := make(map[string][]string, len(violations))
	for _, v := range violations {
		out[v.Field] = append(out[v.Field], v.Message)
	}
	return out
}
