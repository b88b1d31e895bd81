package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Field names a filterable product attribute
type Field string

const (
	FieldProductID       Field = "ProductID"
	FieldProductName     Field = "ProductName"
	FieldCategory        Field = "Category"
	FieldUnitPrice       Field = "UnitPrice"
	FieldQuantityInStock Field = "QuantityInStock"
)

// Op is the kind of a Spec node
type Op int

const (
	OpAll Op = iota
	OpEquals
	OpContains
	OpAnd
	OpOr
)

func (o Op) String() string {
	switch o {
	case OpAll:
		return "all"
	case OpEquals:
		return "equals"
	case OpContains:
		return "contains"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	}
	return "unknown"
}

// Spec is a composable filter over products. The zero value matches every
// product. Repository adapters either evaluate it with Matches or translate
// it into their native query form by walking Op, Field, Value and Children.
type Spec struct {
	op       Op
	field    Field
	value    any
	children []Spec
}

// All matches every product
func All() Spec {
	return Spec{op: OpAll}
}

// Equals matches products whose field equals value. Accepted value types
// are uuid.UUID for ProductID, string for ProductName, Category or string
// for Category, float64 for UnitPrice and int for QuantityInStock.
func Equals(field Field, value any) Spec {
	return Spec{op: OpEquals, field: field, value: value}
}

// Contains matches products whose string field contains text, ignoring case
func Contains(field Field, text string) Spec {
	return Spec{op: OpContains, field: field, value: text}
}

// And matches when every child matches. With no children it matches all.
func And(specs ...Spec) Spec {
	return Spec{op: OpAnd, children: specs}
}

// Or matches when any child matches. With no children it matches nothing.
func Or(specs ...Spec) Spec {
	return Spec{op: OpOr, children: specs}
}

// ByID is shorthand for Equals(FieldProductID, id)
func ByID(id uuid.UUID) Spec {
	return Equals(FieldProductID, id)
}

// Kind returns the node kind
func (s Spec) Kind() Op { return s.op }

// Field returns the compared field for equals/contains nodes
func (s Spec) Field() Field { return s.field }

// Value returns the compared value for equals/contains nodes
func (s Spec) Value() any { return s.value }

// Children returns the operands of and/or nodes
func (s Spec) Children() []Spec { return s.children }

// EqualsID reports the id when s is exactly ByID(id)
func (s Spec) EqualsID() (uuid.UUID, bool) {
	if s.op != OpEquals || s.field != FieldProductID {
		return uuid.Nil, false
	}
	id, ok := s.value.(uuid.UUID)
	return id, ok
}

// Matches evaluates the spec against p
func (s Spec) Matches(p *Product) bool {
	if p == nil {
		return false
	}

	switch s.op {
	case OpAll:
		return true
	case OpEquals:
		return equalsField(p, s.field, s.value)
	case OpContains:
		text, _ := s.value.(string)
		v, ok := stringField(p, s.field)
		return ok && strings.Contains(strings.ToLower(v), strings.ToLower(text))
	case OpAnd:
		for _, c := range s.children {
			if !c.Matches(p) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range s.children {
			if c.Matches(p) {
				return true
			}
		}
		return false
	}
	return false
}

func stringField(p *Product, f Field) (string, bool) {
	switch f {
	case FieldProductName:
		return p.ProductName, true
	case FieldCategory:
		return string(p.Category), true
	case FieldProductID:
		return p.ProductID.String(), true
	}
	return "", false
}

func equalsField(p *Product, f Field, value any) bool {
	switch f {
	case FieldProductID:
		id, ok := value.(uuid.UUID)
		return ok && p.ProductID == id
	case FieldProductName:
		name, ok := value.(string)
		return ok && p.ProductName == name
	case FieldCategory:
		switch v := value.(type) {
		case Category:
			return p.Category == v
		case string:
			return string(p.Category) == v
		}
	case FieldUnitPrice:
		price, ok := value.(float64)
		return ok && p.UnitPrice == price
	case FieldQuantityInStock:
		qty, ok := value.(int)
		return ok && p.QuantityInStock == qty
	}
	return false
}
