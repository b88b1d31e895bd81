package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mrops-br/products-catalog-api/internal/domain"
)

var columns = map[domain.Field]string{
	domain.FieldProductID:       "product_id",
	domain.FieldProductName:     "product_name",
	domain.FieldCategory:        "category",
	domain.FieldUnitPrice:       "unit_price",
	domain.FieldQuantityInStock: "quantity_in_stock",
}

// whereBuilder translates a domain.Spec into a parameterized WHERE
// expression. Values never reach the SQL text; they are collected in args
// and referenced as $n.
type whereBuilder struct {
	args []any
}

func buildWhere(spec domain.Spec) (string, []any, error) {
	b := &whereBuilder{}
	clause, err := b.build(spec)
	if err != nil {
		return "", nil, err
	}
	return clause, b.args, nil
}

func (b *whereBuilder) build(spec domain.Spec) (string, error) {
	switch spec.Kind() {
	case domain.OpAll:
		return "TRUE", nil
	case domain.OpEquals:
		col, ok := columns[spec.Field()]
		if !ok {
			return "", fmt.Errorf("unknown field %q", spec.Field())
		}
		value, err := columnValue(spec.Field(), spec.Value())
		if err != nil {
			return "", err
		}
		return col + " = " + b.bind(value), nil
	case domain.OpContains:
		col, err := textColumn(spec.Field())
		if err != nil {
			return "", err
		}
		text, _ := spec.Value().(string)
		return "strpos(lower(" + col + "), lower(" + b.bind(text) + ")) > 0", nil
	case domain.OpAnd:
		return b.join(spec.Children(), " AND ", "TRUE")
	case domain.OpOr:
		return b.join(spec.Children(), " OR ", "FALSE")
	}
	return "", fmt.Errorf("unsupported spec kind %s", spec.Kind())
}

func (b *whereBuilder) join(children []domain.Spec, sep, empty string) (string, error) {
	if len(children) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(children))
	for _, c := range children {
		clause, err := b.build(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+clause+")")
	}
	return strings.Join(parts, sep), nil
}

func (b *whereBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func textColumn(f domain.Field) (string, error) {
	switch f {
	case domain.FieldProductName, domain.FieldCategory:
		return columns[f], nil
	case domain.FieldProductID:
		return "product_id::text", nil
	}
	return "", fmt.Errorf("field %q does not support contains", f)
}

// columnValue checks the Go type of an equals operand against the field,
// mirroring what domain.Spec.Matches accepts.
func columnValue(f domain.Field, v any) (any, error) {
	switch f {
	case domain.FieldProductID:
		if id, ok := v.(uuid.UUID); ok {
			return id, nil
		}
	case domain.FieldProductName:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case domain.FieldCategory:
		switch c := v.(type) {
		case domain.Category:
			return string(c), nil
		case string:
			return c, nil
		}
	case domain.FieldUnitPrice:
		if p, ok := v.(float64); ok {
			return p, nil
		}
	case domain.FieldQuantityInStock:
		if q, ok := v.(int); ok {
			return q, nil
		}
	}
	return nil, fmt.Errorf("value of type %T cannot be compared with %q", v, f)
}
