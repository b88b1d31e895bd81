package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mrops-br/products-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DBTX is the subset of *pgxpool.Pool the repository needs
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectColumns = "product_id, product_name, category, unit_price, quantity_in_stock"

const (
	insertProduct = `INSERT INTO products (` + selectColumns + `)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_id) DO NOTHING
RETURNING ` + selectColumns

	updateProduct = `UPDATE products
SET product_name = $2, category = $3, unit_price = $4, quantity_in_stock = $5, updated_at = now()
WHERE product_id = $1
RETURNING ` + selectColumns

	deleteProduct = `DELETE FROM products WHERE product_id = $1`
)

// ProductRepository stores products in PostgreSQL. Existence checks are
// folded into the mutating statements so each operation is one round trip.
type ProductRepository struct {
	db     DBTX
	tracer trace.Tracer
	logger *slog.Logger
}

// NewProductRepository creates a repository on db, usually a *pgxpool.Pool
func NewProductRepository(db DBTX, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		tracer: tracer,
		logger: logger,
	}
}

// GetAll returns every product in insertion order
func (r *ProductRepository) GetAll(ctx context.Context) ([]*domain.Product, error) {
	return r.GetAllByCondition(ctx, domain.All())
}

// GetAllByCondition returns the products matching spec in insertion order
func (r *ProductRepository) GetAllByCondition(ctx context.Context, spec domain.Spec) ([]*domain.Product, error) {
	ctx, span := r.startSpan(ctx, "ProductRepository.GetAllByCondition", "SELECT")
	defer span.End()

	where, args, err := buildWhere(spec)
	if err != nil {
		return nil, r.fail(span, err, "Invalid condition")
	}

	rows, err := r.db.Query(ctx, "SELECT "+selectColumns+" FROM products WHERE "+where+" ORDER BY created_at, product_id", args...)
	if err != nil {
		return nil, r.fail(span, fmt.Errorf("failed to query products: %w", err), "Query failed")
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, r.fail(span, fmt.Errorf("failed to read products: %w", err), "Scan failed")
	}
	if products == nil {
		products = make([]*domain.Product, 0)
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// GetOneByCondition returns the first product matching spec, or nil
func (r *ProductRepository) GetOneByCondition(ctx context.Context, spec domain.Spec) (*domain.Product, error) {
	ctx, span := r.startSpan(ctx, "ProductRepository.GetOneByCondition", "SELECT")
	defer span.End()

	where, args, err := buildWhere(spec)
	if err != nil {
		return nil, r.fail(span, err, "Invalid condition")
	}

	row := r.db.QueryRow(ctx, "SELECT "+selectColumns+" FROM products WHERE "+where+" ORDER BY created_at, product_id LIMIT 1", args...)
	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Ok, "Product not found")
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(span, fmt.Errorf("failed to query product: %w", err), "Query failed")
	}

	span.SetAttributes(attribute.String("product.id", product.ProductID.String()))
	span.SetStatus(codes.Ok, "Product found")
	return product, nil
}

// Add inserts product. A product whose id is already stored is declined
// with a nil result.
func (r *ProductRepository) Add(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.startSpan(ctx, "ProductRepository.Add", "INSERT")
	defer span.End()

	if product == nil {
		span.SetStatus(codes.Error, "Nil product")
		return nil, nil
	}

	id := product.ProductID
	if id == uuid.Nil {
		id = uuid.New()
	}
	span.SetAttributes(attribute.String("product.id", id.String()))

	row := r.db.QueryRow(ctx, insertProduct,
		id, product.ProductName, string(product.Category), product.UnitPrice, product.QuantityInStock)
	stored, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.WarnContext(ctx, "Product id already present, add declined",
			slog.String("product_id", id.String()),
		)
		span.SetStatus(codes.Error, "Duplicate product id")
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(span, fmt.Errorf("failed to insert product: %w", err), "Insert failed")
	}

	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", stored.ProductID.String()),
		slog.String("product_name", stored.ProductName),
	)
	span.SetStatus(codes.Ok, "Product created successfully")
	return stored, nil
}

// Update replaces the stored product with the same id. An unknown id
// yields a nil result.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.startSpan(ctx, "ProductRepository.Update", "UPDATE")
	defer span.End()

	if product == nil {
		return nil, nil
	}
	span.SetAttributes(attribute.String("product.id", product.ProductID.String()))

	row := r.db.QueryRow(ctx, updateProduct,
		product.ProductID, product.ProductName, string(product.Category), product.UnitPrice, product.QuantityInStock)
	updated, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Ok, "Product not found")
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(span, fmt.Errorf("failed to update product: %w", err), "Update failed")
	}

	span.SetStatus(codes.Ok, "Product updated successfully")
	return updated, nil
}

// Delete removes the product and reports whether a row was deleted
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := r.startSpan(ctx, "ProductRepository.Delete", "DELETE")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id.String()))

	tag, err := r.db.Exec(ctx, deleteProduct, id)
	if err != nil {
		return false, r.fail(span, fmt.Errorf("failed to delete product: %w", err), "Delete failed")
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Ok, "Product not found")
		return false, nil
	}

	r.logger.InfoContext(ctx, "Product deleted from repository",
		slog.String("product_id", id.String()),
	)
	span.SetStatus(codes.Ok, "Product deleted successfully")
	return true, nil
}

func (r *ProductRepository) startSpan(ctx context.Context, name, operation string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", "products"),
		),
	)
}

func (r *ProductRepository) fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p        domain.Product
		category string
	)
	if err := row.Scan(&p.ProductID, &p.ProductName, &category, &p.UnitPrice, &p.QuantityInStock); err != nil {
		return nil, err
	}
	p.Category = domain.Category(category)
	return &p, nil
}
