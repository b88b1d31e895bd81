package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/mrops-br/products-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductRepository is an in-memory implementation of domain.ProductRepository.
// Products are returned in insertion order and always as copies.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*domain.Product
	order    []uuid.UUID
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewProductRepository creates a new in-memory product repository
func NewProductRepository(tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
		tracer:   tracer,
		logger:   logger,
	}
}

// GetAll returns every stored product
func (r *ProductRepository) GetAll(ctx context.Context) ([]*domain.Product, error) {
	return r.GetAllByCondition(ctx, domain.All())
}

// GetAllByCondition returns the products matching spec
func (r *ProductRepository) GetAllByCondition(ctx context.Context, spec domain.Spec) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetAllByCondition")
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context done")
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*domain.Product, 0)
	for _, id := range r.order {
		if p := r.products[id]; spec.Matches(p) {
			products = append(products, p.Clone())
		}
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	r.logger.DebugContext(ctx, "Products retrieved from repository",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// GetOneByCondition returns the first product matching spec, or nil
func (r *ProductRepository) GetOneByCondition(ctx context.Context, spec domain.Spec) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetOneByCondition")
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context done")
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := spec.EqualsID(); ok {
		span.SetStatus(codes.Ok, "Lookup by id")
		return r.products[id].Clone(), nil
	}

	for _, id := range r.order {
		if p := r.products[id]; spec.Matches(p) {
			span.SetAttributes(attribute.String("product.id", id.String()))
			span.SetStatus(codes.Ok, "Product found")
			return p.Clone(), nil
		}
	}

	span.SetStatus(codes.Ok, "Product not found")
	return nil, nil
}

// Add stores a new product, assigning an id when it has none
func (r *ProductRepository) Add(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Add")
	defer span.End()

	if product == nil {
		span.SetStatus(codes.Error, "Nil product")
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context done")
		return nil, err
	}

	stored := product.Clone()
	if stored.ProductID == uuid.Nil {
		stored.ProductID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[stored.ProductID]; exists {
		r.logger.WarnContext(ctx, "Product id already present, add declined",
			slog.String("product_id", stored.ProductID.String()),
		)
		span.SetStatus(codes.Error, "Duplicate product id")
		return nil, nil
	}

	r.products[stored.ProductID] = stored
	r.order = append(r.order, stored.ProductID)

	span.SetAttributes(
		attribute.String("product.id", stored.ProductID.String()),
		attribute.String("product.name", stored.ProductName),
	)
	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", stored.ProductID.String()),
		slog.String("product_name", stored.ProductName),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return stored.Clone(), nil
}

// Update overwrites the mutable fields of an existing product
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	if product == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context done")
		return nil, err
	}

	span.SetAttributes(attribute.String("product.id", product.ProductID.String()))

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ProductID]
	if !ok {
		span.SetStatus(codes.Ok, "Product not found")
		return nil, nil
	}

	existing.ProductName = product.ProductName
	existing.Category = product.Category
	existing.UnitPrice = product.UnitPrice
	existing.QuantityInStock = product.QuantityInStock

	span.SetStatus(codes.Ok, "Product updated successfully")
	return existing.Clone(), nil
}

// Delete removes a product and reports whether it existed
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id.String()))

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context done")
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		span.SetStatus(codes.Ok, "Product not found")
		return false, nil
	}

	delete(r.products, id)
	if idx := slices.Index(r.order, id); idx >= 0 {
		r.order = slices.Delete(r.order, idx, idx+1)
	}

	r.logger.InfoContext(ctx, "Product deleted from repository",
		slog.String("product_id", id.String()),
	)

	span.SetStatus(codes.Ok, "Product deleted successfully")
	return true, nil
}
