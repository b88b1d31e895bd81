package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/products-catalog-api/internal/app/dto"
	"github.com/mrops-br/products-catalog-api/internal/app/validator"
	"github.com/mrops-br/products-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// publishTimeout bounds an event publish once it is detached from the
// request context
const publishTimeout = 5 * time.Second

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	publisher             domain.EventPublisher
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
	eventsPublished       metric.Int64Counter
}

// NewProductService creates a new product service. A nil publisher disables
// event publication.
func NewProductService(
	repo domain.ProductRepository,
	publisher domain.EventPublisher,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	eventsPublished, _ := meter.Int64Counter(
		"products.events.published",
		metric.WithDescription("Total number of product event publications"),
	)

	return &ProductService{
		repo:                  repo,
		publisher:             publisher,
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
		eventsPublished:       eventsPublished,
	}
}

// GetProducts returns every product. An empty store yields an empty list.
func (s *ProductService) GetProducts(ctx context.Context) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProducts")
	defer span.End()

	products, err := s.repo.GetAll(ctx)
	if err != nil {
		s.fail(ctx, span, "list", "Failed to list products", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.record(ctx, "list", "success")
	s.logger.InfoContext(ctx, "Products listed successfully",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products listed successfully")
	return dto.ToProductResponseList(products), nil
}

// GetProductsByCondition returns the products matching spec, never nil on success
func (s *ProductService) GetProductsByCondition(ctx context.Context, spec domain.Spec) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductsByCondition")
	defer span.End()

	span.SetAttributes(attribute.String("spec.kind", spec.Kind().String()))

	products, err := s.repo.GetAllByCondition(ctx, spec)
	if err != nil {
		s.fail(ctx, span, "search", "Failed to search products", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.record(ctx, "search", "success")

	span.SetStatus(codes.Ok, "Products searched successfully")
	return dto.ToProductResponseList(products), nil
}

// GetProductByCondition returns the first product matching spec, or nil
// when nothing matches.
func (s *ProductService) GetProductByCondition(ctx context.Context, spec domain.Spec) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByCondition")
	defer span.End()

	span.SetAttributes(attribute.String("spec.kind", spec.Kind().String()))

	product, err := s.repo.GetOneByCondition(ctx, spec)
	if err != nil {
		s.fail(ctx, span, "read", "Failed to read product", err)
		return nil, err
	}

	if product == nil {
		s.record(ctx, "read", "not_found")
		s.logger.DebugContext(ctx, "No product matched condition")
		span.SetStatus(codes.Ok, "Product not found")
		return nil, nil
	}

	span.SetAttributes(attribute.String("product.id", product.ProductID.String()))
	s.record(ctx, "read", "success")

	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductResponse(product), nil
}

// AddProduct validates and stores a new product. A nil response with a nil
// error means the repository declined the add.
func (s *ProductService) AddProduct(ctx context.Context, req *dto.AddRequest) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.AddProduct")
	defer span.End()

	if req == nil {
		err := fmt.Errorf("%w: add request is nil", ErrInvalidInput)
		s.fail(ctx, span, "create", "Invalid input", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("product.name", req.ProductName),
		attribute.Float64("product.price", req.UnitPrice),
	)

	if violations := validator.ValidateAdd(req); len(violations) > 0 {
		err := &ValidationError{Violations: violations}
		s.fail(ctx, span, "create", "Validation failed", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		s.fail(ctx, span, "create", "Request cancelled", err)
		return nil, err
	}

	added, err := s.repo.Add(ctx, req.ToProduct())
	if err != nil {
		s.fail(ctx, span, "create", "Failed to store product", err)
		return nil, err
	}

	if added == nil {
		s.record(ctx, "create", "declined")
		s.logger.WarnContext(ctx, "Repository declined product add",
			slog.String("name", req.ProductName),
		)
		span.SetStatus(codes.Error, "Repository declined add")
		return nil, nil
	}

	span.SetAttributes(attribute.String("product.id", added.ProductID.String()))
	s.productCreatedCounter.Add(ctx, 1)
	s.record(ctx, "create", "success")
	s.logger.InfoContext(ctx, "Product created successfully",
		slog.String("product_id", added.ProductID.String()),
	)

	s.publish(ctx, domain.ProductCreatedRoutingKey, domain.NewProductEvent(added))

	span.SetStatus(codes.Ok, "Product created successfully")
	return dto.ToProductResponse(added), nil
}

// UpdateProduct overwrites an existing product. The target must exist,
// otherwise ErrInvalidInput is returned. A nil response with a nil error
// means the record vanished between the lookup and the write.
func (s *ProductService) UpdateProduct(ctx context.Context, req *dto.UpdateRequest) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	if req == nil {
		err := fmt.Errorf("%w: update request is nil", ErrInvalidInput)
		s.fail(ctx, span, "update", "Invalid input", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("product.id", req.ProductID.String()))

	existing, err := s.repo.GetOneByCondition(ctx, domain.ByID(req.ProductID))
	if err != nil {
		s.fail(ctx, span, "update", "Failed to look up product", err)
		return nil, err
	}
	if existing == nil {
		err := fmt.Errorf("%w: product %s does not exist", ErrInvalidInput, req.ProductID)
		s.fail(ctx, span, "update", "Unknown product", err)
		return nil, err
	}

	if violations := validator.ValidateUpdate(req); len(violations) > 0 {
		err := &ValidationError{Violations: violations}
		s.fail(ctx, span, "update", "Validation failed", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		s.fail(ctx, span, "update", "Request cancelled", err)
		return nil, err
	}

	updated, err := s.repo.Update(ctx, req.ToProduct())
	if err != nil {
		s.fail(ctx, span, "update", "Failed to update product", err)
		return nil, err
	}

	if updated == nil {
		s.record(ctx, "update", "not_found")
		s.logger.WarnContext(ctx, "Product disappeared before update",
			slog.String("product_id", req.ProductID.String()),
		)
		span.SetStatus(codes.Error, "Product disappeared before update")
		return nil, nil
	}

	s.record(ctx, "update", "success")
	s.logger.InfoContext(ctx, "Product updated successfully",
		slog.String("product_id", updated.ProductID.String()),
	)

	s.publish(ctx, domain.ProductUpdatedRoutingKey, domain.NewProductEvent(updated))

	span.SetStatus(codes.Ok, "Product updated successfully")
	return dto.ToProductResponse(updated), nil
}

// DeleteProduct removes a product. Deleting an unknown id returns false.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id.String()))

	if id == uuid.Nil {
		err := fmt.Errorf("%w: product id is empty", ErrInvalidInput)
		s.fail(ctx, span, "delete", "Invalid input", err)
		return false, err
	}

	existing, err := s.repo.GetOneByCondition(ctx, domain.ByID(id))
	if err != nil {
		s.fail(ctx, span, "delete", "Failed to look up product", err)
		return false, err
	}
	if existing == nil {
		s.record(ctx, "delete", "not_found")
		s.logger.WarnContext(ctx, "Product not found for deletion",
			slog.String("product_id", id.String()),
		)
		span.SetStatus(codes.Ok, "Product not found")
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		s.fail(ctx, span, "delete", "Request cancelled", err)
		return false, err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.fail(ctx, span, "delete", "Failed to delete product", err)
		return false, err
	}

	if !deleted {
		s.record(ctx, "delete", "not_found")
		span.SetStatus(codes.Ok, "Product not deleted")
		return false, nil
	}

	s.record(ctx, "delete", "success")
	s.logger.InfoContext(ctx, "Product deleted successfully",
		slog.String("product_id", id.String()),
	)

	s.publish(ctx, domain.ProductDeletedRoutingKey, domain.ProductDeletedEvent{ProductID: id})

	span.SetStatus(codes.Ok, "Product deleted successfully")
	return true, nil
}

// publish announces a committed change. Failures are logged and counted
// only; the write it follows is never undone.
func (s *ProductService) publish(ctx context.Context, routingKey string, message any) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "ProductService.publish")
	defer span.End()

	span.SetAttributes(attribute.String("messaging.routing_key", routingKey))

	result := "success"
	if err := s.publisher.Publish(ctx, message, routingKey); err != nil {
		result = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish event")
		s.logger.ErrorContext(ctx, "Failed to publish product event",
			slog.String("routing_key", routingKey),
			slog.String("error", err.Error()),
		)
	}

	s.eventsPublished.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("routing_key", routingKey),
			attribute.String("result", result),
		),
	)
}

func (s *ProductService) record(ctx context.Context, operation, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

func (s *ProductService) fail(ctx context.Context, span trace.Span, operation, status string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	s.logger.ErrorContext(ctx, status,
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	s.record(ctx, operation, "failure")
}
