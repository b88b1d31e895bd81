package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/products-catalog-api/internal/domain"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/jsoncodec"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefix = "product:"

	// tombstone replaces the entry of a product that was just updated or
	// deleted. Fills use SET NX, so a read that raced the write cannot put
	// the old row back while the tombstone lives.
	tombstone    = "-"
	tombstoneTTL = time.Minute
)

// ProductRepository is a read-through Redis cache in front of another
// domain.ProductRepository. Only lookups by id are cached; updates and
// deletes replace the entry with a tombstone. Redis failures are logged and
// never surface to callers, the wrapped repository stays the source of truth.
type ProductRepository struct {
	domain.ProductRepository

	client redis.Cmdable
	ttl    time.Duration
	tracer trace.Tracer
	logger *slog.Logger
}

// NewProductRepository wraps next with a cache entry per product id that
// lives for ttl
func NewProductRepository(next domain.ProductRepository, client redis.Cmdable, ttl time.Duration, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		ProductRepository: next,
		client:            client,
		ttl:               ttl,
		tracer:            tracer,
		logger:            logger,
	}
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// GetOneByCondition serves id lookups from Redis, filling the entry on a
// miss. Other conditions go straight to the wrapped repository.
func (r *ProductRepository) GetOneByCondition(ctx context.Context, spec domain.Spec) (*domain.Product, error) {
	id, ok := spec.EqualsID()
	if !ok {
		return r.ProductRepository.GetOneByCondition(ctx, spec)
	}

	ctx, span := r.tracer.Start(ctx, "ProductCache.GetOneByCondition")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id.String()))

	cached, buried := r.lookup(ctx, id)
	if cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	span.SetAttributes(
		attribute.Bool("cache.hit", false),
		attribute.Bool("cache.tombstone", buried),
	)

	p, err := r.ProductRepository.GetOneByCondition(ctx, spec)
	if err != nil || p == nil || buried {
		return p, err
	}

	r.store(ctx, p)
	return p, nil
}

// Update writes through to the wrapped repository and buries the cached
// entry of the updated product
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	updated, err := r.ProductRepository.Update(ctx, product)
	if err == nil && updated != nil {
		r.bury(ctx, updated.ProductID)
	}
	return updated, err
}

// Delete removes the product from the wrapped repository and buries its
// cached entry
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := r.ProductRepository.Delete(ctx, id)
	if err == nil && deleted {
		r.bury(ctx, id)
	}
	return deleted, err
}

// lookup returns the cached product, or whether the entry is a tombstone
func (r *ProductRepository) lookup(ctx context.Context, id uuid.UUID) (*domain.Product, bool) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to read product from cache",
			slog.String("key", key(id)),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if string(data) == tombstone {
		return nil, true
	}

	var p domain.Product
	if err := jsoncodec.Unmarshal(data, &p); err != nil {
		r.logger.WarnContext(ctx, "Discarding unreadable cache entry",
			slog.String("key", key(id)),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return &p, false
}

func (r *ProductRepository) store(ctx context.Context, p *domain.Product) {
	data, err := jsoncodec.Marshal(p)
	if err != nil {
		return
	}
	if err := r.client.SetNX(ctx, key(p.ProductID), data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "Failed to cache product",
			slog.String("key", key(p.ProductID)),
			slog.String("error", err.Error()),
		)
	}
}

func (r *ProductRepository) bury(ctx context.Context, id uuid.UUID) {
	if err := r.client.Set(ctx, key(id), tombstone, tombstoneTTL).Err(); err != nil {
		r.logger.WarnContext(ctx, "Failed to bury product cache entry",
			slog.String("key", key(id)),
			slog.String("error", err.Error()),
		)
	}
}
