package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrops-br/products-catalog-api/internal/infrastructure/jsoncodec"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNotReady is returned by Publish before the connection manager has
	// handed over a channel, or after it has taken it back.
	ErrNotReady = errors.New("rabbitmq: channel is not set")

	errChannelAssigned = errors.New("rabbitmq: channel already assigned")
)

// Publisher sends JSON messages to one durable direct exchange over the
// channel owned by ConnectionManager. Publishes are serialized so the
// shared channel never sees interleaved frames.
type Publisher struct {
	mu       sync.Mutex
	channel  Channel
	exchange string
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewPublisher creates a publisher for exchange. It is not ready until a
// ConnectionManager assigns it a channel.
func NewPublisher(exchange string, tracer trace.Tracer, logger *slog.Logger) *Publisher {
	return &Publisher{
		exchange: exchange,
		tracer:   tracer,
		logger:   logger,
	}
}

// Ready reports whether a channel has been assigned
func (p *Publisher) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel != nil
}

func (p *Publisher) assign(ch Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		return errChannelAssigned
	}
	p.channel = ch
	return nil
}

// release drops the channel once any in-flight publish has returned
func (p *Publisher) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = nil
}

// Publish encodes message as JSON, declares the exchange and publishes the
// payload under routingKey. There is no confirm wait and no retry.
func (p *Publisher) Publish(ctx context.Context, message any, routingKey string) error {
	ctx, span := p.tracer.Start(ctx, "Publisher.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", p.exchange),
		attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
	)

	p.mu.Lock()
	defer p.mu.Unlock()

	// The deadline may have passed while queued behind another publish
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Publish abandoned")
		return err
	}

	if p.channel == nil {
		span.RecordError(ErrNotReady)
		span.SetStatus(codes.Error, "Channel not ready")
		return ErrNotReady
	}

	body, err := jsoncodec.Marshal(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to encode message")
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := p.channel.ExchangeDeclare(p.exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to declare exchange")
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	publishing := amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    newMessageID(),
		Timestamp:    time.Now(),
		Body:         body,
	}

	p.logger.InfoContext(ctx, "Publishing message",
		slog.String("exchange", p.exchange),
		slog.String("routing_key", routingKey),
		slog.String("message_id", publishing.MessageId),
	)
	p.logger.DebugContext(ctx, "Message body", slog.String("body", string(body)))

	if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, publishing); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish message")
		return fmt.Errorf("failed to publish to %s/%s: %w", p.exchange, routingKey, err)
	}

	span.SetStatus(codes.Ok, "Message published")
	return nil
}
