package rabbitmq

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace/noop"
)

type declaredExchange struct {
	name    string
	kind    string
	durable bool
}

type publishedMessage struct {
	exchange   string
	routingKey string
	msg        amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []declaredExchange
	published  []publishedMessage
	declareErr error
	publishErr error
	closeErr   error
	closed     bool
	events     *[]string

	// stall, when set, holds PublishWithContext until Close, like a write
	// on a wedged socket. stalled is signalled once a publish is held.
	stall   chan struct{}
	stalled chan struct{}
	unstall sync.Once

	inFlight    atomic.Int32
	overlapSeen atomic.Bool
}

func (c *fakeChannel) enter() func() {
	if c.inFlight.Add(1) > 1 {
		c.overlapSeen.Store(true)
	}
	return func() { c.inFlight.Add(-1) }
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	defer c.enter()()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.declareErr != nil {
		return c.declareErr
	}
	c.declared = append(c.declared, declaredExchange{name: name, kind: kind, durable: durable})
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	defer c.enter()()
	if c.stall != nil {
		c.stalled <- struct{}{}
		<-c.stall
		return amqp.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, publishedMessage{exchange: exchange, routingKey: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.unstall.Do(func() {
		if c.stall != nil {
			close(c.stall)
		}
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.events != nil {
		*c.events = append(*c.events, "channel.close")
	}
	return c.closeErr
}

func (c *fakeChannel) publishedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

type fakeConnection struct {
	channel    *fakeChannel
	channelErr error
	closeErr   error
	closed     bool
	events     *[]string
}

func (c *fakeConnection) Channel() (Channel, error) {
	if c.channelErr != nil {
		return nil, c.channelErr
	}
	return c.channel, nil
}

func (c *fakeConnection) IsClosed() bool {
	return c.closed
}

func (c *fakeConnection) Close() error {
	c.closed = true
	if c.events != nil {
		*c.events = append(*c.events, "connection.close")
	}
	return c.closeErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPublisher(exchange string) *Publisher {
	return NewPublisher(exchange, noop.NewTracerProvider().Tracer("test"), testLogger())
}
