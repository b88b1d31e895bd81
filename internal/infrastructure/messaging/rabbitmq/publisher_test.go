package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productCreated struct {
	ProductName string `json:"ProductName"`
	UnitPrice   float64
}

func TestPublishBeforeAssignment(t *testing.T) {
	p := testPublisher("products.exchange")

	err := p.Publish(context.Background(), productCreated{ProductName: "x"}, "product.created")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.False(t, p.Ready())
}

func TestPublish(t *testing.T) {
	p := testPublisher("products.exchange")
	ch := &fakeChannel{}
	require.NoError(t, p.assign(ch))
	assert.True(t, p.Ready())

	err := p.Publish(context.Background(), productCreated{ProductName: "Widget", UnitPrice: 2.5}, "product.created")
	require.NoError(t, err)

	require.Len(t, ch.declared, 1)
	assert.Equal(t, declaredExchange{name: "products.exchange", kind: "direct", durable: true}, ch.declared[0])

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "products.exchange", got.exchange)
	assert.Equal(t, "product.created", got.routingKey)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Len(t, got.msg.MessageId, 26)
	assert.False(t, got.msg.Timestamp.IsZero())
	assert.JSONEq(t, `{"ProductName":"Widget","UnitPrice":2.5}`, string(got.msg.Body))
}

func TestPublishMessageIDsAreUnique(t *testing.T) {
	p := testPublisher("ex")
	ch := &fakeChannel{}
	require.NoError(t, p.assign(ch))

	require.NoError(t, p.Publish(context.Background(), 1, "k"))
	require.NoError(t, p.Publish(context.Background(), 2, "k"))

	assert.NotEqual(t, ch.published[0].msg.MessageId, ch.published[1].msg.MessageId)
}

func TestPublishExchangeDeclareFailure(t *testing.T) {
	p := testPublisher("ex")
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	require.NoError(t, p.assign(ch))

	err := p.Publish(context.Background(), "m", "k")
	assert.ErrorContains(t, err, "access refused")
	assert.Zero(t, ch.publishedCount())
}

func TestPublishBrokerFailure(t *testing.T) {
	p := testPublisher("ex")
	ch := &fakeChannel{publishErr: amqp.ErrClosed}
	require.NoError(t, p.assign(ch))

	err := p.Publish(context.Background(), "m", "k")
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestPublishExpiredContext(t *testing.T) {
	p := testPublisher("ex")
	ch := &fakeChannel{}
	require.NoError(t, p.assign(ch))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, "m", "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ch.declared)
	assert.Zero(t, ch.publishedCount())
}

func TestPublishUnencodableMessage(t *testing.T) {
	p := testPublisher("ex")
	ch := &fakeChannel{}
	require.NoError(t, p.assign(ch))

	err := p.Publish(context.Background(), make(chan int), "k")
	assert.Error(t, err)
	assert.Empty(t, ch.declared)
	assert.Zero(t, ch.publishedCount())
}

func TestAssignIsSingleShot(t *testing.T) {
	p := testPublisher("ex")
	require.NoError(t, p.assign(&fakeChannel{}))
	assert.Error(t, p.assign(&fakeChannel{}))

	p.release()
	assert.False(t, p.Ready())
	assert.ErrorIs(t, p.Publish(context.Background(), "m", "k"), ErrNotReady)
}

func TestConcurrentPublishesAreSerialized(t *testing.T) {
	p := testPublisher("ex")
	ch := &fakeChannel{}
	require.NoError(t, p.assign(ch))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, p.Publish(context.Background(), i, "k"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, ch.publishedCount())
	assert.False(t, ch.overlapSeen.Load())
}

func TestHeaderCarrier(t *testing.T) {
	c := headerCarrier(amqp.Table{"n": 1})
	c.Set("traceparent", "abc")

	assert.Equal(t, "abc", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("n"))
	assert.ElementsMatch(t, []string{"n", "traceparent"}, c.Keys())
}
