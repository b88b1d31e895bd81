package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrops-br/products-catalog-api/internal/infrastructure/config"
)

var brokerCfg = config.BrokerConfig{
	Host:            "localhost",
	Port:            5672,
	Username:        "guest",
	Password:        "guest",
	ProductExchange: "products.exchange",
}

func dialerFor(conn *fakeConnection, err error, calls *int) Dialer {
	return func(ctx context.Context, cfg config.BrokerConfig) (Connection, error) {
		if calls != nil {
			*calls++
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

func TestStartAssignsChannel(t *testing.T) {
	ch := &fakeChannel{}
	conn := &fakeConnection{channel: ch}
	pub := testPublisher(brokerCfg.ProductExchange)
	m := NewConnectionManager(brokerCfg, pub, testLogger(), WithDialer(dialerFor(conn, nil, nil)))

	assert.Equal(t, StateStopped, m.State())
	assert.False(t, m.Ready())

	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, StateRunning, m.State())
	assert.True(t, m.Ready())
	assert.True(t, pub.Ready())

	require.NoError(t, pub.Publish(context.Background(), "hello", "product.created"))
	assert.Equal(t, 1, ch.publishedCount())
}

func TestStartTwiceFails(t *testing.T) {
	calls := 0
	conn := &fakeConnection{channel: &fakeChannel{}}
	m := NewConnectionManager(brokerCfg, testPublisher("ex"), testLogger(), WithDialer(dialerFor(conn, nil, &calls)))

	require.NoError(t, m.Start(context.Background()))
	err := m.Start(context.Background())

	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateRunning, m.State())
}

func TestStartDialFailure(t *testing.T) {
	pub := testPublisher("ex")
	m := NewConnectionManager(brokerCfg, pub, testLogger(), WithDialer(dialerFor(nil, errors.New("connection refused"), nil)))

	err := m.Start(context.Background())

	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, StateStopped, m.State())
	assert.False(t, pub.Ready())
}

func TestStartChannelFailureClosesConnection(t *testing.T) {
	conn := &fakeConnection{channelErr: errors.New("channel limit")}
	pub := testPublisher("ex")
	m := NewConnectionManager(brokerCfg, pub, testLogger(), WithDialer(dialerFor(conn, nil, nil)))

	err := m.Start(context.Background())

	assert.ErrorContains(t, err, "channel limit")
	assert.True(t, conn.closed)
	assert.Equal(t, StateStopped, m.State())
	assert.False(t, pub.Ready())
}

func TestStopClosesChannelThenConnection(t *testing.T) {
	var events []string
	ch := &fakeChannel{events: &events}
	conn := &fakeConnection{channel: ch, events: &events}
	pub := testPublisher("ex")
	m := NewConnectionManager(brokerCfg, pub, testLogger(), WithDialer(dialerFor(conn, nil, nil)))

	require.NoError(t, m.Start(context.Background()))
	m.Stop(context.Background())

	assert.Equal(t, []string{"channel.close", "connection.close"}, events)
	assert.Equal(t, StateStopped, m.State())
	assert.False(t, m.Ready())
	assert.ErrorIs(t, pub.Publish(context.Background(), "late", "k"), ErrNotReady)
}

func TestStopFailsStalledPublish(t *testing.T) {
	ch := &fakeChannel{stall: make(chan struct{}), stalled: make(chan struct{}, 1)}
	conn := &fakeConnection{channel: ch}
	pub := testPublisher("ex")
	m := NewConnectionManager(brokerCfg, pub, testLogger(), WithDialer(dialerFor(conn, nil, nil)))
	require.NoError(t, m.Start(context.Background()))

	published := make(chan error, 1)
	go func() {
		published <- pub.Publish(context.Background(), "slow", "product.created")
	}()
	<-ch.stalled

	stopped := make(chan struct{})
	go func() {
		m.Stop(context.Background())
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked behind a stalled publish")
	}
	assert.ErrorIs(t, <-published, amqp.ErrClosed)
	assert.Equal(t, StateStopped, m.State())
	assert.False(t, pub.Ready())
}

func TestStopIgnoresCloseErrors(t *testing.T) {
	ch := &fakeChannel{closeErr: errors.New("already closed")}
	conn := &fakeConnection{channel: ch, closeErr: errors.New("broken pipe")}
	m := NewConnectionManager(brokerCfg, testPublisher("ex"), testLogger(), WithDialer(dialerFor(conn, nil, nil)))

	require.NoError(t, m.Start(context.Background()))

	assert.NotPanics(t, func() { m.Stop(context.Background()) })
	assert.True(t, ch.closed)
	assert.True(t, conn.closed)
	assert.Equal(t, StateStopped, m.State())
}

func TestStopWhenStoppedIsNoop(t *testing.T) {
	m := NewConnectionManager(brokerCfg, testPublisher("ex"), testLogger(), WithDialer(dialerFor(nil, errors.New("unused"), nil)))

	m.Stop(context.Background())
	assert.Equal(t, StateStopped, m.State())
}

func TestRestartAfterStop(t *testing.T) {
	calls := 0
	conn := &fakeConnection{channel: &fakeChannel{}}
	pub := testPublisher("ex")
	m := NewConnectionManager(brokerCfg, pub, testLogger(), WithDialer(dialerFor(conn, nil, &calls)))

	require.NoError(t, m.Start(context.Background()))
	m.Stop(context.Background())
	conn.closed = false
	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, 2, calls)
	assert.True(t, pub.Ready())
}

func TestReadyFalseWhenConnectionDrops(t *testing.T) {
	conn := &fakeConnection{channel: &fakeChannel{}}
	m := NewConnectionManager(brokerCfg, testPublisher("ex"), testLogger(), WithDialer(dialerFor(conn, nil, nil)))

	require.NoError(t, m.Start(context.Background()))
	conn.closed = true

	assert.False(t, m.Ready())
	assert.Equal(t, StateRunning, m.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "unknown", State(42).String())
}
