package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mrops-br/products-catalog-api/internal/infrastructure/config"
)

// State is the lifecycle position of a ConnectionManager
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// ErrAlreadyStarted is returned by Start unless the manager is Stopped
var ErrAlreadyStarted = errors.New("rabbitmq: connection manager is not stopped")

// ConnectionManager owns the process's single broker connection and
// channel. It hands the channel to the Publisher on Start and takes it back
// on Stop. It never reconnects.
type ConnectionManager struct {
	mu        sync.Mutex
	state     State
	cfg       config.BrokerConfig
	dial      Dialer
	publisher *Publisher
	conn      Connection
	channel   Channel
	logger    *slog.Logger
}

// Option configures a ConnectionManager
type Option func(*ConnectionManager)

// WithDialer replaces DialAMQP
func WithDialer(d Dialer) Option {
	return func(m *ConnectionManager) {
		m.dial = d
	}
}

// NewConnectionManager creates a stopped manager that feeds publisher
func NewConnectionManager(cfg config.BrokerConfig, publisher *Publisher, logger *slog.Logger, opts ...Option) *ConnectionManager {
	m := &ConnectionManager{
		state:     StateStopped,
		cfg:       cfg,
		dial:      DialAMQP,
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state
func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the manager is running on an open connection
func (m *ConnectionManager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateRunning && m.conn != nil && !m.conn.IsClosed()
}

// Start opens one connection and one channel and assigns the channel to
// the publisher. On failure everything opened so far is closed and the
// manager returns to Stopped.
func (m *ConnectionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateStopped {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, state)
	}
	m.state = StateStarting
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Connecting to RabbitMQ",
		slog.String("host", m.cfg.Host),
		slog.Int("port", m.cfg.Port),
	)

	conn, err := m.dial(ctx, m.cfg)
	if err != nil {
		m.setState(StateStopped)
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		m.closeQuietly(ctx, "connection", conn.Close)
		m.setState(StateStopped)
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := m.publisher.assign(ch); err != nil {
		m.closeQuietly(ctx, "channel", ch.Close)
		m.closeQuietly(ctx, "connection", conn.Close)
		m.setState(StateStopped)
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.channel = ch
	m.state = StateRunning
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Connected to RabbitMQ")
	return nil
}

// Stop closes the channel and the connection, then takes the channel back
// from the publisher. Close failures are logged, never returned. Stop is a
// no-op unless the manager is Running.
func (m *ConnectionManager) Stop(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return
	}
	m.state = StateStopping
	ch, conn := m.channel, m.conn
	m.channel, m.conn = nil, nil
	m.mu.Unlock()

	// Closing first fails any publish stuck on the socket, so release never
	// waits on a stalled broker.
	m.closeQuietly(ctx, "channel", ch.Close)
	m.closeQuietly(ctx, "connection", conn.Close)

	m.publisher.release()

	m.setState(StateStopped)
	m.logger.InfoContext(ctx, "RabbitMQ connection closed")
}

func (m *ConnectionManager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *ConnectionManager) closeQuietly(ctx context.Context, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		m.logger.WarnContext(ctx, "Failed to close RabbitMQ "+what,
			slog.String("error", err.Error()),
		)
	}
}
