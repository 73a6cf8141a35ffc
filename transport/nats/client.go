package nats

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// Status is the small connection state machine a caller (health
// check, readiness probe) can read without reaching into the
// underlying *nats.Conn.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusCircuitOpen
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "disconnected"
	}
}

// Client owns one NATS connection and the circuit breaker guarding it.
// Publish trips the breaker after circuitThreshold consecutive failures
// and refuses further sends until backoff elapses.
type Client struct {
	url    string
	logger *slog.Logger

	conn atomic.Pointer[nats.Conn]

	status           atomic.Int32
	circuitFailures  atomic.Int32
	circuitThreshold int32
	backoff          atomic.Int64
	maxBackoff       time.Duration
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithLogger overrides the default logger, slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCircuitThreshold overrides how many consecutive publish failures
// trip the circuit breaker open. Defaults to 5.
func WithCircuitThreshold(n int32) Option {
	return func(c *Client) {
		if n > 0 {
			c.circuitThreshold = n
		}
	}
}

// WithMaxBackoff caps the circuit breaker's exponential backoff.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxBackoff = d
		}
	}
}

// NewClient constructs an unconnected Client. Connect must be called
// before Publish or Subscribe.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:              url,
		logger:           slog.Default(),
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
	}
	c.backoff.Store(int64(time.Second))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the configured server URL.
func (c *Client) URL() string { return c.url }

// Status reports the current connection state.
func (c *Client) Status() Status { return Status(c.status.Load()) }

// Connect dials the NATS server, registering handlers that flip Status
// on disconnect/reconnect/close.
func (c *Client) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.status.Store(int32(StatusDisconnected))
			if err != nil {
				c.logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.status.Store(int32(StatusConnected))
			c.resetCircuit()
			c.logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.status.Store(int32(StatusDisconnected))
		}),
	}

	conn, err := nats.Connect(c.url, opts...)
	if err != nil {
		c.recordFailure()
		return err
	}

	c.conn.Store(conn)
	c.status.Store(int32(StatusConnected))
	return nil
}

// Close drains and closes the underlying connection.
func (c *Client) Close() error {
	conn := c.conn.Load()
	if conn == nil {
		return nil
	}
	err := conn.Drain()
	c.status.Store(int32(StatusDisconnected))
	return err
}

// Publish sends data on subject, refusing to do so while the circuit
// breaker is open.
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	if c.Status() == StatusCircuitOpen {
		return ErrCircuitOpen
	}

	conn := c.conn.Load()
	if conn == nil {
		return ErrNotConnected
	}

	if err := conn.Publish(subject, data); err != nil {
		c.recordFailure()
		return err
	}
	c.circuitFailures.Store(0)
	return nil
}

// Subscribe registers handler for every message delivered on subject.
// The subscription is torn down when ctx is canceled.
func (c *Client) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	conn := c.conn.Load()
	if conn == nil {
		return ErrNotConnected
	}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(ctx, msg.Data)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// recordFailure trips the circuit breaker after circuitThreshold
// consecutive publish failures and schedules a half-open retest after
// the current backoff, doubling it for next time.
func (c *Client) recordFailure() {
	failures := c.circuitFailures.Add(1)
	if failures < c.circuitThreshold {
		return
	}

	if c.status.CompareAndSwap(int32(StatusConnected), int32(StatusCircuitOpen)) ||
		c.status.CompareAndSwap(int32(StatusDisconnected), int32(StatusCircuitOpen)) {
		backoff := time.Duration(c.backoff.Load())
		next := backoff * 2
		if next > c.maxBackoff {
			next = c.maxBackoff
		}
		c.backoff.Store(int64(next))
		c.circuitFailures.Store(0)
		time.AfterFunc(backoff, c.testCircuit)
	}
}

// resetCircuit clears the breaker's failure count and backoff, called
// on a successful reconnect.
func (c *Client) resetCircuit() {
	c.circuitFailures.Store(0)
	c.backoff.Store(int64(time.Second))
}

// testCircuit half-opens the breaker so the next Publish attempt can
// prove the connection recovered.
func (c *Client) testCircuit() {
	c.status.CompareAndSwap(int32(StatusCircuitOpen), int32(StatusDisconnected))
}
