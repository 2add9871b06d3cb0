package client

import (
	"log/slog"
	"sync"
	"time"

	"httpwire/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Conn is the receive-side view of a connection: the endpoint, the single
// exchange slot, and the shutdown/closed flags. The sending half and pooling
// live elsewhere and only interact with this type through its methods.
type Conn struct {
	ep     transport.Endpoint
	logger *slog.Logger
	clock  clock.Clock

	mu       sync.Mutex
	exchange *Exchange
	shutdown bool
	closed   bool
	idleAt   time.Time
}

func NewConn(ep transport.Endpoint, logger *slog.Logger, clk clock.Clock) *Conn {
	return &Conn{
		ep:     ep,
		logger: logger,
		clock:  clk,
		idleAt: clk.Now(),
	}
}

func (c *Conn) Endpoint() transport.Endpoint { return c.ep }

// InstallExchange associates an exchange with the receive side. It must
// happen before the first byte of the response is expected. At most one
// exchange may be installed at a time, and none after the peer signaled
// shutdown.
func (c *Conn) InstallExchange(ex *Exchange) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrConnClosed
	case c.shutdown:
		return ErrConnShutdown
	case c.exchange != nil:
		return errors.Wrapf(ErrExchangeInstalled, "installing exchange %s", ex.ID())
	}

	c.exchange = ex
	c.idleAt = time.Time{} // To mark it as non-idle.
	return nil
}

// Exchange returns the installed exchange, if any. Callers must handle the
// "no exchange" case: the slot may be cleared asynchronously at any time.
func (c *Conn) Exchange() (*Exchange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchange, c.exchange != nil
}

// DetachExchange clears the exchange slot and starts the idle clock.
func (c *Conn) DetachExchange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
}

func (c *Conn) detachLocked() {
	if c.exchange == nil {
		return
	}
	c.exchange = nil
	c.idleAt = c.clock.Now()
}

func (c *Conn) markShutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
}

// IsShutdown reports whether the peer signaled an orderly half-close.
func (c *Conn) IsShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close tears the connection down. Further fill/parse activity stops; closing
// twice is a no-op.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.detachLocked()

	if err := c.ep.Close(); err != nil {
		c.logger.Warn("closing endpoint", "err", err)
	}
}

// IdleFor reports whether the connection has had no exchange installed for at
// least timeout. Used by a pool layer to reap stale connections.
func (c *Conn) IdleFor(timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idleAt.IsZero() {
		return false
	}

	return c.clock.Since(c.idleAt) >= timeout
}
