// Package tcp adapts a blocking [net.Conn] to the [transport.Endpoint]
// contract using short read deadlines as a stand-in for readiness
// notifications.
package tcp

import (
	"io"
	"net"
	"sync"
	"time"

	"httpwire/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// DefaultPollInterval bounds how long a Fill call waits for bytes before
// reporting "no data ready".
const DefaultPollInterval = 50 * time.Millisecond

// Endpoint wraps a net.Conn. There is no reactor underneath, so
// RegisterReadInterest is a no-op: the owner's receive loop simply calls
// again and the next Fill waits out its poll interval.
type Endpoint struct {
	conn         net.Conn
	clock        clock.Clock
	pollInterval time.Duration

	mu     sync.Mutex
	closed bool
}

var _ transport.Endpoint = (*Endpoint)(nil)

func NewEndpoint(conn net.Conn, clk clock.Clock, pollInterval time.Duration) *Endpoint {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Endpoint{conn: conn, clock: clk, pollInterval: pollInterval}
}

func (e *Endpoint) Fill(p []byte) (int, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return 0, transport.ErrEndpointClosed
	}

	// Setting the deadline fails when the conn is already torn down; the
	// Read below surfaces the actual condition (EOF, closed, ...).
	_ = e.conn.SetReadDeadline(e.clock.Now().Add(e.pollInterval))

	n, err := e.conn.Read(p)
	if err == nil || n > 0 {
		return n, nil
	}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return 0, nil
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case errors.Is(err, net.ErrClosed):
		return 0, transport.ErrEndpointClosed
	}

	return 0, errors.Wrap(err, "reading from connection")
}

func (e *Endpoint) RegisterReadInterest() {}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	return errors.Wrap(e.conn.Close(), "closing connection")
}
