package client

import (
	"io"
	"log/slog"
	"testing"
	"time"

	endpointtest "httpwire/transport/test"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(clk clock.Clock) (*Conn, *endpointtest.ScriptedEndpoint) {
	endpoint := endpointtest.NewScriptedEndpoint()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConn(endpoint, logger, clk), endpoint
}

func TestConnInstallExchange(t *testing.T) {
	conn, _ := newTestConn(clock.NewMock())

	first := NewExchange("GET")
	require.NoError(t, conn.InstallExchange(first))

	installed, ok := conn.Exchange()
	require.True(t, ok)
	assert.Same(t, first, installed)

	// The slot holds one exchange at a time.
	err := conn.InstallExchange(NewExchange("GET"))
	assert.ErrorIs(t, err, ErrExchangeInstalled)

	conn.DetachExchange()
	_, ok = conn.Exchange()
	assert.False(t, ok)
	assert.NoError(t, conn.InstallExchange(NewExchange("GET")))
}

func TestConnInstallAfterShutdown(t *testing.T) {
	conn, _ := newTestConn(clock.NewMock())
	conn.markShutdown()

	err := conn.InstallExchange(NewExchange("GET"))
	assert.ErrorIs(t, err, ErrConnShutdown)
}

func TestConnInstallAfterClose(t *testing.T) {
	conn, _ := newTestConn(clock.NewMock())
	conn.Close()

	err := conn.InstallExchange(NewExchange("GET"))
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	conn, endpoint := newTestConn(clock.NewMock())
	require.NoError(t, conn.InstallExchange(NewExchange("GET")))

	conn.Close()
	conn.Close()

	assert.True(t, conn.Closed())
	assert.Equal(t, 1, endpoint.Closes)

	// Closing detaches whatever was installed.
	_, ok := conn.Exchange()
	assert.False(t, ok)
}

func TestConnIdleFor(t *testing.T) {
	clk := clock.NewMock()
	conn, _ := newTestConn(clk)

	clk.Add(time.Minute)
	assert.True(t, conn.IdleFor(time.Minute))
	assert.False(t, conn.IdleFor(2*time.Minute))

	// A live exchange stops the idle clock entirely.
	require.NoError(t, conn.InstallExchange(NewExchange("GET")))
	clk.Add(time.Hour)
	assert.False(t, conn.IdleFor(time.Minute))

	// Detaching restarts it from now.
	conn.DetachExchange()
	assert.False(t, conn.IdleFor(time.Minute))
	clk.Add(time.Minute)
	assert.True(t, conn.IdleFor(time.Minute))
}
