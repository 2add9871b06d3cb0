package tcp

import (
	"io"
	"net"
	"testing"
	"time"

	"httpwire/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newPipeEndpoint(t *testing.T, pollInterval time.Duration) (*Endpoint, net.Conn) {
	local, remote := net.Pipe()
	t.Cleanup(func() { remote.Close() })

	// Deadlines on net.Pipe need real time.
	return NewEndpoint(local, clock.New(), pollInterval), remote
}

func TestFillDeliversData(t *testing.T) {
	defer goleak.VerifyNone(t)

	endpoint, remote := newPipeEndpoint(t, time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := remote.Write([]byte("hello"))
		assert.NoError(t, err)
	}()

	buf := make([]byte, 16)
	n, err := endpoint.Fill(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), buf[:n])

	<-done
}

func TestFillReportsNoData(t *testing.T) {
	endpoint, _ := newPipeEndpoint(t, 10*time.Millisecond)

	n, err := endpoint.Fill(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFillReportsEOF(t *testing.T) {
	endpoint, remote := newPipeEndpoint(t, time.Second)
	require.NoError(t, remote.Close())

	_, err := endpoint.Fill(make([]byte, 16))
	assert.ErrorIs(t, err, io.EOF)
}

func TestFillAfterClose(t *testing.T) {
	endpoint, _ := newPipeEndpoint(t, time.Second)

	require.NoError(t, endpoint.Close())
	require.NoError(t, endpoint.Close())

	_, err := endpoint.Fill(make([]byte, 16))
	assert.ErrorIs(t, err, transport.ErrEndpointClosed)
}
