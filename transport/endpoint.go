package transport

import "errors"

var ErrEndpointClosed = errors.New("endpoint is closed")

// Endpoint is a non-blocking duplex byte channel over a network connection.
// Only the receive half is modeled here; writing is a separate concern.
//
// Fill reads whatever bytes are available right now into p:
//   - n > 0 means n bytes were read.
//   - n == 0 with a nil error means no data is ready; the caller should
//     register read interest and come back on the next readiness notification.
//   - err == io.EOF means the peer half-closed its sending side.
//   - any other error is a transport failure.
//
// Fill never blocks waiting for data.
type Endpoint interface {
	Fill(p []byte) (n int, err error)

	// RegisterReadInterest arms a one-shot readiness notification. The
	// surrounding connection manager must not re-arm interest while a
	// receive cycle is still running.
	RegisterReadInterest()

	Close() error
}
