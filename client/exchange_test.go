package client

import (
	"sync"
	"testing"

	"httpwire/wire"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestExchangeLifecycle(t *testing.T) {
	ex := NewExchange("GET")
	assert.Equal(t, "GET", ex.Method())
	assert.Len(t, ex.ID(), 12)
	assert.Equal(t, StatePending, ex.State())

	ex.beginResponse(wire.StatusLine{
		Version: wire.Version{1, 1}, StatusCode: 200, ReasonPhrase: "OK",
	})
	assert.Equal(t, StateHeadersInProgress, ex.State())

	ex.addHeader(wire.Field{Name: []byte("Content-Length"), Value: []byte("2")})
	ex.headersComplete()
	assert.Equal(t, StateHeadersComplete, ex.State())

	ex.appendContent([]byte("o"))
	ex.appendContent([]byte("k"))
	assert.Equal(t, StateContentInProgress, ex.State())

	ex.complete()
	assert.Equal(t, StateComplete, ex.State())

	response := ex.Response()
	assert.Equal(t, uint(200), response.StatusCode)
	assert.Equal(t, "OK", response.ReasonPhrase)
	require.Len(t, response.Headers, 1)
	assert.Equal(t, []byte("ok"), response.Body)
}

func TestExchangeFailIsTerminal(t *testing.T) {
	ex := NewExchange("GET")
	cause := errors.New("timed out")

	assert.True(t, ex.Fail(cause))
	assert.Equal(t, StateFailed, ex.State())
	assert.ErrorIs(t, ex.Err(), cause)

	// Late callbacks are ignored once the exchange is terminal.
	ex.beginResponse(wire.StatusLine{StatusCode: 200})
	ex.appendContent([]byte("late"))
	ex.complete()

	assert.Equal(t, StateFailed, ex.State())
	assert.Empty(t, ex.Response().Body)
	assert.False(t, ex.Fail(errors.New("again")))
}

func TestExchangeFailAfterComplete(t *testing.T) {
	ex := NewExchange("GET")
	ex.complete()

	assert.False(t, ex.Fail(errors.New("too late")))
	assert.Equal(t, StateComplete, ex.State())
	assert.NoError(t, ex.Err())
}

func TestExchangeConcurrentFail(t *testing.T) {
	defer goleak.VerifyNone(t)

	ex := NewExchange("GET")

	var wg sync.WaitGroup
	wins := make(chan struct{}, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ex.Fail(errors.New("racing")) {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()

	// Exactly one caller observes the transition.
	assert.Len(t, wins, 1)
	assert.Equal(t, StateFailed, ex.State())
}

func TestExchangeResponseSnapshot(t *testing.T) {
	ex := NewExchange("GET")
	ex.beginResponse(wire.StatusLine{StatusCode: 200})
	ex.addHeader(wire.Field{Name: []byte("X-A"), Value: []byte("1")})
	ex.appendContent([]byte("abc"))

	snapshot := ex.Response()
	ex.addHeader(wire.Field{Name: []byte("X-B"), Value: []byte("2")})
	ex.appendContent([]byte("def"))

	assert.Len(t, snapshot.Headers, 1)
	assert.Equal(t, []byte("abc"), snapshot.Body)
}

func TestStateString(t *testing.T) {
	testcases := []struct {
		state    State
		expected string
	}{
		{StatePending, "pending"},
		{StateHeadersInProgress, "headers-in-progress"},
		{StateHeadersComplete, "headers-complete"},
		{StateContentInProgress, "content-in-progress"},
		{StateComplete, "complete"},
		{StateFailed, "failed"},
		{State(42), "unknown"},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.expected, tc.state.String())
	}
}
