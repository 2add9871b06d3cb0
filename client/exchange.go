package client

import (
	"sync"

	"httpwire/wire"

	"github.com/dchest/uniuri"
)

// State is the lifecycle of an exchange's receive side.
type State uint8

const (
	StatePending State = iota
	StateHeadersInProgress
	StateHeadersComplete
	StateContentInProgress
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateHeadersInProgress:
		return "headers-in-progress"
	case StateHeadersComplete:
		return "headers-complete"
	case StateContentInProgress:
		return "content-in-progress"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Response is the in-progress response of an exchange: everything received
// so far.
type Response struct {
	Version      wire.Version
	StatusCode   uint
	ReasonPhrase string
	Headers      []wire.Field
	Body         []byte
}

// Exchange is one outstanding request/response pair on a connection. The
// connection owns it between installation and completion/failure; the
// receiver only borrows it for the duration of a callback. A lifecycle
// collaborator may fail it asynchronously (e.g. on timeout), so all state
// transitions are guarded.
type Exchange struct {
	id     string
	method string

	mu       sync.Mutex
	state    State
	err      error
	response Response
}

func NewExchange(method string) *Exchange {
	return &Exchange{
		id:     uniuri.NewLen(12),
		method: method,
		state:  StatePending,
	}
}

// ID is a correlation token for logs.
func (e *Exchange) ID() string { return e.id }

func (e *Exchange) Method() string { return e.method }

func (e *Exchange) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the failure reason for a failed exchange.
func (e *Exchange) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Response returns a snapshot of the response received so far. Headers and
// body are shallow copies of the accumulated slices.
func (e *Exchange) Response() Response {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := e.response
	snapshot.Headers = make([]wire.Field, len(e.response.Headers))
	copy(snapshot.Headers, e.response.Headers)
	snapshot.Body = append([]byte(nil), e.response.Body...)

	return snapshot
}

// Fail moves the exchange to its terminal failed state. It is safe to call
// from outside the receive loop; completed exchanges are left alone.
func (e *Exchange) Fail(err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminalLocked() {
		return false
	}
	e.state = StateFailed
	e.err = err
	return true
}

func (e *Exchange) terminalLocked() bool {
	return e.state == StateComplete || e.state == StateFailed
}

func (e *Exchange) beginResponse(line wire.StatusLine) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminalLocked() {
		return
	}
	e.response.Version = line.Version
	e.response.StatusCode = line.StatusCode
	e.response.ReasonPhrase = line.ReasonPhrase
	e.state = StateHeadersInProgress
}

func (e *Exchange) addHeader(f wire.Field) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminalLocked() {
		return
	}
	// Cached name slices are shared across messages; keep our own copy.
	e.response.Headers = append(e.response.Headers, f.Clone())
}

func (e *Exchange) headersComplete() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminalLocked() {
		return
	}
	e.state = StateHeadersComplete
}

func (e *Exchange) appendContent(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminalLocked() {
		return
	}
	e.response.Body = append(e.response.Body, data...)
	e.state = StateContentInProgress
}

func (e *Exchange) complete() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminalLocked() {
		return
	}
	e.state = StateComplete
}

// setFailureStatus installs a synthetic status/reason on the in-progress
// response, used when a protocol violation is reported before any (or a
// trustworthy) status line was parsed.
func (e *Exchange) setFailureStatus(status uint, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminalLocked() {
		return
	}
	e.response.StatusCode = status
	e.response.ReasonPhrase = reason
}
