package client

import (
	"io"
	"log/slog"

	"httpwire/wire"
	"httpwire/wire/parser"

	"github.com/pkg/errors"
)

// BufferPool hands out the scratch buffers the receive loop fills from the
// endpoint. [httpwire/lib/buffer.Pool] satisfies it.
type BufferPool interface {
	Acquire(sizeHint int) []byte
	Release(buf []byte)
}

// Receiver owns the response parser for a connection and drives the
// fill/parse loop. It implements the parser's event-handler contract and
// translates events into exchange lifecycle calls.
type Receiver struct {
	conn     *Conn
	listener ExchangeListener
	pool     BufferPool
	logger   *slog.Logger

	parser  *parser.ResponseParser
	bufSize int
}

var _ parser.Handler = (*Receiver)(nil)

func NewReceiver(
	conn *Conn,
	listener ExchangeListener,
	pool BufferPool,
	logger *slog.Logger,
	opts Options,
) *Receiver {
	r := &Receiver{
		conn:     conn,
		listener: listener,
		pool:     pool,
		logger:   logger,
		bufSize:  opts.ResponseBufferSize,
	}
	r.parser = parser.New(r, opts.Parser)

	return r
}

// Receive drains the bytes currently available on the endpoint and feeds
// them to the parser. It never blocks: a zero-byte fill registers read
// interest and returns, so a future readiness notification re-invokes it.
//
// It must not run concurrently with itself on the same connection; the
// surrounding connection manager enforces that by not re-arming readiness
// until the previous call returned.
func (r *Receiver) Receive() {
	buf := r.pool.Acquire(r.bufSize)
	defer r.pool.Release(buf)

	for {
		// The connection may be closed in a parser callback.
		if r.conn.Closed() {
			return
		}

		n, err := r.conn.Endpoint().Fill(buf)
		switch {
		case err == nil && n > 0:
			r.logger.Debug("filled bytes", "n", n)
			r.parse(buf[:n])
		case err == nil:
			// No data ready now; suspend until the endpoint wakes us.
			r.conn.Endpoint().RegisterReadInterest()
			return
		case errors.Is(err, io.EOF):
			r.shutdownInput()
			return
		default:
			r.failAndClose(errors.Wrap(err, "filling from endpoint"))
			return
		}
	}
}

// A single fill may contain multiple protocol events (pipelined bytes), so
// keep feeding the parser until the buffer is exhausted. The parser pausing
// hands control back here so connection state is re-checked in between.
func (r *Receiver) parse(data []byte) {
	for len(data) > 0 {
		if r.conn.Closed() {
			return
		}

		n := r.parser.Parse(data)
		if n == 0 {
			return
		}
		data = data[n:]
	}
}

// shutdownInput handles an orderly half-close by the peer. The connection is
// not closed here: a response may still be mid-processing downstream, so
// closing is deferred to whoever observes the terminated exchange (the
// shutdown flag is what tells them to).
func (r *Receiver) shutdownInput() {
	r.conn.markShutdown()

	// This may synchronously flush MessageComplete (content delimited by
	// connection close) or EarlyEOF.
	r.parser.SetEOF()
	r.parser.Parse(nil)
}

// Reset clears parser state and per-message residue so the same connection
// can serve a subsequent exchange without leakage from the prior message.
func (r *Receiver) Reset() {
	r.parser.Reset()
}

func (r *Receiver) OnStatusLine(line wire.StatusLine) parser.Action {
	ex, ok := r.conn.Exchange()
	if !ok {
		return parser.Discard
	}

	// Responses to HEAD and CONNECT describe a body that is never sent.
	method := ex.Method()
	r.parser.SuppressBody(method == "HEAD" || method == "CONNECT")

	ex.beginResponse(line)
	r.logger.Debug("response begin",
		"exchange", ex.ID(), "status", line.StatusCode, "version", line.Version)
	r.listener.OnResponseBegin(ex)

	return parser.Continue
}

func (r *Receiver) OnHeader(f wire.Field) parser.Action {
	ex, ok := r.conn.Exchange()
	if !ok {
		return parser.Discard
	}

	ex.addHeader(f)
	r.listener.OnResponseHeader(ex, f)

	return parser.Continue
}

func (r *Receiver) OnHeadersComplete() parser.Action {
	ex, ok := r.conn.Exchange()
	if !ok {
		return parser.Discard
	}

	ex.headersComplete()
	r.listener.OnResponseHeadersComplete(ex)

	return parser.Continue
}

func (r *Receiver) OnContent(data []byte) parser.Action {
	ex, ok := r.conn.Exchange()
	if !ok {
		return parser.Discard
	}

	ex.appendContent(data)
	r.listener.OnResponseContent(ex, data)

	// TODO: pause here until the downstream consumer drained the content,
	// once the listener contract grows a completion signal.
	return parser.Continue
}

func (r *Receiver) OnMessageComplete() parser.Action {
	ex, ok := r.conn.Exchange()
	if !ok {
		return parser.Discard
	}

	ex.complete()
	r.conn.DetachExchange()
	r.logger.Debug("response complete", "exchange", ex.ID())
	r.listener.OnResponseSuccess(ex)

	// Hand control back to the receive loop so it re-checks connection
	// state before parsing any pipelined bytes after this message.
	return parser.Pause
}

func (r *Receiver) OnEarlyEOF() {
	if _, ok := r.conn.Exchange(); !ok {
		r.conn.Close()
		return
	}

	r.failAndClose(errors.Wrap(ErrEndOfStream, "reading response"))
}

func (r *Receiver) OnBadMessage(status uint, reason string) {
	ex, ok := r.conn.Exchange()
	if !ok {
		// Nothing to attribute the violation to, but the stream is
		// unusable either way.
		r.conn.Close()
		return
	}

	ex.setFailureStatus(status, reason)
	err := errors.Wrapf(ErrProtocolViolation, "bad response: %d %s", status, reason)
	r.fail(ex, err)

	// Framing corruption admits no mid-stream recovery.
	r.conn.Close()
}

func (r *Receiver) fail(ex *Exchange, err error) (closeWanted bool) {
	r.conn.DetachExchange()
	ex.Fail(err)
	r.logger.Debug("response failure", "exchange", ex.ID(), "err", err)

	return r.listener.OnResponseFailure(ex, err)
}

func (r *Receiver) failAndClose(err error) {
	ex, ok := r.conn.Exchange()
	if !ok {
		r.conn.Close()
		return
	}

	if r.fail(ex, err) {
		r.conn.Close()
	}
}
