// Package parser implements an incremental HTTP/1.1 response parser.
//
// The parser is fed arbitrary byte slices as they arrive from a non-blocking
// endpoint and reports protocol events to a [Handler]. State survives across
// calls, so a message may be split at any byte boundary. Body framing
// (Content-Length, chunked, connection-close delimited, suppressed) is
// internal; the handler only sees the event stream.
package parser

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"httpwire/wire"
	"httpwire/wire/rule"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/uf"
)

// Action tells the parser what to do after a handler callback.
type Action uint8

const (
	// Continue keeps parsing the remainder of the current input.
	Continue Action = iota
	// Pause returns control to the caller; bytes not yet consumed stay
	// unconsumed and are parsed on the next call.
	Pause
	// Discard drops the rest of the current input. Used when there is no
	// exchange to attribute events to.
	Discard
)

// Handler receives protocol events in strict arrival order.
//
// Field names and content slices passed to callbacks are only valid for the
// duration of the callback and must be treated as read-only; copy what you
// keep.
type Handler interface {
	OnStatusLine(line wire.StatusLine) Action
	OnHeader(f wire.Field) Action
	OnHeadersComplete() Action
	OnContent(data []byte) Action
	OnMessageComplete() Action

	// OnEarlyEOF reports that the peer closed before the message framing
	// indicated completion.
	OnEarlyEOF()
	// OnBadMessage reports malformed input together with a synthetic
	// status and reason describing the violation.
	OnBadMessage(status uint, reason string)
}

type Options struct {
	// HeaderCacheSize caps the fixed-size cache of header names used to
	// avoid re-allocating names that repeat across messages. Zero disables
	// the cache.
	HeaderCacheSize int `json:"header_cache_size"`

	// MaxStatusLineLength sets the limit of status line length.
	// It's not on the RFC but I think it's better to have it. Unlike a
	// blocking decoder there is no reader bounding the accumulated line,
	// so zero (unlimited) lets a peer that never sends LF grow memory
	// without bound.
	// Recommended: >= 8000
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-5
	MaxStatusLineLength uint `json:"max_status_line_length"`

	// MaxHeaderLineLength sets the limit of field line length on headers.
	MaxHeaderLineLength uint `json:"max_header_line_length"`

	// AllowSoleLF specifies whether a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool `json:"allow_sole_lf"`
}

var DefaultOptions = Options{
	HeaderCacheSize:     256,
	MaxStatusLineLength: 8 << 10,
	MaxHeaderLineLength: 8 << 10,
	AllowSoleLF:         false,
}

type state uint8

const (
	stateStatusLine state = iota
	stateHeaderLine
	stateFixedContent
	stateChunkedContent
	stateCloseDelimited
	stateMessageEnd
	stateFailed
	stateEnded
)

type ResponseParser struct {
	handler Handler
	opts    Options

	state   state
	lineBuf []byte
	eof     bool

	// Per-message framing, cleared when the message completes.
	suppressBody  bool
	noBodyStatus  bool
	contentLength *uint
	chunked       bool
	hasTrailer    bool
	remaining     uint

	chunkParser *chunkedbody.Parser

	headerNames map[string][]byte
}

func New(h Handler, opts Options) *ResponseParser {
	p := &ResponseParser{
		handler:     h,
		opts:        opts,
		chunkParser: chunkedbody.NewParser(chunkedbody.DefaultSettings()),
	}
	if opts.HeaderCacheSize > 0 {
		p.headerNames = make(map[string][]byte, opts.HeaderCacheSize)
	}

	return p
}

// SuppressBody tells the parser the next message carries no body regardless
// of its framing headers (responses to HEAD and CONNECT requests).
func (p *ResponseParser) SuppressBody(suppress bool) { p.suppressBody = suppress }

// SetEOF tells the parser no further bytes will ever arrive. The next Parse
// call (possibly with nil input) flushes trailing events: MessageComplete for
// a close-delimited body, EarlyEOF otherwise (including the idle case, which
// the handler distinguishes by having no exchange installed).
func (p *ResponseParser) SetEOF() { p.eof = true }

// Reset clears all per-message state so the parser can serve a fresh message
// on a reused connection. The header name cache survives.
func (p *ResponseParser) Reset() {
	p.resetMessage()
	p.eof = false
	p.state = stateStatusLine
	// Mid-body chunked state cannot be trusted after a reset.
	p.chunkParser = chunkedbody.NewParser(chunkedbody.DefaultSettings())
}

// Parse consumes data and reports events to the handler. It returns the
// number of bytes consumed, which is less than len(data) only when a callback
// returned [Pause]; the caller is expected to re-check its own state and feed
// the remainder back in.
func (p *ResponseParser) Parse(data []byte) int {
	n := p.run(data)
	if p.eof && n == len(data) {
		p.flushEOF()
	}
	return n
}

func (p *ResponseParser) run(data []byte) int {
	n := 0
	for {
		switch p.state {
		case stateFailed, stateEnded:
			return len(data)

		case stateStatusLine:
			line, adv, complete := p.takeLine(data[n:], p.opts.MaxStatusLineLength)
			n += adv
			if p.state == stateFailed {
				return len(data)
			}
			if !complete {
				return n
			}
			if len(line) == 0 {
				// An empty line can be received before message.
				// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
				p.resetLine()
				continue
			}

			parsed, err := wire.ParseStatusLine(line)
			p.resetLine()
			if err != nil {
				return p.fail(data, 400, "malformed status line")
			}

			p.noBodyStatus = parsed.StatusCode/100 == 1 ||
				parsed.StatusCode == 204 || parsed.StatusCode == 304
			p.state = stateHeaderLine

			if act := p.handler.OnStatusLine(parsed); act != Continue {
				return p.apply(act, data, n)
			}

		case stateHeaderLine:
			line, adv, complete := p.takeLine(data[n:], p.opts.MaxHeaderLineLength)
			n += adv
			if p.state == stateFailed {
				return len(data)
			}
			if !complete {
				return n
			}
			if len(line) == 0 {
				// End of the header section.
				p.resetLine()
				act := p.handler.OnHeadersComplete()
				p.chooseBodyMode()
				if act != Continue {
					return p.apply(act, data, n)
				}
				continue
			}

			field, err := wire.ParseField(line)
			if err != nil || !rule.IsValidToken(uf.B2S(field.Name)) {
				p.resetLine()
				return p.fail(data, 400, "malformed header field")
			}
			if !p.recordFraming(field) {
				return len(data)
			}

			// The field still points into the line buffer; detach it.
			field.Name = p.cachedName(field.Name)
			field.Value = bytes.Clone(field.Value)
			p.resetLine()

			if act := p.handler.OnHeader(field); act != Continue {
				return p.apply(act, data, n)
			}

		case stateFixedContent:
			if n == len(data) {
				return n
			}
			avail := data[n:]
			if uint(len(avail)) > p.remaining {
				avail = avail[:p.remaining]
			}
			n += len(avail)
			p.remaining -= uint(len(avail))
			if p.remaining == 0 {
				p.state = stateMessageEnd
			}
			if act := p.handler.OnContent(avail); act != Continue {
				return p.apply(act, data, n)
			}

		case stateChunkedContent:
			if n == len(data) {
				return n
			}
			input := data[n:]
			chunk, extra, err := p.chunkParser.Parse(input, p.hasTrailer)
			if err != nil && err != io.EOF {
				return p.fail(data, 400, "malformed chunked body")
			}
			consumed := len(input) - len(extra)
			if err == nil && consumed == 0 && len(chunk) == 0 {
				// No progress without more bytes.
				return n
			}
			n += consumed
			if err == io.EOF {
				p.state = stateMessageEnd
			}
			if len(chunk) > 0 {
				if act := p.handler.OnContent(chunk); act != Continue {
					return p.apply(act, data, n)
				}
			}

		case stateCloseDelimited:
			if n == len(data) {
				return n
			}
			avail := data[n:]
			n = len(data)
			if act := p.handler.OnContent(avail); act != Continue {
				return p.apply(act, data, n)
			}

		case stateMessageEnd:
			if act := p.completeMessage(); act != Continue {
				return p.apply(act, data, n)
			}
		}
	}
}

func (p *ResponseParser) apply(act Action, data []byte, n int) int {
	if act == Discard {
		return len(data)
	}
	return n
}

// takeLine accumulates input into the line buffer until a full line is
// available. The returned line has its terminator stripped and is only valid
// until the next resetLine.
func (p *ResponseParser) takeLine(input []byte, limit uint) (line []byte, adv int, complete bool) {
	idx := bytes.IndexByte(input, rule.LF)
	if idx == -1 {
		p.lineBuf = append(p.lineBuf, input...)
		if limit > 0 && uint(len(p.lineBuf)) > limit {
			p.failNow(400, "line length exceeds limit")
		}
		return nil, len(input), false
	}

	p.lineBuf = append(p.lineBuf, input[:idx]...)
	adv = idx + 1

	line = p.lineBuf
	if limit > 0 && uint(len(line)) > limit {
		p.failNow(400, "line length exceeds limit")
		return nil, adv, false
	}

	if len(line) > 0 && line[len(line)-1] == rule.CR {
		line = line[:len(line)-1]
	} else if !p.opts.AllowSoleLF {
		p.failNow(400, "missing CR before LF")
		return nil, adv, false
	}

	return line, adv, true
}

func (p *ResponseParser) resetLine() { p.lineBuf = p.lineBuf[:0] }

// recordFraming inspects a header field for body framing before it is handed
// to the handler. Returns false if the field poisoned the message.
func (p *ResponseParser) recordFraming(f wire.Field) bool {
	name := uf.B2S(f.Name)
	switch {
	case strings.EqualFold(name, "Content-Length"):
		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6-10
		v, err := strconv.ParseUint(uf.B2S(f.Value), 10, 64)
		if err != nil {
			p.failNow(400, "malformed Content-Length")
			return false
		}
		length := uint(v)
		if p.contentLength != nil && *p.contentLength != length {
			p.failNow(400, "conflicting Content-Length")
			return false
		}
		p.contentLength = &length

	case strings.EqualFold(name, "Transfer-Encoding"):
		// Only a final "chunked" coding delimits the body; otherwise the
		// length is unknown and the message is close-delimited.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4
		codings := bytes.Split(f.Value, []byte{','})
		last := bytes.TrimFunc(codings[len(codings)-1], rule.IsWhitespace)
		p.chunked = strings.EqualFold(uf.B2S(last), "chunked")

	case strings.EqualFold(name, "Trailer"):
		p.hasTrailer = true
	}

	return true
}

func (p *ResponseParser) chooseBodyMode() {
	switch {
	case p.suppressBody || p.noBodyStatus:
		// Framing headers may describe a body that must not be read.
		p.state = stateMessageEnd
	case p.chunked:
		p.state = stateChunkedContent
	case p.contentLength != nil:
		if *p.contentLength == 0 {
			p.state = stateMessageEnd
		} else {
			p.remaining = *p.contentLength
			p.state = stateFixedContent
		}
	default:
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.8
		p.state = stateCloseDelimited
	}
}

func (p *ResponseParser) completeMessage() Action {
	p.resetMessage()
	p.state = stateStatusLine
	return p.handler.OnMessageComplete()
}

func (p *ResponseParser) resetMessage() {
	p.suppressBody = false
	p.noBodyStatus = false
	p.contentLength = nil
	p.chunked = false
	p.hasTrailer = false
	p.remaining = 0
	p.resetLine()
}

func (p *ResponseParser) fail(data []byte, status uint, reason string) int {
	p.failNow(status, reason)
	return len(data)
}

func (p *ResponseParser) failNow(status uint, reason string) {
	p.state = stateFailed
	p.handler.OnBadMessage(status, reason)
}

func (p *ResponseParser) flushEOF() {
	switch p.state {
	case stateFailed, stateEnded:

	case stateCloseDelimited, stateMessageEnd:
		// The close is what delimited the body.
		p.completeMessage()
		p.state = stateEnded

	default:
		// Covers a truncated message and the idle case alike; with no
		// exchange installed the handler treats it as a clean shutdown.
		p.state = stateEnded
		p.handler.OnEarlyEOF()
	}
}

func (p *ResponseParser) cachedName(raw []byte) []byte {
	if p.headerNames == nil {
		return bytes.Clone(raw)
	}

	if cached, ok := p.headerNames[string(raw)]; ok {
		return cached
	}

	clone := bytes.Clone(raw)
	if len(p.headerNames) < p.opts.HeaderCacheSize {
		p.headerNames[string(clone)] = clone
	}
	return clone
}
