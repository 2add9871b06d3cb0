// Package test provides endpoint fakes for receiver and parser tests.
package test

import (
	"httpwire/transport"
	"io"
)

// FillResult is one scripted outcome of an [transport.Endpoint.Fill] call.
type FillResult struct {
	Data []byte
	Err  error
}

// NoData yields a zero-byte fill ("nothing ready right now").
func NoData() FillResult { return FillResult{} }

// Data yields a successful fill with the given bytes.
func Data(b []byte) FillResult { return FillResult{Data: b} }

// EOF yields an orderly half-close by the peer.
func EOF() FillResult { return FillResult{Err: io.EOF} }

// Fail yields a transport failure.
func Fail(err error) FillResult { return FillResult{Err: err} }

// ScriptedEndpoint replays a fixed sequence of fill results and records what
// the receiver did with it. Once the script runs out, Fill keeps reporting
// "no data".
type ScriptedEndpoint struct {
	script []FillResult
	next   int

	ReadInterests int
	Closes        int
}

var _ transport.Endpoint = (*ScriptedEndpoint)(nil)

func NewScriptedEndpoint(script ...FillResult) *ScriptedEndpoint {
	return &ScriptedEndpoint{script: script}
}

func (e *ScriptedEndpoint) Fill(p []byte) (int, error) {
	if e.Closes > 0 {
		return 0, transport.ErrEndpointClosed
	}
	if e.next >= len(e.script) {
		return 0, nil
	}

	result := e.script[e.next]
	e.next++

	if result.Err != nil {
		return 0, result.Err
	}
	if len(result.Data) > len(p) {
		// Deliver what fits now; the rest on the next fill.
		n := copy(p, result.Data)
		e.next--
		e.script[e.next] = Data(result.Data[n:])
		return n, nil
	}

	return copy(p, result.Data), nil
}

func (e *ScriptedEndpoint) RegisterReadInterest() { e.ReadInterests++ }

func (e *ScriptedEndpoint) Close() error {
	e.Closes++
	return nil
}
