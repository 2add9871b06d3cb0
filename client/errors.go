package client

import "github.com/pkg/errors"

var (
	// ErrEndOfStream means the peer closed the connection before the
	// response framing indicated completion.
	ErrEndOfStream = errors.New("end of stream before message completed")

	// ErrProtocolViolation means the response could not be parsed as
	// HTTP/1.1. Framing corruption admits no mid-stream recovery, so the
	// connection is always torn down with it.
	ErrProtocolViolation = errors.New("http protocol violation")

	ErrConnClosed        = errors.New("connection is closed")
	ErrConnShutdown      = errors.New("connection is shut down")
	ErrExchangeInstalled = errors.New("an exchange is already installed")
)
