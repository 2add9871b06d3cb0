package client

import "httpwire/wire"

// ExchangeListener is the exchange-lifecycle collaborator. The receiver
// reports response progress to it; orchestration concerns (retries,
// redirects, cookies, timeouts) live behind this interface, not in the
// receive core.
//
// Content bytes passed to OnResponseContent are only valid for the duration
// of the call.
type ExchangeListener interface {
	OnResponseBegin(ex *Exchange)
	OnResponseHeader(ex *Exchange, f wire.Field)
	OnResponseHeadersComplete(ex *Exchange)
	OnResponseContent(ex *Exchange, data []byte)
	OnResponseSuccess(ex *Exchange)

	// OnResponseFailure reports a failed exchange. The return value tells
	// the receiver whether it should additionally close the connection;
	// returning false means another party owns the teardown (e.g. an
	// asynchronous abort already in flight).
	OnResponseFailure(ex *Exchange, err error) (closeConn bool)
}
