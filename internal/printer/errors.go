package printer

import "errors"

// Failure classes at the wire boundary. Socket-level failures are wrapped with
// %w around the underlying net error; a read deadline is not an error at this
// layer (the truncated response is returned and ack checks fail on it).
// Parse failures never surface as errors: they are logged and the previous
// value stands.
var (
	// ErrNotConnected is returned when an exchange is attempted without an
	// open control session.
	ErrNotConnected = errors.New("printer: not connected")

	// ErrHandshake is returned when the device answers the control handshake
	// with something other than an acknowledgment.
	ErrHandshake = errors.New("printer: handshake rejected")
)
