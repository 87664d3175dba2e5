package rfbengine

import "errors"

// Sentinel error kinds (spec.md §7). All protocol-layer errors are fatal:
// the engine closes the connection immediately on the first one returned
// from Run.
var (
	// ErrProtocolMismatch indicates an unknown header or unsupported
	// version banner from the server.
	ErrProtocolMismatch = errors.New("rfbengine: protocol mismatch")

	// ErrHandshakeFailed indicates the server rejected authentication.
	ErrHandshakeFailed = errors.New("rfbengine: handshake failed")

	// ErrAuthRequired indicates the server demands credentials the
	// engine was not given.
	ErrAuthRequired = errors.New("rfbengine: authentication required")

	// ErrUnsupportedEncoding indicates the server sent a rectangle
	// encoding the client never enabled via SetEncodings.
	ErrUnsupportedEncoding = errors.New("rfbengine: unsupported encoding")

	// ErrMalformedMessage indicates a field value that cannot be valid
	// on the wire (e.g. a ZRLE palette size above 16, a desktop size at
	// or above 0x10000).
	ErrMalformedMessage = errors.New("rfbengine: malformed message")

	// ErrTransportClosed indicates the underlying connection closed,
	// gracefully or not, while the engine expected more bytes.
	ErrTransportClosed = errors.New("rfbengine: transport closed")
)
