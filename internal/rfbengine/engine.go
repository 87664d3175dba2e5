// Package rfbengine implements the RFB client protocol state machine:
// handshake and authentication negotiation (component D), the
// server-to-client message dispatcher (component E), and the rectangle
// decoders (component F). It reads from a byte-stream transport and
// drives internal/rfbwire's FrameBuffer, Cursor, and Encoder types; it
// has no knowledge of key names, mouse interpolation, or screenshot
// comparison (internal/rfbclient).
package rfbengine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/vncdotool/govnc/internal/rfbwire"
)

// Ver is a negotiated protocol version (major, minor).
type Ver struct {
	Major, Minor int
}

// supportedServerVersions is the set of server versions this client
// recognizes (spec.md §4.2 step 1). (3,889) is Apple Remote Desktop.
var supportedServerVersions = []Ver{
	{3, 3}, {3, 7}, {3, 8}, {3, 889}, {4, 0}, {4, 1}, {5, 0},
}

// maxClientVersion is the highest version this client will ever claim.
var maxClientVersion = Ver{3, 8}

// Security types (spec.md §4.2 step 2).
const (
	secTypeNone = 1
	secTypeVNC  = 2
	secTypeARD  = 30
)

// supportedSecurityTypes is the client's set of acceptable auth
// mechanisms, used to pick the maximum-valued offered type.
var supportedSecurityTypes = map[int]bool{
	secTypeNone: true,
	secTypeVNC:  true,
	secTypeARD:  true,
}

// Auth result codes (spec.md §4.2 step 5).
const (
	authResultOK      = 0
	authResultFailed  = 1
	authResultTooMany = 2
)

// Engine owns one RFB connection's protocol state from the initial
// version banner through the message-dispatch loop (spec.md §3
// "Connection state").
type Engine struct {
	conn net.Conn

	logger   *slog.Logger
	observer Observer

	username, password string
	shared             bool

	version       Ver
	versionServer Ver
	securityType  int

	buf          []byte
	st           state
	expectedSize int
	ctx          pendingCtx

	pixelFormat rfbwire.PixelFormat

	width, height int
	name          string

	negotiatedEncodings map[Encoding]bool

	pendingRects  int
	rectPositions []rfbwire.Rectangle

	zrle zrleStream

	fb     *rfbwire.FrameBuffer
	cursor *rfbwire.Cursor

	enc *rfbwire.Encoder
}

// bypp returns the negotiated pixel format's bytes-per-pixel.
func (e *Engine) bypp() int { return e.pixelFormat.BytesPerPixel() }

// Option configures optional Engine parameters (functional options,
// matching the teacher's SessionOption pattern).
type Option func(*Engine)

// WithLogger attaches a structured logger. slog.Default() is used if
// this option is never applied.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCredentials pre-supplies a username/password so the engine never
// needs to call Observer.RequestPassword/RequestCredentials.
func WithCredentials(username, password string) Option {
	return func(e *Engine) {
		e.username = username
		e.password = password
	}
}

// WithShared controls the ClientInit shared-connection flag
// (spec.md §4.2 step 6).
func WithShared(shared bool) Option {
	return func(e *Engine) { e.shared = shared }
}

// New creates an Engine bound to conn, ready to run the handshake from
// the Initial state. observer must not be nil.
func New(conn net.Conn, observer Observer, opts ...Option) *Engine {
	e := &Engine{
		conn:                conn,
		observer:            observer,
		logger:              slog.Default(),
		shared:              true,
		negotiatedEncodings: map[Encoding]bool{EncodingRaw: true},
		pixelFormat:         rfbwire.RGB32,
	}
	e.enc = rfbwire.NewEncoder(writerFunc(e.write))
	for _, opt := range opts {
		opt(e)
	}
	e.expect(stateInitial, 12)
	return e
}

// writerFunc adapts a func([]byte) error to io.Writer.
type writerFunc func([]byte) error

func (f writerFunc) Write(p []byte) (int, error) {
	if err := f(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Width returns the negotiated desktop width.
func (e *Engine) Width() int { return e.width }

// Height returns the negotiated desktop height.
func (e *Engine) Height() int { return e.height }

// Name returns the server-supplied desktop name.
func (e *Engine) Name() string { return e.name }

// PixelFormat returns the engine's current pixel format.
func (e *Engine) PixelFormat() rfbwire.PixelFormat { return e.pixelFormat }

// FrameBuffer returns the decoded pixel surface. Valid only after
// ServerInit; nil before then.
func (e *Engine) FrameBuffer() *rfbwire.FrameBuffer { return e.fb }

// Encoder returns the client-to-server message encoder, for issuing
// SetPixelFormat/SetEncodings/KeyEvent/PointerEvent/etc. requests.
func (e *Engine) Encoder() *rfbwire.Encoder { return e.enc }

// expect is the byte-stream reader's one primitive (spec.md §4.1):
// when at least size bytes are buffered, consume them as a contiguous
// slice and invoke the handler for st.
func (e *Engine) expect(st state, size int) {
	e.st = st
	e.expectedSize = size
}

// Run drives the engine until the connection closes, the context is
// cancelled, or a fatal protocol error occurs. It owns the read loop
// (component C) and blocks until one of those happens.
//
// The outer loop re-checks the buffer after every handler invocation
// rather than recursing into it, satisfying the reentrancy invariant
// (spec.md §5): a handler calling expect() only changes e.st/e.expectedSize
// and returns; it never drives the loop itself.
func (e *Engine) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = e.conn.Close()
		case <-done:
		}
	}()

	reader := bufio.NewReaderSize(e.conn, 32*1024)
	scratch := make([]byte, 32*1024)

	for {
		if e.st == stateClosed {
			return nil
		}

		for len(e.buf) >= e.expectedSize {
			block := e.buf[:e.expectedSize]
			e.buf = e.buf[e.expectedSize:]
			st := e.st
			if err := e.dispatch(st, block); err != nil {
				_ = e.conn.Close()
				return err
			}
			if e.st == stateClosed {
				return nil
			}
		}

		n, err := reader.Read(scratch)
		if n > 0 {
			e.buf = append(e.buf, scratch[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w", ErrTransportClosed)
			}
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrTransportClosed, ctx.Err())
			}
			return fmt.Errorf("rfbengine: read: %w", err)
		}
	}
}

// write sends data to the server, failing fast on transport errors.
func (e *Engine) write(data []byte) error {
	if _, err := e.conn.Write(data); err != nil {
		return fmt.Errorf("rfbengine: write: %w", err)
	}
	return nil
}

// closeWith transitions to the terminal state and returns err.
func (e *Engine) closeWith(err error) error {
	e.st = stateClosed
	return err
}

// dispatch routes one fully-buffered block to the handler for st.
func (e *Engine) dispatch(st state, block []byte) error {
	switch st {
	case stateInitial:
		return e.handleInitial(block)
	case stateAuthLegacy:
		return e.handleAuthLegacy(block)
	case stateAuthNumTypes:
		return e.handleAuthNumTypes(block)
	case stateAuthTypes:
		return e.handleAuthTypes(block)
	case stateConnFailedLen:
		return e.handleConnFailedLen(block)
	case stateConnFailedMsg:
		return e.handleConnFailedMsg(block)
	case stateVNCAuthChallenge:
		return e.handleVNCAuthChallenge(block)
	case stateARDAuthParams:
		return e.handleARDAuthParams(block)
	case stateARDAuthModulus:
		return e.handleARDAuthModulus(block)
	case stateARDAuthServerKey:
		return e.handleARDAuthServerKey(block)
	case stateAuthResult:
		return e.handleAuthResult(block)
	case stateAuthFailedLen:
		return e.handleAuthFailedLen(block)
	case stateAuthFailedMsg:
		return e.handleAuthFailedMsg(block)
	case stateServerInit:
		return e.handleServerInit(block)
	case stateServerName:
		return e.handleServerName(block)
	case stateDispatch:
		return e.handleDispatch(block)
	case stateColorMapHeader:
		return e.handleColorMapHeader(block)
	case stateColorMapValues:
		return e.handleColorMapValues(block)
	case stateCutTextHeader:
		return e.handleCutTextHeader(block)
	case stateCutTextValue:
		return e.handleCutTextValue(block)
	case stateQEMUSubtype:
		return e.handleQEMUSubtype(block)
	case stateQEMUAudioOp:
		return e.handleQEMUAudioOp(block)
	case stateQEMUAudioSize:
		return e.handleQEMUAudioSize(block)
	case stateQEMUAudioData:
		return e.handleQEMUAudioData(block)
	case stateUpdateHeader:
		return e.handleUpdateHeader(block)
	case stateRectHeader:
		return e.handleRectHeader(block)
	case stateRectRaw:
		return e.handleRectRaw(block)
	case stateRectCopyRect:
		return e.handleRectCopyRect(block)
	case stateRectRREHeader:
		return e.handleRectRREHeader(block)
	case stateRectRRESubrects:
		return e.handleRectRRESubrects(block)
	case stateRectCoRREHeader:
		return e.handleRectCoRREHeader(block)
	case stateRectCoRRESubrects:
		return e.handleRectCoRRESubrects(block)
	case stateRectHextileTile:
		return e.handleRectHextileTile(block)
	case stateRectHextileSubrectHeader:
		return e.handleRectHextileSubrectHeader(block)
	case stateRectHextileRaw:
		return e.handleRectHextileRaw(block)
	case stateRectHextileSubrectsColoured:
		return e.handleRectHextileSubrectsColoured(block)
	case stateRectHextileSubrectsFG:
		return e.handleRectHextileSubrectsFG(block)
	case stateRectZRLELength:
		return e.handleRectZRLELength(block)
	case stateRectZRLEData:
		return e.handleRectZRLEData(block)
	case stateRectCursor:
		return e.handleRectCursor(block)
	default:
		return e.closeWith(fmt.Errorf("state %v: %w", st, ErrProtocolMismatch))
	}
}
