// Package rfbclient is the high-level client facade (spec.md §8,
// component H): keyboard/mouse/clipboard actions and screen capture
// layered on top of internal/rfbengine's protocol state machine. It
// implements rfbengine.Observer itself rather than asking a caller to
// supply one, the way internal/bfd/session.go owns its own lifecycle
// rather than delegating it to a collaborator.
package rfbclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/vncdotool/govnc/internal/rfbengine"
	"github.com/vncdotool/govnc/internal/rfbwire"
)

// tcpKeepAlivePeriod is the keepalive probe interval set on a dialed TCP
// connection (see tuneTCPConn).
const tcpKeepAlivePeriod = 30 * time.Second

// Client drives one RFB connection: it owns the engine, tracks the
// decoded screen and cursor for capture/compare operations, and exposes
// the keyboard/mouse/clipboard actions of spec.md §8.
type Client struct {
	engine *rfbengine.Engine
	conn   net.Conn
	logger *slog.Logger

	forceCaps bool
	noCursor  bool

	mu         sync.Mutex
	pix        []byte
	width      int
	height     int
	haveFrame  bool
	cursor     *rfbwire.Cursor
	mouseX     int
	mouseY     int
	buttons    uint8
	committed  chan struct{}
	clipboard  []string

	ready    chan struct{}
	readyErr error
	readyOne sync.Once

	done    chan struct{}
	doneErr error
	cancel  context.CancelFunc
}

// Option configures a Client. Options that the engine itself understands
// (WithCredentials, WithShared) are forwarded to it verbatim.
type Option func(*Client, *[]rfbengine.Option)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client, _ *[]rfbengine.Option) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCredentials pre-supplies VNC-DES/ARD authentication credentials.
func WithCredentials(username, password string) Option {
	return func(_ *Client, eopts *[]rfbengine.Option) {
		*eopts = append(*eopts, rfbengine.WithCredentials(username, password))
	}
}

// WithShared controls the ClientInit shared-connection flag.
func WithShared(shared bool) Option {
	return func(_ *Client, eopts *[]rfbengine.Option) {
		*eopts = append(*eopts, rfbengine.WithShared(shared))
	}
}

// WithForceCaps makes KeyDown/KeyUp/KeyPress automatically wrap uppercase
// letters and US-layout shifted punctuation in a Shift chord (spec.md §8,
// rfbkeys.Decode's forceCaps parameter).
func WithForceCaps(forceCaps bool) Option {
	return func(c *Client, _ *[]rfbengine.Option) { c.forceCaps = forceCaps }
}

// WithNoCursor disables cursor tracking: UpdateCursor notifications are
// ignored and captured screens never have a cursor pasted onto them.
func WithNoCursor(noCursor bool) Option {
	return func(c *Client, _ *[]rfbengine.Option) { c.noCursor = noCursor }
}

// Connect dials addr, runs the RFB handshake, and returns once
// ConnectionMade has fired, i.e. once ServerInit and the desktop name have
// arrived, just before the engine sends its initial update request. The connection
// is driven by an internal goroutine for the Client's lifetime; Close
// or the parent context ending stops it.
func Connect(ctx context.Context, network, addr string, opts ...Option) (*Client, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("rfbclient: dial %s %s: %w", network, addr, err)
	}
	tuneTCPConn(conn)

	runCtx, cancel := context.WithCancel(ctx)

	c := &Client{
		conn:      conn,
		logger:    slog.Default(),
		committed: make(chan struct{}),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		cancel:    cancel,
	}

	var engineOpts []rfbengine.Option
	for _, opt := range opts {
		opt(c, &engineOpts)
	}

	c.engine = rfbengine.New(conn, c, engineOpts...)

	go func() {
		err := c.engine.Run(runCtx)
		c.readyOne.Do(func() {
			c.readyErr = err
			close(c.ready)
		})
		c.doneErr = err
		close(c.done)
	}()

	select {
	case <-c.ready:
		if c.readyErr != nil {
			cancel()
			return nil, c.readyErr
		}
		return c, nil
	case <-ctx.Done():
		cancel()
		return nil, fmt.Errorf("rfbclient: connect: %w", ctx.Err())
	}
}

// tuneTCPConn disables Nagle's algorithm and enables TCP keepalive on a
// freshly dialed connection: interactive pointer/key events are small
// and latency-sensitive, the same way BFD's control packets cannot
// tolerate Nagle-induced coalescing delay. A no-op for non-TCP conn
// (net.Pipe in tests, or a non-TCP network the caller passed to
// Connect).
func tuneTCPConn(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(true)
	_ = tc.SetKeepAlive(true)
	_ = tc.SetKeepAlivePeriod(tcpKeepAlivePeriod)
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.cancel()
	<-c.done
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Wait blocks until the connection closes (for any reason) and returns
// the terminal error Engine.Run produced.
func (c *Client) Wait() error {
	<-c.done
	return c.doneErr
}

// Width returns the negotiated desktop width.
func (c *Client) Width() int { return c.engine.Width() }

// Height returns the negotiated desktop height.
func (c *Client) Height() int { return c.engine.Height() }

// Name returns the server-supplied desktop name.
func (c *Client) Name() string { return c.engine.Name() }

// -------------------------------------------------------------------------
// rfbengine.Observer
// -------------------------------------------------------------------------

// ConnectionMade signals Connect that the handshake completed.
func (c *Client) ConnectionMade() {
	c.readyOne.Do(func() { close(c.ready) })
}

// RequestPassword always fails: credentials must be supplied up front via
// WithCredentials at Connect time (spec.md §8 simplification — no
// interactive prompt surface in this facade).
func (c *Client) RequestPassword() (string, error) {
	return "", fmt.Errorf("rfbclient: no password configured: %w", rfbengine.ErrAuthRequired)
}

// RequestCredentials always fails, for the same reason as RequestPassword.
func (c *Client) RequestCredentials() (string, string, error) {
	return "", "", fmt.Errorf("rfbclient: no credentials configured: %w", rfbengine.ErrAuthRequired)
}

// AuthFailed logs the server's rejection reason.
func (c *Client) AuthFailed(reason string) {
	c.logger.Warn("rfb authentication failed", slog.String("reason", reason))
}

// Bell logs the server's bell notification.
func (c *Client) Bell() {
	c.logger.Info("rfb bell")
}

// CopyText records clipboard text the server pushed to the client.
func (c *Client) CopyText(text string) {
	c.mu.Lock()
	c.clipboard = append(c.clipboard, text)
	c.mu.Unlock()
}

// Clipboard returns every ServerCutText payload received so far, in
// arrival order.
func (c *Client) Clipboard() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.clipboard...)
}

// BeginUpdate is a no-op: the Client snapshots the frame buffer wholesale
// on CommitUpdate rather than tracking individual rectangles.
func (c *Client) BeginUpdate() {}

// CommitUpdate snapshots the engine's frame buffer and wakes any caller
// blocked in RefreshScreen/ExpectScreen.
func (c *Client) CommitUpdate(_ []rfbwire.Rectangle) {
	fb := c.engine.FrameBuffer()

	c.mu.Lock()
	c.width, c.height = fb.Width(), fb.Height()
	c.pix = append(c.pix[:0], fb.Pix()...)
	c.haveFrame = true
	done := c.committed
	c.committed = make(chan struct{})
	c.mu.Unlock()

	close(done)
}

// UpdateCursor stores the new cursor shape for compositing onto captured
// screens.
func (c *Client) UpdateCursor(cur *rfbwire.Cursor) {
	if c.noCursor {
		return
	}
	c.mu.Lock()
	c.cursor = cur
	c.mu.Unlock()
}

// UpdateDesktopSize is a no-op beyond logging: the next CommitUpdate
// snapshots the already-resized frame buffer.
func (c *Client) UpdateDesktopSize(width, height int) {
	c.logger.Info("rfb desktop resized", slog.Int("width", width), slog.Int("height", height))
}

// SetColorMap is a no-op: this facade only supports TrueColor pixel
// formats (the engine always negotiates RGB24).
func (c *Client) SetColorMap(int, [][3]uint16) {}

// AudioStreamBegin, AudioStreamData, and AudioStreamEnd are no-ops: audio
// playback is outside this facade's scope (spec.md §8 Non-goals).
func (c *Client) AudioStreamBegin()     {}
func (c *Client) AudioStreamData([]byte) {}
func (c *Client) AudioStreamEnd()       {}
