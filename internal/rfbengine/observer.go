package rfbengine

import "github.com/vncdotool/govnc/internal/rfbwire"

// Observer is the capability interface the engine calls into as protocol
// events occur (spec.md §9: "callback inheritance → capability interface").
// The engine holds a handle to an Observer and never reaches upward into
// a derived type the way the original subclassing pattern did.
//
// All methods are called from the single goroutine running Engine.Run;
// implementations must not block indefinitely.
type Observer interface {
	// ConnectionMade fires once, after ServerInit, before the engine
	// enters the message-dispatch loop.
	ConnectionMade()

	// RequestPassword is called when VNC-DES authentication needs a
	// password the engine was not already configured with. Returning
	// an error aborts the handshake with ErrAuthRequired.
	RequestPassword() (string, error)

	// RequestCredentials is called when ARD authentication needs a
	// username/password pair the engine was not already configured
	// with. Returning an error aborts the handshake with
	// ErrAuthRequired.
	RequestCredentials() (username, password string, err error)

	// AuthFailed is called when the server rejects authentication,
	// with the server-supplied reason if one was sent.
	AuthFailed(reason string)

	// Bell is called on an unsolicited server bell.
	Bell()

	// CopyText surfaces server-side clipboard content.
	CopyText(text string)

	// BeginUpdate is called before a series of FrameBuffer mutations
	// for one FramebufferUpdate.
	BeginUpdate()

	// CommitUpdate is called once per FramebufferUpdate after every
	// one of its rectangles has been applied.
	CommitUpdate(rects []rfbwire.Rectangle)

	// UpdateCursor is called when the cursor pseudo-encoding changes
	// the cursor shape. cur is nil when the cursor was cleared
	// (zero width or height, spec.md §9).
	UpdateCursor(cur *rfbwire.Cursor)

	// UpdateDesktopSize is called when the desktop-resize
	// pseudo-encoding changes the surface dimensions.
	UpdateDesktopSize(width, height int)

	// SetColorMap surfaces a SetColourMapEntries message. colors are
	// (r,g,b) 16-bit-per-channel triples starting at index first.
	SetColorMap(first int, colors [][3]uint16)

	// AudioStreamBegin/Data/End surface the QEMU audio extension.
	AudioStreamBegin()
	AudioStreamData(data []byte)
	AudioStreamEnd()
}

// NoopObserver implements Observer with no-op methods. Embed it to
// implement only the callbacks a particular use case cares about.
type NoopObserver struct{}

func (NoopObserver) ConnectionMade() {}
func (NoopObserver) RequestPassword() (string, error) {
	return "", ErrAuthRequired
}
func (NoopObserver) RequestCredentials() (string, string, error) {
	return "", "", ErrAuthRequired
}
func (NoopObserver) AuthFailed(string)                {}
func (NoopObserver) Bell()                            {}
func (NoopObserver) CopyText(string)                  {}
func (NoopObserver) BeginUpdate()                     {}
func (NoopObserver) CommitUpdate([]rfbwire.Rectangle) {}
func (NoopObserver) UpdateCursor(*rfbwire.Cursor)     {}
func (NoopObserver) UpdateDesktopSize(int, int)       {}
func (NoopObserver) SetColorMap(int, [][3]uint16)     {}
func (NoopObserver) AudioStreamBegin()                {}
func (NoopObserver) AudioStreamData([]byte)           {}
func (NoopObserver) AudioStreamEnd()                  {}
