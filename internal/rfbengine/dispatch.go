package rfbengine

import (
	"fmt"

	"github.com/vncdotool/govnc/internal/rfbwire"
)

// handleDispatch routes one server->client message by its type byte
// (spec.md §4.3, component E).
func (e *Engine) handleDispatch(block []byte) error {
	switch block[0] {
	case msgFramebufferUpdate:
		e.expect(stateUpdateHeader, 3)
	case msgSetColourMapEntries:
		e.expect(stateColorMapHeader, 5)
	case msgBell:
		e.observer.Bell()
		e.expect(stateDispatch, 1)
	case msgServerCutText:
		e.expect(stateCutTextHeader, 7)
	case msgQEMUServer:
		e.expect(stateQEMUSubtype, 1)
	default:
		return e.closeWith(fmt.Errorf("message type %#x: %w", block[0], ErrProtocolMismatch))
	}
	return nil
}

// handleUpdateHeader reads the padding byte and rectangle count of a
// FramebufferUpdate (spec.md §4.4).
func (e *Engine) handleUpdateHeader(block []byte) error {
	e.pendingRects = int(beUint16(block[1:3]))
	e.rectPositions = e.rectPositions[:0]
	e.observer.BeginUpdate()

	if e.pendingRects == 0 {
		return e.commitUpdate()
	}
	e.expect(stateRectHeader, 12)
	return nil
}

// commitUpdate notifies the observer that every rectangle of the
// current FramebufferUpdate has been applied, then returns to dispatch.
func (e *Engine) commitUpdate() error {
	e.observer.CommitUpdate(e.rectPositions)
	e.expect(stateDispatch, 1)
	return nil
}

// finishRect records the just-decoded rectangle's bounds and advances
// to the next rectangle header, or commits if that was the last one.
func (e *Engine) finishRect() error {
	e.rectPositions = append(e.rectPositions, rfbwire.Rectangle{
		X: e.ctx.rectX, Y: e.ctx.rectY, W: e.ctx.rectW, H: e.ctx.rectH,
	})
	e.pendingRects--
	if e.pendingRects <= 0 {
		return e.commitUpdate()
	}
	e.expect(stateRectHeader, 12)
	return nil
}

// handleRectHeader parses one rectangle header and dispatches to the
// decoder (or pseudo-encoding handler) named by its encoding
// (spec.md §4.4).
func (e *Engine) handleRectHeader(block []byte) error {
	e.ctx.rectX = beUint16(block[0:2])
	e.ctx.rectY = beUint16(block[2:4])
	e.ctx.rectW = beUint16(block[4:6])
	e.ctx.rectH = beUint16(block[6:8])
	e.ctx.rectEncoding = Encoding(int32(beUint32(block[8:12]))) //nolint:gosec // wire field is exactly int32

	if !e.negotiatedEncodings[e.ctx.rectEncoding] {
		return e.closeWith(fmt.Errorf("encoding %v: %w", e.ctx.rectEncoding, ErrUnsupportedEncoding))
	}

	switch e.ctx.rectEncoding {
	case EncodingPseudoLastRect:
		// spec.md §4.4: LastRect carries no data and means "stop early,
		// regardless of the rectangle count the header announced".
		e.pendingRects = 0
		return e.commitUpdate()

	case EncodingPseudoDesktopSize:
		if err := e.resizeDesktop(int(e.ctx.rectW), int(e.ctx.rectH)); err != nil {
			return e.closeWith(err)
		}
		e.pendingRects--
		if e.pendingRects <= 0 {
			return e.commitUpdate()
		}
		e.expect(stateRectHeader, 12)
		return nil

	case EncodingPseudoQEMUExtKey, EncodingPseudoQEMUAudio:
		// Capability markers: no payload follows the header.
		e.pendingRects--
		if e.pendingRects <= 0 {
			return e.commitUpdate()
		}
		e.expect(stateRectHeader, 12)
		return nil

	case EncodingRaw:
		e.expect(stateRectRaw, int(e.ctx.rectW)*int(e.ctx.rectH)*e.bypp())
	case EncodingCopyRect:
		e.expect(stateRectCopyRect, 4)
	case EncodingRRE:
		e.expect(stateRectRREHeader, 4+e.bypp())
	case EncodingCoRRE:
		e.expect(stateRectCoRREHeader, 4+e.bypp())
	case EncodingHextile:
		e.ctx.hextileTX, e.ctx.hextileTY = 0, 0
		e.ctx.hextileBG, e.ctx.hextileFG = [3]byte{}, [3]byte{}
		e.expect(stateRectHextileTile, 1)
	case EncodingZRLE:
		e.expect(stateRectZRLELength, 4)
	case EncodingPseudoCursor:
		maskLen := maskRowBytesFor(int(e.ctx.rectW)) * int(e.ctx.rectH)
		e.expect(stateRectCursor, int(e.ctx.rectW)*int(e.ctx.rectH)*e.bypp()+maskLen)
	default:
		return e.closeWith(fmt.Errorf("rectangle encoding %v: %w", e.ctx.rectEncoding, ErrUnsupportedEncoding))
	}
	return nil
}

// resizeDesktop handles the desktop-resize pseudo-encoding
// (spec.md §4.4: "grow the frame buffer in place, preserving content").
func (e *Engine) resizeDesktop(width, height int) error {
	if err := e.fb.Resize(width, height); err != nil {
		return fmt.Errorf("desktop resize: %w", err)
	}
	e.width, e.height = width, height
	e.observer.UpdateDesktopSize(width, height)
	return nil
}

// handleColorMapHeader reads the SetColourMapEntries header
// (spec.md §4.3).
func (e *Engine) handleColorMapHeader(block []byte) error {
	e.ctx.colorMapFirst = beUint16(block[1:3])
	e.ctx.colorMapCount = beUint16(block[3:5])
	e.expect(stateColorMapValues, int(e.ctx.colorMapCount)*6)
	return nil
}

func (e *Engine) handleColorMapValues(block []byte) error {
	colors := make([][3]uint16, e.ctx.colorMapCount)
	for i := range colors {
		off := i * 6
		colors[i] = [3]uint16{
			beUint16(block[off : off+2]),
			beUint16(block[off+2 : off+4]),
			beUint16(block[off+4 : off+6]),
		}
	}
	e.observer.SetColorMap(int(e.ctx.colorMapFirst), colors)
	e.expect(stateDispatch, 1)
	return nil
}

// handleCutTextHeader reads the ServerCutText length header
// (spec.md §4.3).
func (e *Engine) handleCutTextHeader(block []byte) error {
	e.ctx.waitFor = beUint32(block[3:7])
	e.expect(stateCutTextValue, int(e.ctx.waitFor))
	return nil
}

func (e *Engine) handleCutTextValue(block []byte) error {
	e.observer.CopyText(rfbwire.DecodeISO88591(block))
	e.expect(stateDispatch, 1)
	return nil
}

// handleQEMUSubtype reads the QEMU extension's sub-message type
// (spec.md §9, "SUPPLEMENTED FEATURES: QEMU audio extension"). Only the
// audio sub-message is handled server->client; anything else is
// malformed since this client never negotiates other QEMU server
// extensions.
func (e *Engine) handleQEMUSubtype(block []byte) error {
	if block[0] != qemuAudio {
		return e.closeWith(fmt.Errorf("qemu submessage %d: %w", block[0], ErrUnsupportedEncoding))
	}
	e.expect(stateQEMUAudioOp, 2)
	return nil
}

// handleQEMUAudioOp dispatches on the QEMU audio op (spec.md §4.4):
// stream-end and stream-begin are data-free notifications that return
// straight to dispatch, while stream-data carries a 4-byte size header
// followed by the PCM payload.
func (e *Engine) handleQEMUAudioOp(block []byte) error {
	switch beUint16(block) {
	case qemuAudioOpStop:
		e.observer.AudioStreamEnd()
		e.expect(stateDispatch, 1)
	case qemuAudioOpStart:
		e.observer.AudioStreamBegin()
		e.expect(stateDispatch, 1)
	case qemuAudioOpData:
		e.expect(stateQEMUAudioSize, 4)
	default:
		return e.closeWith(fmt.Errorf("qemu audio op %d: %w", beUint16(block), ErrUnsupportedEncoding))
	}
	return nil
}

func (e *Engine) handleQEMUAudioSize(block []byte) error {
	e.ctx.qemuAudioSize = beUint32(block)
	e.expect(stateQEMUAudioData, int(e.ctx.qemuAudioSize))
	return nil
}

func (e *Engine) handleQEMUAudioData(block []byte) error {
	e.observer.AudioStreamData(block)
	e.expect(stateDispatch, 1)
	return nil
}
