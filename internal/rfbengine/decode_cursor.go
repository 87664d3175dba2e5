package rfbengine

import "github.com/vncdotool/govnc/internal/rfbwire"

// maskRowBytesFor returns the padded per-row byte count of a
// width-w bitmask (spec.md §4.4, "PseudoCursor").
func maskRowBytesFor(w int) int {
	return (w + 7) / 8
}

// handleRectCursor decodes the cursor pseudo-encoding: an RGB image
// followed by a 1-bit-per-pixel mask. A zero width or height clears the
// cursor and returns immediately — the original implementation instead
// guarded on a stale truthiness check that left a previous cursor shape
// displayed in this case (spec.md §9, "do not replicate").
func (e *Engine) handleRectCursor(block []byte) error {
	w, h := int(e.ctx.rectW), int(e.ctx.rectH)
	if w == 0 || h == 0 {
		e.cursor = nil
		e.observer.UpdateCursor(nil)
		return e.finishRect()
	}

	bypp := e.bypp()
	imgLen := w * h * bypp
	image := e.pixelsToRGB(block[:imgLen])
	mask := append([]byte(nil), block[imgLen:]...)

	e.cursor = &rfbwire.Cursor{
		W: w, H: h,
		Image:  image,
		Mask:   mask,
		FocusX: int(e.ctx.rectX),
		FocusY: int(e.ctx.rectY),
	}
	e.observer.UpdateCursor(e.cursor)
	return e.finishRect()
}
