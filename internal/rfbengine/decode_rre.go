package rfbengine

import "fmt"

// handleRectRREHeader reads RRE's subrectangle count and background
// pixel, fills the rectangle with that background, and queues up the
// subrectangle data (spec.md §4.4).
func (e *Engine) handleRectRREHeader(block []byte) error {
	nSub := beUint32(block[0:4])
	bg := e.pixelToRGB(block[4 : 4+e.bypp()])

	if err := e.fb.FillRectangle(int(e.ctx.rectX), int(e.ctx.rectY), int(e.ctx.rectW), int(e.ctx.rectH), bg); err != nil {
		return e.closeWith(err)
	}

	e.ctx.subrectsRemaining = nSub
	if nSub == 0 {
		return e.finishRect()
	}
	e.expect(stateRectRRESubrects, int(nSub)*(e.bypp()+8))
	return nil
}

// handleRectRRESubrects decodes RRE's subrectangles: each is a pixel
// value followed by 16-bit x, y, w, h (spec.md §4.4).
func (e *Engine) handleRectRRESubrects(block []byte) error {
	bypp := e.bypp()
	stride := bypp + 8
	for pos := 0; pos+stride <= len(block); pos += stride {
		color := e.pixelToRGB(block[pos : pos+bypp])
		x := int(beUint16(block[pos+bypp : pos+bypp+2]))
		y := int(beUint16(block[pos+bypp+2 : pos+bypp+4]))
		w := int(beUint16(block[pos+bypp+4 : pos+bypp+6]))
		h := int(beUint16(block[pos+bypp+6 : pos+bypp+8]))

		if err := e.fb.FillRectangle(int(e.ctx.rectX)+x, int(e.ctx.rectY)+y, w, h, color); err != nil {
			return e.closeWith(fmt.Errorf("rre subrect: %w", err))
		}
	}
	return e.finishRect()
}

// handleRectCoRREHeader reads CoRRE's subrectangle count and background
// pixel, identically to RRE but with byte-sized subrectangle bounds
// (spec.md §4.4).
func (e *Engine) handleRectCoRREHeader(block []byte) error {
	nSub := beUint32(block[0:4])
	bg := e.pixelToRGB(block[4 : 4+e.bypp()])

	if err := e.fb.FillRectangle(int(e.ctx.rectX), int(e.ctx.rectY), int(e.ctx.rectW), int(e.ctx.rectH), bg); err != nil {
		return e.closeWith(err)
	}

	e.ctx.subrectsRemaining = nSub
	if nSub == 0 {
		return e.finishRect()
	}
	e.expect(stateRectCoRRESubrects, int(nSub)*(e.bypp()+4))
	return nil
}

// handleRectCoRRESubrects decodes CoRRE's subrectangles: a pixel value
// followed by 8-bit x, y, w, h.
//
// The loop bound is pos+stride <= len(block) (i.e. "pos < end"), not a
// running byte-count compared against the rectangle's pixel area — the
// latter is an off-by-construction bug in the original implementation
// that silently drops or misreads the final subrectangle on certain
// sizes (spec.md §9, "do not replicate").
func (e *Engine) handleRectCoRRESubrects(block []byte) error {
	bypp := e.bypp()
	stride := bypp + 4
	end := len(block)
	for pos := 0; pos+stride <= end; pos += stride {
		color := e.pixelToRGB(block[pos : pos+bypp])
		x := int(block[pos+bypp])
		y := int(block[pos+bypp+1])
		w := int(block[pos+bypp+2])
		h := int(block[pos+bypp+3])

		if err := e.fb.FillRectangle(int(e.ctx.rectX)+x, int(e.ctx.rectY)+y, w, h, color); err != nil {
			return e.closeWith(fmt.Errorf("corre subrect: %w", err))
		}
	}
	return e.finishRect()
}
