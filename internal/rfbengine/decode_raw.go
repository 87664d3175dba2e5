package rfbengine

// handleRectRaw decodes a Raw-encoded rectangle: w*h pixels, each bypp
// bytes, row-major (spec.md §4.4).
func (e *Engine) handleRectRaw(block []byte) error {
	rgb := e.pixelsToRGB(block)
	if err := e.fb.UpdateRectangle(int(e.ctx.rectX), int(e.ctx.rectY), int(e.ctx.rectW), int(e.ctx.rectH), rgb); err != nil {
		return e.closeWith(err)
	}
	return e.finishRect()
}

// handleRectCopyRect decodes a CopyRect rectangle: a 4-byte source
// position, copied into the destination named by the rectangle header
// (spec.md §4.4).
func (e *Engine) handleRectCopyRect(block []byte) error {
	srcX := int(beUint16(block[0:2]))
	srcY := int(beUint16(block[2:4]))
	if err := e.fb.CopyRectangle(srcX, srcY, int(e.ctx.rectX), int(e.ctx.rectY), int(e.ctx.rectW), int(e.ctx.rectH)); err != nil {
		return e.closeWith(err)
	}
	return e.finishRect()
}
