package rfbengine

import "fmt"

// hextileTileBounds returns the current tile's width and height,
// shrunk at the rectangle's right/bottom edge (spec.md §4.4: tiles are
// 16x16 except the last row/column of a rectangle).
func (e *Engine) hextileTileBounds() (int, int) {
	tw := 16
	if int(e.ctx.hextileTX)+16 > int(e.ctx.rectW) {
		tw = int(e.ctx.rectW) - int(e.ctx.hextileTX)
	}
	th := 16
	if int(e.ctx.hextileTY)+16 > int(e.ctx.rectH) {
		th = int(e.ctx.rectH) - int(e.ctx.hextileTY)
	}
	return tw, th
}

// hextileNextTile advances to the next tile in row-major order, or
// finishes the rectangle once every tile has been consumed.
func (e *Engine) hextileNextTile() error {
	e.ctx.hextileTX += 16
	if int(e.ctx.hextileTX) >= int(e.ctx.rectW) {
		e.ctx.hextileTX = 0
		e.ctx.hextileTY += 16
	}
	if int(e.ctx.hextileTY) >= int(e.ctx.rectH) {
		return e.finishRect()
	}
	e.expect(stateRectHextileTile, 1)
	return nil
}

// handleRectHextileTile reads one tile's subencoding byte and queues up
// whatever that flag combination requires next (spec.md §4.4).
func (e *Engine) handleRectHextileTile(block []byte) error {
	flags := block[0]
	e.ctx.hextileSubencoding = flags
	bypp := e.bypp()

	if flags&hextileRaw != 0 {
		tw, th := e.hextileTileBounds()
		e.expect(stateRectHextileRaw, tw*th*bypp)
		return nil
	}

	headerSize := 0
	if flags&hextileBackgroundSpecified != 0 {
		headerSize += bypp
	}
	if flags&hextileForegroundSpecified != 0 {
		headerSize += bypp
	}
	if flags&hextileAnySubrects != 0 {
		headerSize++
	}

	if headerSize == 0 {
		return e.hextileFillBackground()
	}
	e.expect(stateRectHextileSubrectHeader, headerSize)
	return nil
}

// hextileFillBackground paints the current tile with the persisted
// background color and advances.
func (e *Engine) hextileFillBackground() error {
	tw, th := e.hextileTileBounds()
	x := int(e.ctx.rectX) + int(e.ctx.hextileTX)
	y := int(e.ctx.rectY) + int(e.ctx.hextileTY)
	if err := e.fb.FillRectangle(x, y, tw, th, e.ctx.hextileBG); err != nil {
		return e.closeWith(fmt.Errorf("hextile tile: %w", err))
	}
	return e.hextileNextTile()
}

// handleRectHextileSubrectHeader reads the optional background and
// foreground colors and the optional subrectangle count, fills the
// tile's background, and queues up the subrectangle byte stream
// (spec.md §4.4).
func (e *Engine) handleRectHextileSubrectHeader(block []byte) error {
	flags := e.ctx.hextileSubencoding
	bypp := e.bypp()
	off := 0

	if flags&hextileBackgroundSpecified != 0 {
		e.ctx.hextileBG = e.pixelToRGB(block[off : off+bypp])
		off += bypp
	}
	if flags&hextileForegroundSpecified != 0 {
		e.ctx.hextileFG = e.pixelToRGB(block[off : off+bypp])
		off += bypp
	}

	x := int(e.ctx.rectX) + int(e.ctx.hextileTX)
	y := int(e.ctx.rectY) + int(e.ctx.hextileTY)
	tw, th := e.hextileTileBounds()
	if err := e.fb.FillRectangle(x, y, tw, th, e.ctx.hextileBG); err != nil {
		return e.closeWith(fmt.Errorf("hextile tile: %w", err))
	}

	if flags&hextileAnySubrects == 0 {
		return e.hextileNextTile()
	}

	count := int(block[off])
	if count == 0 {
		return e.hextileNextTile()
	}
	if flags&hextileSubrectsColoured != 0 {
		e.expect(stateRectHextileSubrectsColoured, count*(bypp+2))
	} else {
		e.expect(stateRectHextileSubrectsFG, count*2)
	}
	return nil
}

// handleRectHextileRaw decodes a raw-encoded tile: no bg/fg, just
// packed pixels (spec.md §4.4).
func (e *Engine) handleRectHextileRaw(block []byte) error {
	tw, th := e.hextileTileBounds()
	rgb := e.pixelsToRGB(block)
	x := int(e.ctx.rectX) + int(e.ctx.hextileTX)
	y := int(e.ctx.rectY) + int(e.ctx.hextileTY)
	if err := e.fb.UpdateRectangle(x, y, tw, th, rgb); err != nil {
		return e.closeWith(err)
	}
	return e.hextileNextTile()
}

// hextileSubrectXYWH decodes one subrectangle's packed position/size
// byte pair: x/y are 4-bit nibbles, w/h are 4-bit nibbles biased by 1
// (spec.md §4.4).
func hextileSubrectXYWH(xy, wh byte) (sx, sy, sw, sh int) {
	sx = int(xy >> 4)
	sy = int(xy & 0x0F)
	sw = int(wh>>4) + 1
	sh = int(wh&0x0F) + 1
	return
}

// handleRectHextileSubrectsColoured decodes per-subrectangle colored
// subrects: each is a pixel value followed by the xy/wh byte pair.
func (e *Engine) handleRectHextileSubrectsColoured(block []byte) error {
	bypp := e.bypp()
	stride := bypp + 2
	tx, ty := int(e.ctx.rectX)+int(e.ctx.hextileTX), int(e.ctx.rectY)+int(e.ctx.hextileTY)

	for pos := 0; pos+stride <= len(block); pos += stride {
		color := e.pixelToRGB(block[pos : pos+bypp])
		sx, sy, sw, sh := hextileSubrectXYWH(block[pos+bypp], block[pos+bypp+1])
		if err := e.fb.FillRectangle(tx+sx, ty+sy, sw, sh, color); err != nil {
			return e.closeWith(fmt.Errorf("hextile subrect: %w", err))
		}
	}
	return e.hextileNextTile()
}

// handleRectHextileSubrectsFG decodes subrects that all share the
// tile's persisted foreground color: just the xy/wh byte pair each.
func (e *Engine) handleRectHextileSubrectsFG(block []byte) error {
	tx, ty := int(e.ctx.rectX)+int(e.ctx.hextileTX), int(e.ctx.rectY)+int(e.ctx.hextileTY)

	for pos := 0; pos+2 <= len(block); pos += 2 {
		sx, sy, sw, sh := hextileSubrectXYWH(block[pos], block[pos+1])
		if err := e.fb.FillRectangle(tx+sx, ty+sy, sw, sh, e.ctx.hextileFG); err != nil {
			return e.closeWith(fmt.Errorf("hextile subrect: %w", err))
		}
	}
	return e.hextileNextTile()
}
