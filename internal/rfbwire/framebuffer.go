package rfbwire

import (
	"errors"
	"fmt"
)

// MaxDimension is the exclusive upper bound on width/height (spec.md §3:
// "width and height each in [0, 0x10000)").
const MaxDimension = 0x10000

// Sentinel errors for frame buffer operations.
var (
	// ErrDimensionOutOfRange indicates a width or height is >= MaxDimension.
	ErrDimensionOutOfRange = errors.New("frame buffer: dimension out of range")

	// ErrShrinkNotAllowed indicates a Resize call requested a smaller
	// surface than the current one (spec.md §3: "Resize is monotone
	// upward during lifetime").
	ErrShrinkNotAllowed = errors.New("frame buffer: resize must be monotone")

	// ErrRectOutOfBounds indicates a rectangle operation falls outside
	// the current surface.
	ErrRectOutOfBounds = errors.New("frame buffer: rectangle out of bounds")

	// ErrPixelDataSize indicates a pixel payload's length does not match
	// the rectangle's area times 3 (RGB24).
	ErrPixelDataSize = errors.New("frame buffer: pixel data size mismatch")
)

// Rectangle is a rectangular region of the frame buffer (spec.md §3).
type Rectangle struct {
	X, Y, W, H uint16
}

// FrameBuffer owns a dynamically resizable RGB24 pixel grid (spec.md §3,
// component B). Mutated only by the rectangle decoders and the cursor
// overlay; it has no knowledge of the wire protocol.
type FrameBuffer struct {
	width, height int
	pix           []byte // width*height*3, row-major, RGB triples
}

// NewFrameBuffer creates a zero-filled FrameBuffer of the given size.
func NewFrameBuffer(width, height int) (*FrameBuffer, error) {
	if width < 0 || width >= MaxDimension || height < 0 || height >= MaxDimension {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrDimensionOutOfRange)
	}
	return &FrameBuffer{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*3),
	}, nil
}

// Width returns the current surface width.
func (fb *FrameBuffer) Width() int { return fb.width }

// Height returns the current surface height.
func (fb *FrameBuffer) Height() int { return fb.height }

// Pix returns the raw RGB24 backing slice, row-major, 3 bytes per pixel.
// Callers must not retain it past the next mutating call.
func (fb *FrameBuffer) Pix() []byte { return fb.pix }

func (fb *FrameBuffer) offset(x, y int) int {
	return (y*fb.width + x) * 3
}

func (fb *FrameBuffer) contains(x, y, w, h int) bool {
	return x >= 0 && y >= 0 && w >= 0 && h >= 0 &&
		x+w <= fb.width && y+h <= fb.height
}

// UpdateRectangle writes raw RGB24 bytes (w*h*3 of them) into the
// rectangle at (x,y) (spec.md §4.4: "updateRectangle(x,y,w,h,raw_rgb_bytes)").
func (fb *FrameBuffer) UpdateRectangle(x, y, w, h int, rgb []byte) error {
	if !fb.contains(x, y, w, h) {
		return fmt.Errorf("(%d,%d,%d,%d) in %dx%d: %w", x, y, w, h, fb.width, fb.height, ErrRectOutOfBounds)
	}
	if len(rgb) != w*h*3 {
		return fmt.Errorf("got %d bytes, want %d: %w", len(rgb), w*h*3, ErrPixelDataSize)
	}

	for row := 0; row < h; row++ {
		dst := fb.offset(x, y+row)
		src := row * w * 3
		copy(fb.pix[dst:dst+w*3], rgb[src:src+w*3])
	}

	return nil
}

// FillRectangle fills (x,y,w,h) with a single RGB24 color
// (spec.md §4.4: "fillRectangle(x,y,w,h,color_bytes)").
func (fb *FrameBuffer) FillRectangle(x, y, w, h int, color [3]byte) error {
	if !fb.contains(x, y, w, h) {
		return fmt.Errorf("(%d,%d,%d,%d) in %dx%d: %w", x, y, w, h, fb.width, fb.height, ErrRectOutOfBounds)
	}

	for row := 0; row < h; row++ {
		dst := fb.offset(x, y+row)
		for col := 0; col < w; col++ {
			copy(fb.pix[dst+col*3:dst+col*3+3], color[:])
		}
	}

	return nil
}

// CopyRectangle copies a w x h region from (srcX,srcY) to (x,y)
// (spec.md §4.4 CopyRect). Source and destination regions may overlap.
func (fb *FrameBuffer) CopyRectangle(srcX, srcY, x, y, w, h int) error {
	if !fb.contains(srcX, srcY, w, h) || !fb.contains(x, y, w, h) {
		return fmt.Errorf("src(%d,%d) dst(%d,%d) %dx%d in %dx%d: %w",
			srcX, srcY, x, y, w, h, fb.width, fb.height, ErrRectOutOfBounds)
	}

	// Copy row by row, choosing direction so overlapping src/dst regions
	// do not corrupt unread source rows.
	rowBytes := w * 3
	if y <= srcY {
		for row := 0; row < h; row++ {
			copy(fb.pix[fb.offset(x, y+row):fb.offset(x, y+row)+rowBytes],
				fb.pix[fb.offset(srcX, srcY+row):fb.offset(srcX, srcY+row)+rowBytes])
		}
	} else {
		for row := h - 1; row >= 0; row-- {
			copy(fb.pix[fb.offset(x, y+row):fb.offset(x, y+row)+rowBytes],
				fb.pix[fb.offset(srcX, srcY+row):fb.offset(srcX, srcY+row)+rowBytes])
		}
	}

	return nil
}

// Resize grows the surface to (width,height), preserving existing
// contents at the origin and zero-filling the new region
// (spec.md §3: "Resize is monotone upward... existing contents are
// preserved and the new region is zero-filled").
func (fb *FrameBuffer) Resize(width, height int) error {
	if width < 0 || width >= MaxDimension || height < 0 || height >= MaxDimension {
		return fmt.Errorf("%dx%d: %w", width, height, ErrDimensionOutOfRange)
	}
	if width < fb.width || height < fb.height {
		return fmt.Errorf("%dx%d -> %dx%d: %w", fb.width, fb.height, width, height, ErrShrinkNotAllowed)
	}

	newPix := make([]byte, width*height*3)
	for row := 0; row < fb.height; row++ {
		srcOff := fb.offset(0, row)
		dstOff := (row*width + 0) * 3
		copy(newPix[dstOff:dstOff+fb.width*3], fb.pix[srcOff:srcOff+fb.width*3])
	}

	fb.width = width
	fb.height = height
	fb.pix = newPix

	return nil
}

// Crop returns a copy of the RGB24 bytes within (x,y,w,h).
func (fb *FrameBuffer) Crop(x, y, w, h int) ([]byte, error) {
	if !fb.contains(x, y, w, h) {
		return nil, fmt.Errorf("(%d,%d,%d,%d) in %dx%d: %w", x, y, w, h, fb.width, fb.height, ErrRectOutOfBounds)
	}

	out := make([]byte, w*h*3)
	for row := 0; row < h; row++ {
		src := fb.offset(x, y+row)
		dst := row * w * 3
		copy(out[dst:dst+w*3], fb.pix[src:src+w*3])
	}

	return out, nil
}
