package rfbwire_test

import (
	"bytes"
	"testing"

	"github.com/vncdotool/govnc/internal/rfbwire"
)

func TestCursorCompositeOntoPastesMaskedPixels(t *testing.T) {
	t.Parallel()

	// 2x2 cursor: top-left and bottom-right pixels are "set" in the mask,
	// the other two are transparent. Mask rows pad to a whole byte.
	cur := &rfbwire.Cursor{
		W: 2, H: 2,
		Image: []byte{
			255, 0, 0, 0, 0, 0, // row0: red, (transparent)
			0, 0, 0, 0, 0, 255, // row1: (transparent), blue
		},
		Mask:   []byte{0b10000000, 0b01000000}, // row0 bit0 set, row1 bit1 set
		FocusX: 0, FocusY: 0,
	}

	dst := make([]byte, 4*4*3)
	cur.CompositeOnto(dst, 4, 4, 0, 0)

	offset := func(x, y int) int { return (y*4 + x) * 3 }

	if got := dst[offset(0, 0) : offset(0, 0)+3]; !bytes.Equal(got, []byte{255, 0, 0}) {
		t.Errorf("(0,0) = %v, want red", got)
	}
	if got := dst[offset(1, 0) : offset(1, 0)+3]; !bytes.Equal(got, []byte{0, 0, 0}) {
		t.Errorf("(1,0) should be untouched, got %v", got)
	}
	if got := dst[offset(1, 1) : offset(1, 1)+3]; !bytes.Equal(got, []byte{0, 0, 255}) {
		t.Errorf("(1,1) = %v, want blue", got)
	}
	if got := dst[offset(0, 1) : offset(0, 1)+3]; !bytes.Equal(got, []byte{0, 0, 0}) {
		t.Errorf("(0,1) should be untouched, got %v", got)
	}
}

func TestCursorCompositeOntoClipsToBounds(t *testing.T) {
	t.Parallel()

	cur := &rfbwire.Cursor{
		W: 2, H: 2,
		Image:  bytes.Repeat([]byte{1, 2, 3}, 4),
		Mask:   []byte{0b11000000, 0b11000000},
		FocusX: 0, FocusY: 0,
	}

	dst := make([]byte, 2*2*3)
	// Pointer near the bottom-right corner: cursor partially off-surface.
	cur.CompositeOnto(dst, 2, 2, 1, 1)

	// Only the (1,1) pixel of dst should have been touched.
	offset := func(x, y int) int { return (y*2 + x) * 3 }
	if got := dst[offset(1, 1) : offset(1, 1)+3]; !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("(1,1) = %v, want [1 2 3]", got)
	}
	if got := dst[offset(0, 0) : offset(0, 0)+3]; !bytes.Equal(got, []byte{0, 0, 0}) {
		t.Errorf("(0,0) should be untouched, got %v", got)
	}
}

func TestCursorCompositeOntoNilOrEmptyIsNoop(t *testing.T) {
	t.Parallel()

	dst := make([]byte, 2*2*3)
	want := make([]byte, 2*2*3)

	var nilCursor *rfbwire.Cursor
	nilCursor.CompositeOnto(dst, 2, 2, 0, 0)
	if !bytes.Equal(dst, want) {
		t.Errorf("nil cursor mutated dst: %v", dst)
	}

	zero := &rfbwire.Cursor{W: 0, H: 0}
	zero.CompositeOnto(dst, 2, 2, 0, 0)
	if !bytes.Equal(dst, want) {
		t.Errorf("zero-size cursor mutated dst: %v", dst)
	}
}
