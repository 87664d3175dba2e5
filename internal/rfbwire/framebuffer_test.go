package rfbwire_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vncdotool/govnc/internal/rfbwire"
)

func TestNewFrameBufferZeroFilled(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(4, 3)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}
	if fb.Width() != 4 || fb.Height() != 3 {
		t.Fatalf("got %dx%d, want 4x3", fb.Width(), fb.Height())
	}
	want := make([]byte, 4*3*3)
	if !bytes.Equal(fb.Pix(), want) {
		t.Errorf("new frame buffer not zero-filled")
	}
}

func TestNewFrameBufferDimensionOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := rfbwire.NewFrameBuffer(rfbwire.MaxDimension, 10)
	if !errors.Is(err, rfbwire.ErrDimensionOutOfRange) {
		t.Fatalf("got %v, want ErrDimensionOutOfRange", err)
	}
}

func TestFrameBufferUpdateRectangle(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(4, 4)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}

	rgb := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 0,
	}
	if err := fb.UpdateRectangle(1, 1, 2, 2, rgb); err != nil {
		t.Fatalf("UpdateRectangle: %v", err)
	}

	got, err := fb.Crop(1, 1, 2, 2)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if !bytes.Equal(got, rgb) {
		t.Errorf("got %v, want %v", got, rgb)
	}
}

func TestFrameBufferUpdateRectangleOutOfBounds(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(4, 4)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}

	err = fb.UpdateRectangle(3, 3, 2, 2, make([]byte, 2*2*3))
	if !errors.Is(err, rfbwire.ErrRectOutOfBounds) {
		t.Fatalf("got %v, want ErrRectOutOfBounds", err)
	}
}

func TestFrameBufferUpdateRectangleSizeMismatch(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(4, 4)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}

	err = fb.UpdateRectangle(0, 0, 2, 2, make([]byte, 5))
	if !errors.Is(err, rfbwire.ErrPixelDataSize) {
		t.Fatalf("got %v, want ErrPixelDataSize", err)
	}
}

func TestFrameBufferFillRectangle(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(3, 3)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}

	if err := fb.FillRectangle(0, 0, 3, 3, [3]byte{10, 20, 30}); err != nil {
		t.Fatalf("FillRectangle: %v", err)
	}

	got, err := fb.Crop(1, 1, 1, 1)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if !bytes.Equal(got, []byte{10, 20, 30}) {
		t.Errorf("got %v, want [10 20 30]", got)
	}
}

func TestFrameBufferCopyRectangleNonOverlapping(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(4, 4)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}

	rgb := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if err := fb.UpdateRectangle(0, 0, 2, 2, rgb); err != nil {
		t.Fatalf("UpdateRectangle: %v", err)
	}
	if err := fb.CopyRectangle(0, 0, 2, 2, 2, 2); err != nil {
		t.Fatalf("CopyRectangle: %v", err)
	}

	got, err := fb.Crop(2, 2, 2, 2)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if !bytes.Equal(got, rgb) {
		t.Errorf("got %v, want %v", got, rgb)
	}
}

func TestFrameBufferCopyRectangleOverlapping(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(4, 4)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}

	for y := 0; y < 4; y++ {
		row := bytes.Repeat([]byte{byte(y), byte(y), byte(y)}, 4)
		if err := fb.UpdateRectangle(0, y, 4, 1, row); err != nil {
			t.Fatalf("UpdateRectangle row %d: %v", y, err)
		}
	}

	// Shift the top 3 rows down by one; destination overlaps source.
	if err := fb.CopyRectangle(0, 0, 0, 1, 4, 3); err != nil {
		t.Fatalf("CopyRectangle: %v", err)
	}

	for y := 1; y < 4; y++ {
		got, err := fb.Crop(0, y, 4, 1)
		if err != nil {
			t.Fatalf("Crop row %d: %v", y, err)
		}
		want := bytes.Repeat([]byte{byte(y - 1), byte(y - 1), byte(y - 1)}, 4)
		if !bytes.Equal(got, want) {
			t.Errorf("row %d: got %v, want %v", y, got, want)
		}
	}
}

func TestFrameBufferResizeGrowsAndPreservesContent(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(2, 2)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}

	rgb := []byte{1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4}
	if err := fb.UpdateRectangle(0, 0, 2, 2, rgb); err != nil {
		t.Fatalf("UpdateRectangle: %v", err)
	}

	if err := fb.Resize(4, 4); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if fb.Width() != 4 || fb.Height() != 4 {
		t.Fatalf("got %dx%d, want 4x4", fb.Width(), fb.Height())
	}

	got, err := fb.Crop(0, 0, 2, 2)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if !bytes.Equal(got, rgb) {
		t.Errorf("old content not preserved: got %v, want %v", got, rgb)
	}

	newRegion, err := fb.Crop(2, 2, 2, 2)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if !bytes.Equal(newRegion, make([]byte, 12)) {
		t.Errorf("new region not zero-filled: %v", newRegion)
	}
}

func TestFrameBufferResizeShrinkRejected(t *testing.T) {
	t.Parallel()

	fb, err := rfbwire.NewFrameBuffer(4, 4)
	if err != nil {
		t.Fatalf("NewFrameBuffer: %v", err)
	}

	err = fb.Resize(2, 2)
	if !errors.Is(err, rfbwire.ErrShrinkNotAllowed) {
		t.Fatalf("got %v, want ErrShrinkNotAllowed", err)
	}
}
