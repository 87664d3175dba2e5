package rfbwire_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vncdotool/govnc/internal/rfbwire"
)

func TestPixelFormatMarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pf   rfbwire.PixelFormat
	}{
		{name: "rgb32", pf: rfbwire.RGB32},
		{name: "rgb24", pf: rfbwire.RGB24},
		{name: "bgr16", pf: rfbwire.BGR16},
		{name: "bgr", pf: rfbwire.BGR},
		{name: "bgrx", pf: rfbwire.BGRX},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf, err := tc.pf.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			if len(buf) != rfbwire.PixelFormatSize {
				t.Fatalf("got %d bytes, want %d", len(buf), rfbwire.PixelFormatSize)
			}

			got, err := rfbwire.UnmarshalPixelFormat(buf)
			if err != nil {
				t.Fatalf("UnmarshalPixelFormat: %v", err)
			}
			if !got.Equal(tc.pf) {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, tc.pf)
			}
		})
	}
}

func TestPixelFormatMarshalIsZeroPadded(t *testing.T) {
	t.Parallel()

	buf, err := rfbwire.RGB24.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if !bytes.Equal(buf[13:16], []byte{0, 0, 0}) {
		t.Errorf("padding bytes not zero: %x", buf[13:16])
	}
}

func TestUnmarshalPixelFormatWrongSize(t *testing.T) {
	t.Parallel()

	_, err := rfbwire.UnmarshalPixelFormat(make([]byte, 10))
	if !errors.Is(err, rfbwire.ErrPixelFormatSize) {
		t.Fatalf("got %v, want ErrPixelFormatSize", err)
	}
}

func TestPixelFormatValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pf      rfbwire.PixelFormat
		wantErr error
	}{
		{name: "rgb32 ok", pf: rfbwire.RGB32, wantErr: nil},
		{name: "rgb24 ok", pf: rfbwire.RGB24, wantErr: nil},
		{name: "bgr16 ok", pf: rfbwire.BGR16, wantErr: nil},
		{
			name:    "bad bpp",
			pf:      rfbwire.PixelFormat{BPP: 12, Depth: 12},
			wantErr: rfbwire.ErrInvalidBPP,
		},
		{
			name:    "depth exceeds bpp",
			pf:      rfbwire.PixelFormat{BPP: 8, Depth: 9},
			wantErr: rfbwire.ErrInvalidDepth,
		},
		{
			name:    "depth zero",
			pf:      rfbwire.PixelFormat{BPP: 8, Depth: 0},
			wantErr: rfbwire.ErrInvalidDepth,
		},
		{
			name: "color max not a mask",
			pf: rfbwire.PixelFormat{
				BPP: 32, Depth: 24, TrueColor: true,
				RedMax: 250, GreenMax: 255, BlueMax: 255,
			},
			wantErr: rfbwire.ErrInvalidColorMax,
		},
		{
			name: "shift overflows bpp",
			pf: rfbwire.PixelFormat{
				BPP: 16, Depth: 16, TrueColor: true,
				RedMax: 31, RedShift: 14,
				GreenMax: 63, GreenShift: 0,
				BlueMax: 31, BlueShift: 11,
			},
			wantErr: rfbwire.ErrInvalidColorShift,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.pf.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestPixelFormatBytesPerPixel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bpp  uint8
		want int
	}{
		{bpp: 8, want: 1},
		{bpp: 16, want: 2},
		{bpp: 24, want: 3},
		{bpp: 32, want: 4},
	}

	for _, tc := range tests {
		pf := rfbwire.PixelFormat{BPP: tc.bpp}
		if got := pf.BytesPerPixel(); got != tc.want {
			t.Errorf("BytesPerPixel(bpp=%d) = %d, want %d", tc.bpp, got, tc.want)
		}
	}
}

func TestKnownPixelFormatsContainsDistinctBGR(t *testing.T) {
	t.Parallel()

	if _, ok := rfbwire.KnownPixelFormats["BGR"]; !ok {
		t.Fatalf("KnownPixelFormats missing BGR entry")
	}
	if rfbwire.KnownPixelFormats["BGR"].Equal(rfbwire.RGB24) {
		t.Fatalf("BGR must not equal RGB24")
	}
}
