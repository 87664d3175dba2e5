// Package rfbwire implements the RFB wire-level data types: the pixel
// format descriptor, the RGB24 frame buffer, and the client-to-server
// message encoder. It has no knowledge of handshake state or rectangle
// decoding (internal/rfbengine); it only knows how bytes on the wire map
// to Go values and vice versa.
package rfbwire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PixelFormatSize is the on-wire size of a PixelFormat: "!BB??HHHBBBxxx".
const PixelFormatSize = 16

// Sentinel errors for pixel format validation and decoding.
var (
	// ErrPixelFormatSize indicates the byte slice is not exactly
	// PixelFormatSize bytes long.
	ErrPixelFormatSize = errors.New("pixel format: wrong byte count")

	// ErrInvalidBPP indicates bits-per-pixel is not one of 8/16/24/32.
	ErrInvalidBPP = errors.New("pixel format: bits-per-pixel must be 8, 16, 24, or 32")

	// ErrInvalidDepth indicates depth is outside [1, bpp].
	ErrInvalidDepth = errors.New("pixel format: depth out of range")

	// ErrInvalidColorMax indicates a color max is not 2^n-1.
	ErrInvalidColorMax = errors.New("pixel format: color max is not 2^n-1")

	// ErrInvalidColorShift indicates a color shift does not fit within bpp.
	ErrInvalidColorShift = errors.New("pixel format: color shift out of range")
)

// PixelFormat describes the byte layout of one pixel on the wire
// (RFC 6143 Section 7.4). It is an immutable value type.
type PixelFormat struct {
	BPP        uint8 // bits-per-pixel: 8, 16, 24, or 32
	Depth      uint8 // color depth in [1, BPP]
	BigEndian  bool
	TrueColor  bool
	RedMax     uint16 // 2^n - 1
	GreenMax   uint16
	BlueMax    uint16
	RedShift   uint8
	GreenShift uint8
	BlueShift  uint8
}

// BytesPerPixel returns ceil(BPP/8).
func (pf PixelFormat) BytesPerPixel() int {
	return (int(pf.BPP) + 7) / 8
}

// Validate checks the invariants from spec.md §3: bpp in {8,16,24,32};
// depth in [1,bpp]; each *Max is 2^n-1; each *Shift fits within
// bpp-bitlen(max).
func (pf PixelFormat) Validate() error {
	switch pf.BPP {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("bpp=%d: %w", pf.BPP, ErrInvalidBPP)
	}

	if pf.Depth < 1 || pf.Depth > pf.BPP {
		return fmt.Errorf("depth=%d bpp=%d: %w", pf.Depth, pf.BPP, ErrInvalidDepth)
	}

	for name, max := range map[string]uint16{"red": pf.RedMax, "green": pf.GreenMax, "blue": pf.BlueMax} {
		if !isMaxMask(max) {
			return fmt.Errorf("%s max=%d: %w", name, max, ErrInvalidColorMax)
		}
	}

	shifts := []struct {
		name  string
		shift uint8
		max   uint16
	}{
		{"red", pf.RedShift, pf.RedMax},
		{"green", pf.GreenShift, pf.GreenMax},
		{"blue", pf.BlueShift, pf.BlueMax},
	}
	for _, s := range shifts {
		if int(s.shift)+bitLen(s.max) > int(pf.BPP) {
			return fmt.Errorf("%s shift=%d max=%d bpp=%d: %w",
				s.name, s.shift, s.max, pf.BPP, ErrInvalidColorShift)
		}
	}

	return nil
}

// isMaxMask reports whether v == 2^n-1 for some n >= 0.
func isMaxMask(v uint16) bool {
	return v != 0 && (v&(v+1)) == 0 || v == 0
}

// bitLen returns the number of bits needed to represent v (0 for v==0).
func bitLen(v uint16) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// MarshalBinary encodes pf as the 16-byte wire format
// "!BB??HHHBBBxxx" (RFC 6143 Section 7.4).
func (pf PixelFormat) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PixelFormatSize)

	buf[0] = pf.BPP
	buf[1] = pf.Depth
	buf[2] = boolByte(pf.BigEndian)
	buf[3] = boolByte(pf.TrueColor)
	binary.BigEndian.PutUint16(buf[4:6], pf.RedMax)
	binary.BigEndian.PutUint16(buf[6:8], pf.GreenMax)
	binary.BigEndian.PutUint16(buf[8:10], pf.BlueMax)
	buf[10] = pf.RedShift
	buf[11] = pf.GreenShift
	buf[12] = pf.BlueShift
	// buf[13:16] are padding, left zero.

	return buf, nil
}

// UnmarshalPixelFormat decodes a 16-byte wire PixelFormat.
func UnmarshalPixelFormat(buf []byte) (PixelFormat, error) {
	if len(buf) != PixelFormatSize {
		return PixelFormat{}, fmt.Errorf("got %d bytes: %w", len(buf), ErrPixelFormatSize)
	}

	return PixelFormat{
		BPP:        buf[0],
		Depth:      buf[1],
		BigEndian:  buf[2] != 0,
		TrueColor:  buf[3] != 0,
		RedMax:     binary.BigEndian.Uint16(buf[4:6]),
		GreenMax:   binary.BigEndian.Uint16(buf[6:8]),
		BlueMax:    binary.BigEndian.Uint16(buf[8:10]),
		RedShift:   buf[10],
		GreenShift: buf[11],
		BlueShift:  buf[12],
	}, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Well-known pixel formats (SPEC_FULL.md §12, from
// original_source/vncdotool/client.py's PF2IM table).
var (
	// RGB32 is the client's default pixel format before ServerInit
	// (spec.md §6).
	RGB32 = PixelFormat{
		BPP: 32, Depth: 24, BigEndian: false, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 16, GreenShift: 8, BlueShift: 0,
	}

	// RGB24 is the canonical in-memory host format (spec.md §6).
	RGB24 = PixelFormat{
		BPP: 24, Depth: 24, BigEndian: false, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 16, GreenShift: 8, BlueShift: 0,
	}

	// BGR16 is a 16-bit 5-6-5 format with blue in the high bits.
	BGR16 = PixelFormat{
		BPP: 16, Depth: 16, BigEndian: false, TrueColor: true,
		RedMax: 31, GreenMax: 63, BlueMax: 31,
		RedShift: 0, GreenShift: 5, BlueShift: 11,
	}

	// BGR is a 24-bit reversed-channel format.
	BGR = PixelFormat{
		BPP: 24, Depth: 24, BigEndian: false, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 0, GreenShift: 8, BlueShift: 16,
	}

	// BGRX is a 32-bit reversed-channel format with a padding byte.
	BGRX = PixelFormat{
		BPP: 32, Depth: 24, BigEndian: false, TrueColor: true,
		RedMax: 255, GreenMax: 255, BlueMax: 255,
		RedShift: 0, GreenShift: 8, BlueShift: 16,
	}
)

// KnownPixelFormats maps a name to each well-known format. The engine
// does not consult it: after ServerInit it always requests RGB24, with
// no lookup of the server's format and no BGR16/RGB32 fallback.
var KnownPixelFormats = map[string]PixelFormat{
	"RGB24": RGB24,
	"RGB32": RGB32,
	"BGR16": BGR16,
	"BGR":   BGR,
	"BGRX":  BGRX,
}

// Equal reports whether two pixel formats describe the same layout.
func (pf PixelFormat) Equal(other PixelFormat) bool {
	return pf == other
}
