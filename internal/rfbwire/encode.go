package rfbwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Client-to-server message type bytes (spec.md §4.5).
const (
	msgSetPixelFormat           = 0x00
	msgSetEncodings             = 0x02
	msgFramebufferUpdateRequest = 0x03
	msgKeyEvent                 = 0x04
	msgPointerEvent             = 0x05
	msgClientCutText            = 0x06
	msgQEMU                     = 0xFF
)

// QEMU extended sub-messages (spec.md §4.5). In the client->server
// direction op 0x0000 starts streaming, 0x0001 stops it, and
// qemuAudioOpData (0x0002) sets the sample format.
const (
	qemuAudio        = 0x01
	qemuAudioOpStart = 0x0000
	qemuAudioOpStop  = 0x0001
	qemuAudioOpData  = 0x0002
)

// Encoder serializes client-to-server RFB messages bit-exactly
// (spec.md §4.5, component G) and writes them immediately to w.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) write(buf []byte) error {
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("rfbwire: write: %w", err)
	}
	return nil
}

// SetPixelFormat sends: 0x00, pad3, pixelFormat(16).
func (e *Encoder) SetPixelFormat(pf PixelFormat) error {
	body, err := pf.MarshalBinary()
	if err != nil {
		return fmt.Errorf("rfbwire: marshal pixel format: %w", err)
	}

	buf := make([]byte, 4+PixelFormatSize)
	buf[0] = msgSetPixelFormat
	copy(buf[4:], body)

	return e.write(buf)
}

// SetEncodings sends: 0x02, pad1, count:u16, [encoding:i32]*.
func (e *Encoder) SetEncodings(encodings []int32) error {
	buf := make([]byte, 4+4*len(encodings))
	buf[0] = msgSetEncodings
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(encodings))) //nolint:gosec // bounded by caller, RFC field is 16 bits

	for i, enc := range encodings {
		binary.BigEndian.PutUint32(buf[4+4*i:8+4*i], uint32(enc)) //nolint:gosec // encoding values fit i32 by construction
	}

	return e.write(buf)
}

// FramebufferUpdateRequest sends: 0x03, incremental:u8, x,y,w,h:u16.
func (e *Encoder) FramebufferUpdateRequest(incremental bool, x, y, w, h uint16) error {
	buf := make([]byte, 10)
	buf[0] = msgFramebufferUpdateRequest
	buf[1] = boolByte(incremental)
	binary.BigEndian.PutUint16(buf[2:4], x)
	binary.BigEndian.PutUint16(buf[4:6], y)
	binary.BigEndian.PutUint16(buf[6:8], w)
	binary.BigEndian.PutUint16(buf[8:10], h)

	return e.write(buf)
}

// KeyEvent sends: 0x04, down:u8, pad2, keysym:u32.
func (e *Encoder) KeyEvent(down bool, keysym uint32) error {
	buf := make([]byte, 8)
	buf[0] = msgKeyEvent
	buf[1] = boolByte(down)
	binary.BigEndian.PutUint32(buf[4:8], keysym)

	return e.write(buf)
}

// PointerEvent sends: 0x05, buttonMask:u8, x,y:u16.
func (e *Encoder) PointerEvent(buttonMask uint8, x, y uint16) error {
	buf := make([]byte, 6)
	buf[0] = msgPointerEvent
	buf[1] = buttonMask
	binary.BigEndian.PutUint16(buf[2:4], x)
	binary.BigEndian.PutUint16(buf[4:6], y)

	return e.write(buf)
}

// ClientCutText sends: 0x06, pad3, length:u32, payload (ISO-8859-1).
func (e *Encoder) ClientCutText(text string) error {
	payload, err := encodeISO88591(text)
	if err != nil {
		return fmt.Errorf("rfbwire: encode clipboard text: %w", err)
	}

	buf := make([]byte, 8+len(payload))
	buf[0] = msgClientCutText
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload))) //nolint:gosec // clipboard payloads are bounded well under 2^32
	copy(buf[8:], payload)

	return e.write(buf)
}

// QEMUAudioBegin sends the two-message QEMU audio start sequence:
// 0xFF,0x01,0x0002,fmt,channels,freq:u32 (set format) then
// 0xFF,0x01,0x0000 (start streaming).
func (e *Encoder) QEMUAudioBegin(format, channels uint8, freq uint32) error {
	setup := make([]byte, 10)
	setup[0] = msgQEMU
	setup[1] = qemuAudio
	binary.BigEndian.PutUint16(setup[2:4], qemuAudioOpData)
	setup[4] = format
	setup[5] = channels
	binary.BigEndian.PutUint32(setup[6:10], freq)
	if err := e.write(setup); err != nil {
		return err
	}

	start := make([]byte, 4)
	start[0] = msgQEMU
	start[1] = qemuAudio
	binary.BigEndian.PutUint16(start[2:4], qemuAudioOpStart)

	return e.write(start)
}

// QEMUAudioStop sends: 0xFF, 0x01, 0x0001.
func (e *Encoder) QEMUAudioStop() error {
	buf := make([]byte, 4)
	buf[0] = msgQEMU
	buf[1] = qemuAudio
	binary.BigEndian.PutUint16(buf[2:4], qemuAudioOpStop)

	return e.write(buf)
}

// encodeISO88591 converts a Go string (UTF-8) into ISO-8859-1 bytes.
// Characters outside the Latin-1 range are replaced with '?'.
func encodeISO88591(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r <= 0xFF:
			out = append(out, byte(r))
		default:
			out = append(out, '?')
		}
	}
	return out, nil
}

// DecodeISO88591 converts ISO-8859-1 bytes (as sent in ServerCutText)
// into a Go string (UTF-8).
func DecodeISO88591(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
