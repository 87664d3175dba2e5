package rfbwire_test

import (
	"bytes"
	"testing"

	"github.com/vncdotool/govnc/internal/rfbwire"
)

func TestEncoderSetPixelFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := rfbwire.NewEncoder(&buf)

	if err := enc.SetPixelFormat(rfbwire.RGB24); err != nil {
		t.Fatalf("SetPixelFormat: %v", err)
	}

	got := buf.Bytes()
	if len(got) != 4+rfbwire.PixelFormatSize {
		t.Fatalf("got %d bytes, want %d", len(got), 4+rfbwire.PixelFormatSize)
	}
	if got[0] != 0x00 {
		t.Errorf("message type = %#x, want 0x00", got[0])
	}
	if !bytes.Equal(got[1:4], []byte{0, 0, 0}) {
		t.Errorf("padding = %v, want zeros", got[1:4])
	}

	pf, err := rfbwire.UnmarshalPixelFormat(got[4:])
	if err != nil {
		t.Fatalf("UnmarshalPixelFormat: %v", err)
	}
	if !pf.Equal(rfbwire.RGB24) {
		t.Errorf("encoded pixel format = %+v, want RGB24", pf)
	}
}

func TestEncoderSetEncodings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := rfbwire.NewEncoder(&buf)

	encodings := []int32{0, 1, 5, -239}
	if err := enc.SetEncodings(encodings); err != nil {
		t.Fatalf("SetEncodings: %v", err)
	}

	want := []byte{
		0x02, 0x00, 0x00, 0x04,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x05,
		0xFF, 0xFF, 0xFF, 0x11, // -239 as int32
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
}

func TestEncoderFramebufferUpdateRequest(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := rfbwire.NewEncoder(&buf)

	if err := enc.FramebufferUpdateRequest(true, 10, 20, 640, 480); err != nil {
		t.Fatalf("FramebufferUpdateRequest: %v", err)
	}

	want := []byte{
		0x03, 0x01,
		0x00, 0x0A,
		0x00, 0x14,
		0x02, 0x80,
		0x01, 0xE0,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
}

func TestEncoderKeyEvent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := rfbwire.NewEncoder(&buf)

	if err := enc.KeyEvent(true, 0xFF0D); err != nil {
		t.Fatalf("KeyEvent: %v", err)
	}

	want := []byte{0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x0D}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
}

func TestEncoderPointerEvent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := rfbwire.NewEncoder(&buf)

	if err := enc.PointerEvent(0x05, 100, 200); err != nil {
		t.Fatalf("PointerEvent: %v", err)
	}

	want := []byte{0x05, 0x05, 0x00, 0x64, 0x00, 0xC8}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
}

func TestEncoderClientCutText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := rfbwire.NewEncoder(&buf)

	if err := enc.ClientCutText("hi"); err != nil {
		t.Fatalf("ClientCutText: %v", err)
	}

	want := []byte{0x06, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 'h', 'i'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}
}

func TestEncoderQEMUAudioBeginAndStop(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := rfbwire.NewEncoder(&buf)

	if err := enc.QEMUAudioBegin(0, 2, 44100); err != nil {
		t.Fatalf("QEMUAudioBegin: %v", err)
	}

	want := []byte{
		0xFF, 0x01, 0x00, 0x02, // set-format sub-message
		0x00, 0x02, // format, channels
		0x00, 0x00, 0xAC, 0x44, // freq 44100
		0xFF, 0x01, 0x00, 0x00, // start sub-message
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got %x, want %x", buf.Bytes(), want)
	}

	buf.Reset()
	if err := enc.QEMUAudioStop(); err != nil {
		t.Fatalf("QEMUAudioStop: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0xFF, 0x01, 0x00, 0x01}) {
		t.Errorf("got %x, want ff 01 00 01", buf.Bytes())
	}
}
