package rfbengine

// littleEndianUint assembles raw (1-4 bytes) into a uint32, least
// significant byte first.
func littleEndianUint(raw []byte) uint32 {
	var v uint32
	for i, b := range raw {
		v |= uint32(b) << (8 * uint(i))
	}
	return v
}

// bigEndianUint assembles raw (1-4 bytes) into a uint32, most
// significant byte first.
func bigEndianUint(raw []byte) uint32 {
	var v uint32
	for _, b := range raw {
		v = v<<8 | uint32(b)
	}
	return v
}

func (e *Engine) pixelValue(raw []byte) uint32 {
	if e.pixelFormat.BigEndian {
		return bigEndianUint(raw)
	}
	return littleEndianUint(raw)
}

// extractChannel pulls one color channel out of a packed pixel value
// and scales it from [0,max] to [0,255] (spec.md §3, PixelFormat
// shift/max fields).
func extractChannel(v uint32, shift uint8, maxVal uint16) byte {
	if maxVal == 0 {
		return 0
	}
	c := (v >> shift) & uint32(maxVal)
	return byte(c * 255 / uint32(maxVal)) //nolint:gosec // c is bounded by maxVal (<=65535) so the product fits uint32
}

// pixelToRGB converts one bypp-byte wire pixel to an RGB24 triple per
// the engine's negotiated PixelFormat.
func (e *Engine) pixelToRGB(raw []byte) [3]byte {
	v := e.pixelValue(raw)
	pf := e.pixelFormat
	return [3]byte{
		extractChannel(v, pf.RedShift, pf.RedMax),
		extractChannel(v, pf.GreenShift, pf.GreenMax),
		extractChannel(v, pf.BlueShift, pf.BlueMax),
	}
}

// pixelsToRGB converts a run of packed pixels into an RGB24 byte slice.
func (e *Engine) pixelsToRGB(raw []byte) []byte {
	bypp := e.bypp()
	n := len(raw) / bypp
	out := make([]byte, n*3)
	for i := 0; i < n; i++ {
		rgb := e.pixelToRGB(raw[i*bypp : (i+1)*bypp])
		copy(out[i*3:i*3+3], rgb[:])
	}
	return out
}
