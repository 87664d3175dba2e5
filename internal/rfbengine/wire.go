package rfbengine

import "encoding/binary"

func beUint16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func beUint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
