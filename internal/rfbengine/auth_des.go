package rfbengine

import "crypto/des"

// fixDESKeyByte reverses the bit order within one byte. VNC-DES mangles
// the client's password by bit-reversing each key byte before using it
// as a DES key (spec.md §4.2 step 4, "VNC-DES authentication").
func fixDESKeyByte(b byte) byte {
	var out byte
	for i := 0; i < 8; i++ {
		if b&(1<<uint(i)) != 0 {
			out |= 1 << uint(7-i)
		}
	}
	return out
}

// vncDESKey NUL-pads or truncates password to 8 bytes and bit-reverses
// each byte to form the DES key.
func vncDESKey(password string) []byte {
	key := make([]byte, 8)
	copy(key, password)
	for i := range key {
		key[i] = fixDESKeyByte(key[i])
	}
	return key
}

// vncDESResponse encrypts a 16-byte challenge with the password-derived
// DES key, one 8-byte ECB block at a time.
func vncDESResponse(password string, challenge []byte) []byte {
	key := vncDESKey(password)
	block, err := des.NewCipher(key)
	if err != nil {
		// des.NewCipher only rejects wrong-length keys; vncDESKey always
		// returns exactly 8 bytes.
		panic(err)
	}

	response := make([]byte, len(challenge))
	for i := 0; i+8 <= len(challenge); i += 8 {
		block.Encrypt(response[i:i+8], challenge[i:i+8])
	}
	return response
}
