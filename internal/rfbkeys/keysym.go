// Package rfbkeys provides the X11 keysym constants and name-to-keysym
// lookup the RFB KeyEvent message (spec.md §8, component H) needs to turn
// a human-typed key name into the wire value RFC 6143 §7.5.4 calls
// "keysym". Printable ASCII/Latin-1 characters use their own code point as
// the keysym (RFC 6143 §7.5.4: "For most ordinary keys, the keysym...
// corresponds to the printable ASCII/Latin-1 character"); everything else
// needs one of the named constants below.
package rfbkeys

// Keysym is an X11 keysym value, the unit KeyEvent transmits
// (spec.md §8: "keyDown/keyUp/keyPress resolve a key name to a keysym").
type Keysym uint32

// Named keysyms for keys with no printable representation (RFC 6143
// §7.5.4's non-ASCII keysym examples; values match the X11 keysymdef.h
// space vncdotool's rfb.py reuses verbatim).
const (
	KeyBackSpace Keysym = 0xFF08
	KeyTab       Keysym = 0xFF09
	KeyReturn    Keysym = 0xFF0D
	KeyEscape    Keysym = 0xFF1B
	KeyInsert    Keysym = 0xFF63
	KeyDelete    Keysym = 0xFFFF
	KeyHome      Keysym = 0xFF50
	KeyEnd       Keysym = 0xFF57
	KeyPageUp    Keysym = 0xFF55
	KeyPageDown  Keysym = 0xFF56
	KeyLeft      Keysym = 0xFF51
	KeyUp        Keysym = 0xFF52
	KeyRight     Keysym = 0xFF53
	KeyDown      Keysym = 0xFF54

	KeyF1  Keysym = 0xFFBE
	KeyF2  Keysym = 0xFFBF
	KeyF3  Keysym = 0xFFC0
	KeyF4  Keysym = 0xFFC1
	KeyF5  Keysym = 0xFFC2
	KeyF6  Keysym = 0xFFC3
	KeyF7  Keysym = 0xFFC4
	KeyF8  Keysym = 0xFFC5
	KeyF9  Keysym = 0xFFC6
	KeyF10 Keysym = 0xFFC7
	KeyF11 Keysym = 0xFFC8
	KeyF12 Keysym = 0xFFC9
	KeyF13 Keysym = 0xFFCA
	KeyF14 Keysym = 0xFFCB
	KeyF15 Keysym = 0xFFCC
	KeyF16 Keysym = 0xFFCD
	KeyF17 Keysym = 0xFFCE
	KeyF18 Keysym = 0xFFCF
	KeyF19 Keysym = 0xFFD0
	KeyF20 Keysym = 0xFFD1

	KeyShiftLeft    Keysym = 0xFFE1
	KeyShiftRight   Keysym = 0xFFE2
	KeyControlLeft  Keysym = 0xFFE3
	KeyControlRight Keysym = 0xFFE4
	KeyMetaLeft     Keysym = 0xFFE7
	KeyMetaRight    Keysym = 0xFFE8
	KeyAltLeft      Keysym = 0xFFE9
	KeyAltRight     Keysym = 0xFFEA

	KeyScrollLock Keysym = 0xFF14
	KeySysReq     Keysym = 0xFF15
	KeyNumLock    Keysym = 0xFF7F
	KeyCapsLock   Keysym = 0xFFE5
	KeyPause      Keysym = 0xFF13
	KeySuperLeft  Keysym = 0xFFEB // windows key, Apple command key
	KeySuperRight Keysym = 0xFFEC
	KeyHyperLeft  Keysym = 0xFFED
	KeyHyperRight Keysym = 0xFFEE

	KeyKP0     Keysym = 0xFFB0
	KeyKP1     Keysym = 0xFFB1
	KeyKP2     Keysym = 0xFFB2
	KeyKP3     Keysym = 0xFFB3
	KeyKP4     Keysym = 0xFFB4
	KeyKP5     Keysym = 0xFFB5
	KeyKP6     Keysym = 0xFFB6
	KeyKP7     Keysym = 0xFFB7
	KeyKP8     Keysym = 0xFFB8
	KeyKP9     Keysym = 0xFFB9
	KeyKPEnter Keysym = 0xFF8D

	KeyForwardSlash Keysym = 0x002F
	KeyBackSlash    Keysym = 0x005C
	KeySpaceBar     Keysym = 0x0020
)
