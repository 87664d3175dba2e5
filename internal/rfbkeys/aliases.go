package rfbkeys

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnknownKey indicates Decode was given a key name that is neither a
// known alias nor a single character.
var ErrUnknownKey = errors.New("rfbkeys: unknown key name")

// aliases maps the short key names a caller types (vncdotool's KEYMAP) to
// their keysym. Names are case-sensitive and always lowercase; combos are
// built by joining names with "-" (e.g. "ctrl-alt-del").
var aliases = map[string]Keysym{
	"bsp":     KeyBackSpace,
	"tab":     KeyTab,
	"return":  KeyReturn,
	"enter":   KeyReturn,
	"esc":     KeyEscape,
	"ins":     KeyInsert,
	"delete":  KeyDelete,
	"del":     KeyDelete,
	"home":    KeyHome,
	"end":     KeyEnd,
	"pgup":    KeyPageUp,
	"pgdn":    KeyPageDown,
	"left":    KeyLeft,
	"up":      KeyUp,
	"right":   KeyRight,
	"down":    KeyDown,
	"slash":   KeyBackSlash,
	"bslash":  KeyBackSlash,
	"fslash":  KeyForwardSlash,
	"spacebar": KeySpaceBar,
	"space":   KeySpaceBar,
	"sb":      KeySpaceBar,

	"f1": KeyF1, "f2": KeyF2, "f3": KeyF3, "f4": KeyF4, "f5": KeyF5,
	"f6": KeyF6, "f7": KeyF7, "f8": KeyF8, "f9": KeyF9, "f10": KeyF10,
	"f11": KeyF11, "f12": KeyF12, "f13": KeyF13, "f14": KeyF14, "f15": KeyF15,
	"f16": KeyF16, "f17": KeyF17, "f18": KeyF18, "f19": KeyF19, "f20": KeyF20,

	"lshift": KeyShiftLeft, "shift": KeyShiftLeft, "rshift": KeyShiftRight,
	"lctrl": KeyControlLeft, "ctrl": KeyControlLeft, "rctrl": KeyControlRight,
	"lmeta": KeyMetaLeft, "meta": KeyMetaLeft, "rmeta": KeyMetaRight,
	"lalt": KeyAltLeft, "alt": KeyAltLeft, "ralt": KeyAltRight,

	"scrlk":   KeyScrollLock,
	"sysrq":   KeySysReq,
	"numlk":   KeyNumLock,
	"caplk":   KeyCapsLock,
	"pause":   KeyPause,
	"lsuper":  KeySuperLeft,
	"super":   KeySuperLeft,
	"rsuper":  KeySuperRight,
	"lhyper":  KeyHyperLeft,
	"hyper":   KeyHyperLeft,
	"rhyper":  KeyHyperRight,

	"kp0": KeyKP0, "kp1": KeyKP1, "kp2": KeyKP2, "kp3": KeyKP3, "kp4": KeyKP4,
	"kp5": KeyKP5, "kp6": KeyKP6, "kp7": KeyKP7, "kp8": KeyKP8, "kp9": KeyKP9,
	"kpenter": KeyKPEnter,
}

// specialKeysUS is the set of US-layout characters that need the Shift
// modifier even though they are single punctuation/symbol glyphs, not
// letters (spec.md §8: "force-caps also shifts punctuation that requires
// Shift on a US keyboard").
const specialKeysUS = `~!@#$%^&*()_+{}|:"<>?`

// isShiftedLetter reports whether every cased rune in s is uppercase and
// at least one cased rune is present (Python's str.isupper semantics,
// which vncdotool's force_caps check relies on).
func isShiftedLetter(s string) bool {
	sawLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			sawLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return sawLetter
}

// Decode resolves a key name into the sequence of keysyms a caller must
// press in order (and release in reverse) to type it (spec.md §8,
// "keyPress/keyDown/keyUp resolve a name to one or more keysyms"). Combos
// are written "mod-mod-key", e.g. "ctrl-alt-del". When forceCaps is set,
// an uppercase letter or one of specialKeysUS is automatically prefixed
// with "shift-", matching a client that cannot tell the server's keyboard
// layout and needs every shiftable glyph spelled out explicitly.
func Decode(key string, forceCaps bool) ([]Keysym, error) {
	if forceCaps && (isShiftedLetter(key) || (len([]rune(key)) == 1 && strings.ContainsRune(specialKeysUS, []rune(key)[0]))) {
		key = "shift-" + key
	}

	var parts []string
	if len([]rune(key)) == 1 {
		parts = []string{key}
	} else {
		parts = strings.Split(key, "-")
	}

	keysyms := make([]Keysym, 0, len(parts))
	for _, part := range parts {
		k, err := lookup(part)
		if err != nil {
			return nil, err
		}
		keysyms = append(keysyms, k)
	}
	return keysyms, nil
}

// AddAlias registers or overrides a key name's keysym. Intended for
// callers (cmd/vncshot) that load a site-local keymap override file on
// top of the built-in aliases, the way vncdotool's KEYMAP can be
// monkey-patched by a calling script.
func AddAlias(name string, keysym Keysym) {
	aliases[name] = keysym
}

// lookup resolves one key-combo component: a named alias, or a literal
// single character taken by code point (RFC 6143 §7.5.4).
func lookup(name string) (Keysym, error) {
	if k, ok := aliases[name]; ok {
		return k, nil
	}
	if r := []rune(name); len(r) == 1 {
		return Keysym(r[0]), nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownKey)
}
