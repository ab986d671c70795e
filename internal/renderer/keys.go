package renderer

import "unicode/utf8"

// KeyKind classifies a decoded key press.
type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyRune
	KeyTab
	KeyEnter
	KeyBackspace
	KeyQuit // Ctrl-C or Ctrl-D
)

// Key is one decoded key press.
type Key struct {
	Kind KeyKind
	Rune rune // set for KeyRune
}

// DecodeKey interprets a raw terminal read. Multi-byte reads decode the
// first UTF-8 rune; escape sequences (arrows, function keys) are ignored.
func DecodeKey(buf []byte) Key {
	if len(buf) == 0 {
		return Key{Kind: KeyNone}
	}

	switch buf[0] {
	case 0x03, 0x04: // Ctrl-C, Ctrl-D
		return Key{Kind: KeyQuit}
	case '\t':
		return Key{Kind: KeyTab}
	case '\r', '\n':
		return Key{Kind: KeyEnter}
	case 0x7f, 0x08: // DEL, BS
		return Key{Kind: KeyBackspace}
	case 0x1b: // ESC sequence
		return Key{Kind: KeyNone}
	}

	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError && size <= 1 {
		return Key{Kind: KeyNone}
	}
	if r < 0x20 {
		return Key{Kind: KeyNone}
	}
	return Key{Kind: KeyRune, Rune: r}
}
