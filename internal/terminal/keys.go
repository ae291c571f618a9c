package terminal

import (
	"bytes"
	"unicode/utf8"
)

// KeyKind identifies a decoded key.
type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyRune
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyEnter
	KeyTab
	KeyEscape
	KeyPaste
	KeyPasteRequest
	KeyClear
	KeyInterrupt
	KeyEOF
)

var keyNames = map[KeyKind]string{
	KeyNone:         "none",
	KeyRune:         "rune",
	KeyBackspace:    "backspace",
	KeyDelete:       "delete",
	KeyLeft:         "left",
	KeyRight:        "right",
	KeyUp:           "up",
	KeyDown:         "down",
	KeyHome:         "home",
	KeyEnd:          "end",
	KeyEnter:        "enter",
	KeyTab:          "tab",
	KeyEscape:       "escape",
	KeyPaste:        "paste",
	KeyPasteRequest: "paste-request",
	KeyClear:        "clear",
	KeyInterrupt:    "interrupt",
	KeyEOF:          "eof",
}

func (k KeyKind) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return "unknown"
}

// Key is one decoded input event. Rune is set for KeyRune and Text for
// KeyPaste.
type Key struct {
	Kind KeyKind
	Rune rune
	Text string
}

// Bracketed paste markers.
const (
	bracketedPasteOn  = "\x1b[?2004h"
	bracketedPasteOff = "\x1b[?2004l"
)

var (
	pasteStart = []byte("\x1b[200~")
	pasteEnd   = []byte("\x1b[201~")
)

// maxEscapeLen bounds an unterminated CSI sequence before it is dropped.
const maxEscapeLen = 16

// Decoder turns raw terminal bytes into keys. Input may be split at any byte;
// incomplete sequences and partial UTF-8 runes are held until more bytes
// arrive.
type Decoder struct {
	buf     []byte
	inPaste bool
	paste   []byte
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, 64)}
}

// Feed decodes p and returns every complete key.
func (d *Decoder) Feed(p []byte) []Key {
	d.buf = append(d.buf, p...)
	var keys []Key
	for len(d.buf) > 0 {
		k, n := d.next()
		if n == 0 {
			break
		}
		d.buf = d.buf[n:]
		if k.Kind != KeyNone {
			keys = append(keys, k)
		}
	}
	if len(d.buf) == 0 {
		d.buf = d.buf[:0:cap(d.buf)]
	}
	return keys
}

// Pending reports whether the decoder holds the start of an escape sequence
// that a lone Escape key could also explain.
func (d *Decoder) Pending() bool {
	return !d.inPaste && len(d.buf) > 0 && d.buf[0] == 0x1b
}

// Flush resolves a pending escape prefix once no more input arrived in time.
// A lone ESC becomes KeyEscape; a truncated sequence is dropped.
func (d *Decoder) Flush() []Key {
	if !d.Pending() {
		return nil
	}
	lone := len(d.buf) == 1
	d.buf = d.buf[:0]
	if lone {
		return []Key{{Kind: KeyEscape}}
	}
	return nil
}

// InPaste reports whether a bracketed paste is still open.
func (d *Decoder) InPaste() bool {
	return d.inPaste
}

// next decodes one key from the front of buf. n == 0 means more input is
// needed.
func (d *Decoder) next() (Key, int) {
	if d.inPaste {
		return d.nextPaste()
	}

	b := d.buf[0]
	switch {
	case b == 0x1b:
		return d.escape()
	case b == 0x7f || b == 0x08:
		return Key{Kind: KeyBackspace}, 1
	case b == '\r' || b == '\n':
		return Key{Kind: KeyEnter}, 1
	case b == '\t':
		return Key{Kind: KeyTab}, 1
	case b == 0x03:
		return Key{Kind: KeyInterrupt}, 1
	case b == 0x04:
		return Key{Kind: KeyEOF}, 1
	case b == 0x15:
		return Key{Kind: KeyClear}, 1
	case b == 0x16:
		return Key{Kind: KeyPasteRequest}, 1
	case b < 0x20:
		return Key{}, 1
	}

	if !utf8.FullRune(d.buf) {
		return Key{}, 0
	}
	r, size := utf8.DecodeRune(d.buf)
	if r == utf8.RuneError && size == 1 {
		return Key{}, 1
	}
	return Key{Kind: KeyRune, Rune: r}, size
}

func (d *Decoder) nextPaste() (Key, int) {
	if i := bytes.Index(d.buf, pasteEnd); i >= 0 {
		d.paste = append(d.paste, d.buf[:i]...)
		text := string(d.paste)
		d.paste = nil
		d.inPaste = false
		return Key{Kind: KeyPaste, Text: text}, i + len(pasteEnd)
	}

	// Hold back enough bytes to recognise a terminator split across reads.
	safe := len(d.buf) - (len(pasteEnd) - 1)
	if safe <= 0 {
		return Key{}, 0
	}
	d.paste = append(d.paste, d.buf[:safe]...)
	return Key{}, safe
}

func (d *Decoder) escape() (Key, int) {
	if len(d.buf) < 2 {
		return Key{}, 0
	}

	switch d.buf[1] {
	case '[':
		return d.csi()
	case 'O':
		if len(d.buf) < 3 {
			return Key{}, 0
		}
		return Key{Kind: finalKey(d.buf[2])}, 3
	}

	// ESC followed by anything else is Escape, then that byte on its own.
	return Key{Kind: KeyEscape}, 1
}

func (d *Decoder) csi() (Key, int) {
	end := -1
	for i := 2; i < len(d.buf); i++ {
		if b := d.buf[i]; b >= 0x40 && b <= 0x7e {
			end = i
			break
		}
	}
	if end < 0 {
		if len(d.buf) > maxEscapeLen {
			return Key{}, len(d.buf)
		}
		return Key{}, 0
	}

	seq := d.buf[:end+1]
	if bytes.Equal(seq, pasteStart) {
		d.inPaste = true
		d.paste = d.paste[:0]
		return Key{}, len(seq)
	}

	final := d.buf[end]
	if final != '~' {
		return Key{Kind: finalKey(final)}, len(seq)
	}

	// Only the first parameter matters; modifiers follow a ';'.
	param := d.buf[2:end]
	if i := bytes.IndexByte(param, ';'); i >= 0 {
		param = param[:i]
	}
	switch string(param) {
	case "1", "7":
		return Key{Kind: KeyHome}, len(seq)
	case "3":
		return Key{Kind: KeyDelete}, len(seq)
	case "4", "8":
		return Key{Kind: KeyEnd}, len(seq)
	}
	return Key{}, len(seq)
}

func finalKey(b byte) KeyKind {
	switch b {
	case 'A':
		return KeyUp
	case 'B':
		return KeyDown
	case 'C':
		return KeyRight
	case 'D':
		return KeyLeft
	case 'H':
		return KeyHome
	case 'F':
		return KeyEnd
	}
	return KeyNone
}
