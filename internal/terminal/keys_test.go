package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kinds(keys []Key) []KeyKind {
	out := make([]KeyKind, len(keys))
	for i, k := range keys {
		out[i] = k.Kind
	}
	return out
}

func TestDecoderSingleKeys(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []KeyKind
	}{
		{"runes", "ab", []KeyKind{KeyRune, KeyRune}},
		{"delete char", "\x7f", []KeyKind{KeyBackspace}},
		{"ctrl h", "\x08", []KeyKind{KeyBackspace}},
		{"carriage return", "\r", []KeyKind{KeyEnter}},
		{"tab", "\t", []KeyKind{KeyTab}},
		{"ctrl c", "\x03", []KeyKind{KeyInterrupt}},
		{"ctrl d", "\x04", []KeyKind{KeyEOF}},
		{"ctrl u", "\x15", []KeyKind{KeyClear}},
		{"ctrl v", "\x16", []KeyKind{KeyPasteRequest}},
		{"other control ignored", "\x01", nil},
		{"left", "\x1b[D", []KeyKind{KeyLeft}},
		{"right", "\x1b[C", []KeyKind{KeyRight}},
		{"up", "\x1b[A", []KeyKind{KeyUp}},
		{"down", "\x1b[B", []KeyKind{KeyDown}},
		{"ss3 home", "\x1bOH", []KeyKind{KeyHome}},
		{"ss3 end", "\x1bOF", []KeyKind{KeyEnd}},
		{"csi delete", "\x1b[3~", []KeyKind{KeyDelete}},
		{"csi home", "\x1b[1~", []KeyKind{KeyHome}},
		{"csi end", "\x1b[4~", []KeyKind{KeyEnd}},
		{"modified arrow", "\x1b[1;5C", []KeyKind{KeyRight}},
		{"unknown tilde", "\x1b[15~", nil},
		{"escape then rune", "\x1bq", []KeyKind{KeyEscape, KeyRune}},
		{"invalid utf8 dropped", "\xff1", []KeyKind{KeyRune}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			got := d.Feed([]byte(tt.input))
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, kinds(got))
			}
			assert.False(t, d.Pending())
		})
	}
}

func TestDecoderMultibyteSplit(t *testing.T) {
	d := NewDecoder()
	b := []byte("é")
	assert.Empty(t, d.Feed(b[:1]))
	got := d.Feed(b[1:])
	assert.Equal(t, []Key{{Kind: KeyRune, Rune: 'é'}}, got)
}

func TestDecoderBracketedPaste(t *testing.T) {
	d := NewDecoder()
	got := d.Feed([]byte("\x1b[200~123456\x1b[201~"))
	assert.Equal(t, []Key{{Kind: KeyPaste, Text: "123456"}}, got)
	assert.False(t, d.InPaste())
}

func TestDecoderBracketedPasteSplit(t *testing.T) {
	d := NewDecoder()
	assert.Empty(t, d.Feed([]byte("\x1b[200~12")))
	assert.True(t, d.InPaste())
	assert.Empty(t, d.Feed([]byte("34\x1b[2")))
	assert.False(t, d.Pending(), "paste content is not an escape prefix")

	got := d.Feed([]byte("01~x"))
	assert.Equal(t, []Key{{Kind: KeyPaste, Text: "1234"}, {Kind: KeyRune, Rune: 'x'}}, got)
}

func TestDecoderPasteKeepsControlBytes(t *testing.T) {
	d := NewDecoder()
	got := d.Feed([]byte("\x1b[200~12\x7f3\r\n\x1b[201~"))
	assert.Equal(t, []Key{{Kind: KeyPaste, Text: "12\x7f3\r\n"}}, got)
}

func TestDecoderLoneEscape(t *testing.T) {
	d := NewDecoder()
	assert.Empty(t, d.Feed([]byte{0x1b}))
	assert.True(t, d.Pending())
	assert.Equal(t, []KeyKind{KeyEscape}, kinds(d.Flush()))
	assert.False(t, d.Pending())
	assert.Nil(t, d.Flush())
}

func TestDecoderTruncatedSequenceFlush(t *testing.T) {
	d := NewDecoder()
	assert.Empty(t, d.Feed([]byte("\x1b[")))
	assert.True(t, d.Pending())
	assert.Empty(t, d.Flush())

	got := d.Feed([]byte("7"))
	assert.Equal(t, []Key{{Kind: KeyRune, Rune: '7'}}, got)
}

func TestDecoderEscapeSplitAcrossReads(t *testing.T) {
	d := NewDecoder()
	assert.Empty(t, d.Feed([]byte("\x1b")))
	assert.Empty(t, d.Feed([]byte("[")))
	assert.Equal(t, []KeyKind{KeyLeft}, kinds(d.Feed([]byte("D"))))
}

func TestDecoderOverlongSequenceDropped(t *testing.T) {
	d := NewDecoder()
	assert.Empty(t, d.Feed([]byte("\x1b[12345678901234567890")))
	assert.False(t, d.Pending())
	assert.Equal(t, []KeyKind{KeyRune}, kinds(d.Feed([]byte("a"))))
}

func TestKeyKindString(t *testing.T) {
	assert.Equal(t, "paste", KeyPaste.String())
	assert.Equal(t, "unknown", KeyKind(99).String())
}
