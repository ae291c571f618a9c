package terminal

import (
	"strings"

	"otpentry/internal/otp"
)

// Command is a key the field does not consume itself.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandCheckClipboard
	CommandConfirm
	CommandCancel
)

// Field maps terminal keys onto reconciler edits, behaving like a row of
// single-character text cells that each report edits for their own index.
type Field struct {
	r *otp.Reconciler
}

// NewField binds a field to r.
func NewField(r *otp.Reconciler) *Field {
	return &Field{r: r}
}

// Reconciler returns the bound reconciler.
func (f *Field) Reconciler() *otp.Reconciler {
	return f.r
}

// HandleKey applies k and returns any command left for the caller.
func (f *Field) HandleKey(k Key) Command {
	switch k.Kind {
	case KeyRune:
		i := f.target(0)
		f.r.HandleEdit(i, string(k.Rune), f.existing(i))
	case KeyPaste:
		i := f.target(0)
		f.r.HandleEdit(i, strings.TrimRight(k.Text, "\r\n"), f.existing(i))
	case KeyBackspace:
		f.backspace()
	case KeyDelete:
		i := f.target(f.r.Length() - 1)
		if f.existing(i) == 1 {
			f.r.HandleEdit(i, "", 1)
			f.r.SetFocus(i)
		}
	case KeyLeft:
		f.r.SetFocus(max(f.target(0)-1, 0))
	case KeyRight, KeyTab:
		f.r.SetFocus(min(f.target(-1)+1, f.r.Length()-1))
	case KeyHome:
		f.r.SetFocus(0)
	case KeyEnd:
		f.r.SetFocus(f.r.Length() - 1)
	case KeyClear:
		f.r.Reset()
		f.r.SetFocus(0)
	case KeyPasteRequest:
		return CommandCheckClipboard
	case KeyEnter:
		return CommandConfirm
	case KeyEscape:
		return CommandCancel
	case KeyInterrupt, KeyEOF:
		return CommandQuit
	}
	return CommandNone
}

// backspace clears the focused cell, or the one before it when the focused
// cell is already empty. In the second case the cleared cell keeps focus so the
// next key replaces it.
func (f *Field) backspace() {
	i := f.target(f.r.Length() - 1)
	if f.existing(i) == 1 {
		f.r.HandleEdit(i, "", 1)
		return
	}
	if i == 0 {
		return
	}
	f.r.SetFocus(i - 1)
	if f.existing(i-1) == 1 {
		f.r.HandleEdit(i-1, "", 1)
		f.r.SetFocus(i - 1)
	}
}

// target is the focused cell, or fallback when nothing has focus.
func (f *Field) target(fallback int) int {
	if i := f.r.Focus(); i != otp.NoFocus {
		return i
	}
	return fallback
}

func (f *Field) existing(i int) int {
	cells := f.r.Cells()
	if i < 0 || i >= len(cells) || cells[i].Empty() {
		return 0
	}
	return 1
}
