package ui

import (
	"image"
	"io"
	"strings"

	"gioui.org/io/clipboard"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/transfer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"otpentry/cmd/otpentry-gui/internal/theme"
	"otpentry/internal/otp"
)

// maxPaste bounds how much clipboard text a paste reads.
const maxPaste = 4096

// cellTag is the key focus target of one cell.
type cellTag struct {
	index int
}

// Field draws one box per cell. Each box is its own key focus target, so edits
// arrive with the index of the cell that received them.
type Field struct {
	theme  *theme.Theme
	r      *otp.Reconciler
	tags   []cellTag
	clicks []widget.Clickable

	focus      int
	focusDirty bool
}

// NewField creates a field for r. Wire FocusChanged to the reconciler's
// focus callback.
func NewField(t *theme.Theme, r *otp.Reconciler) *Field {
	n := r.Length()
	f := &Field{
		theme:  t,
		r:      r,
		tags:   make([]cellTag, n),
		clicks: make([]widget.Clickable, n),
		focus:  otp.NoFocus,
	}
	for i := range f.tags {
		f.tags[i].index = i
	}
	return f
}

// FocusChanged queues a key focus move for the next frame.
func (f *Field) FocusChanged(index int) {
	f.focus = index
	f.focusDirty = true
}

// Focus gives key focus to the first cell.
func (f *Field) Focus() {
	f.r.SetFocus(0)
	f.focusDirty = true
}

// Update processes input for every cell.
func (f *Field) Update(gtx layout.Context) {
	for i := range f.clicks {
		if f.clicks[i].Clicked(gtx) {
			f.r.SetFocus(i)
			f.focusDirty = true
		}
	}

	for i := range f.tags {
		tag := &f.tags[i]
		for {
			ev, ok := gtx.Event(
				key.FocusFilter{Target: tag},
				key.Filter{Focus: tag, Name: key.NameDeleteBackward},
				key.Filter{Focus: tag, Name: key.NameDeleteForward},
				key.Filter{Focus: tag, Name: key.NameLeftArrow},
				key.Filter{Focus: tag, Name: key.NameRightArrow},
				key.Filter{Focus: tag, Name: key.NameHome},
				key.Filter{Focus: tag, Name: key.NameEnd},
				key.Filter{Focus: tag, Name: "V", Required: key.ModShortcut},
				transfer.TargetFilter{Target: tag, Type: "application/text"},
			)
			if !ok {
				break
			}
			f.handle(gtx, i, ev)
		}
	}

	if f.focusDirty {
		f.focusDirty = false
		f.focus = f.r.Focus()
		if f.focus == otp.NoFocus {
			gtx.Execute(key.FocusCmd{})
			gtx.Execute(key.SoftKeyboardCmd{Show: false})
		} else {
			gtx.Execute(key.FocusCmd{Tag: &f.tags[f.focus]})
			gtx.Execute(key.SoftKeyboardCmd{Show: true})
		}
	}
}

func (f *Field) handle(gtx layout.Context, i int, ev event.Event) {
	switch ev := ev.(type) {
	case key.EditEvent:
		f.r.HandleEdit(i, ev.Text, rangeLength(ev.Range))
	case transfer.DataEvent:
		if text, ok := readPaste(ev); ok {
			f.r.HandleEdit(i, text, f.existing(i))
		}
	case key.FocusEvent:
		if ev.Focus && f.r.Focus() != i {
			f.r.SetFocus(i)
		}
	case key.Event:
		if ev.State != key.Press {
			return
		}
		switch ev.Name {
		case key.NameDeleteBackward:
			f.backspace(i)
		case key.NameDeleteForward:
			if f.existing(i) == 1 {
				f.r.HandleEdit(i, "", 1)
				f.r.SetFocus(i)
			}
		case key.NameLeftArrow:
			f.r.SetFocus(max(i-1, 0))
		case key.NameRightArrow:
			f.r.SetFocus(min(i+1, f.r.Length()-1))
		case key.NameHome:
			f.r.SetFocus(0)
		case key.NameEnd:
			f.r.SetFocus(f.r.Length() - 1)
		case "V":
			gtx.Execute(clipboard.ReadCmd{Tag: &f.tags[i]})
		}
	}
}

// backspace clears cell i, or the cell before it when i is already empty.
func (f *Field) backspace(i int) {
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

func (f *Field) existing(i int) int {
	cells := f.r.Cells()
	if cells[i].Empty() {
		return 0
	}
	return 1
}

// rangeLength converts an IME replacement range to the reconciler's existing
// range length, which is 0 or 1 for a single-character cell.
func rangeLength(r key.Range) int {
	n := r.End - r.Start
	if n < 0 {
		n = -n
	}
	return min(n, 1)
}

func readPaste(ev transfer.DataEvent) (string, bool) {
	rc := ev.Open()
	if rc == nil {
		return "", false
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPaste))
	if err != nil {
		return "", false
	}
	return strings.TrimRight(string(data), "\r\n"), true
}

// Layout draws the cells in a row.
func (f *Field) Layout(gtx layout.Context) layout.Dimensions {
	f.Update(gtx)

	cells := f.r.Cells()
	children := make([]layout.FlexChild, 0, 2*len(cells))
	for i := range cells {
		if i > 0 {
			children = append(children, layout.Rigid(layout.Spacer{Width: f.theme.Config.CellGap}.Layout))
		}
		c := cells[i]
		children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return f.layoutCell(gtx, c)
		}))
	}
	return layout.Flex{Axis: layout.Horizontal}.Layout(gtx, children...)
}

func (f *Field) layoutCell(gtx layout.Context, c otp.Cell) layout.Dimensions {
	cfg := f.theme.Config
	size := image.Pt(gtx.Dp(cfg.CellWidth), gtx.Dp(cfg.CellHeight))
	gtx.Constraints = layout.Exact(size)

	return f.clicks[c.Index].Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		tag := &f.tags[c.Index]
		area := clip.Rect{Max: size}.Push(gtx.Ops)
		event.Op(gtx.Ops, tag)
		key.InputHintOp{Tag: tag, Hint: key.HintNumeric}.Add(gtx.Ops)
		area.Pop()

		fill := f.theme.Palette.Cell
		if !c.Empty() {
			fill = f.theme.Palette.CellFilled
		}
		border := widget.Border{
			Color:        f.theme.Palette.Border,
			CornerRadius: cfg.CornerRadius,
			Width:        cfg.BorderWidth,
		}
		if c.Focused {
			border.Color = f.theme.Palette.Primary
			border.Width = cfg.FocusWidth
		}

		return border.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			rr := clip.UniformRRect(image.Rectangle{Max: size}, gtx.Dp(cfg.CornerRadius))
			paint.FillShape(gtx.Ops, fill, rr.Op(gtx.Ops))
			return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				l := material.Label(f.theme.Theme, cfg.FontCell, c.String())
				l.Color = f.theme.Palette.Text
				return l.Layout(gtx)
			})
		})
	})
}
