package ui

import (
	"fmt"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"otpentry/cmd/otpentry-gui/internal/theme"
	"otpentry/internal/entry"
	"otpentry/internal/otp"
)

// Banner is the message shown under the field.
type Banner int

const (
	BannerNone Banner = iota
	BannerOffer
	BannerComplete
	BannerReplay
	BannerAbandoned
)

// Screen is the entry window: a title, the field and a banner. Its callbacks
// must run on the goroutine that lays it out.
type Screen struct {
	theme   *theme.Theme
	session *entry.Session
	field   *Field

	banner Banner
	offer  string

	pasteBtn   widget.Clickable
	dismissBtn widget.Clickable
	clearBtn   widget.Clickable
	started    bool
}

// NewScreen creates an unbound screen. Pass its callbacks to entry.New, then
// call Bind with the session.
func NewScreen(t *theme.Theme) *Screen {
	return &Screen{theme: t}
}

// Options returns the session callbacks that drive the screen.
func (s *Screen) Options() entry.Options {
	return entry.Options{
		OnComplete:          s.Completed,
		OnFocusChange:       s.focusChanged,
		OnAutofillAbandoned: s.Abandoned,
		OnOffer:             s.Offered,
		OnReplay:            s.Replayed,
	}
}

// Bind attaches the session whose reconciler the field edits.
func (s *Screen) Bind(sess *entry.Session) {
	s.session = sess
	s.field = NewField(s.theme, sess.Reconciler)
}

// Banner returns the current banner and, for BannerOffer, the offered code.
func (s *Screen) Banner() (Banner, string) {
	return s.banner, s.offer
}

func (s *Screen) Completed(string) {
	s.banner = BannerComplete
	s.offer = ""
}

func (s *Screen) Offered(text string) {
	if s.banner == BannerComplete || s.banner == BannerReplay {
		return
	}
	s.banner = BannerOffer
	s.offer = text
}

func (s *Screen) Replayed(otp.Episode) {
	s.banner = BannerReplay
}

func (s *Screen) Abandoned() {
	s.banner = BannerAbandoned
}

func (s *Screen) focusChanged(index int) {
	if s.field != nil {
		s.field.FocusChanged(index)
	}
	if index != otp.NoFocus && s.banner == BannerAbandoned {
		s.banner = BannerNone
	}
}

// Accept fills the field with the offered code.
func (s *Screen) Accept() {
	s.banner = BannerNone
	s.offer = ""
	s.session.AcceptOffer()
}

// Dismiss declines the offered code.
func (s *Screen) Dismiss() {
	s.banner = BannerNone
	s.offer = ""
	s.session.DeclineOffer()
}

// Clear empties the field and focuses the first cell.
func (s *Screen) Clear() {
	s.banner = BannerNone
	s.session.Reconciler.Reset()
	s.field.Focus()
}

// Layout renders the screen.
func (s *Screen) Layout(gtx layout.Context) layout.Dimensions {
	if !s.started {
		s.started = true
		s.field.Focus()
	}
	if s.pasteBtn.Clicked(gtx) {
		s.Accept()
	}
	if s.dismissBtn.Clicked(gtx) {
		s.Dismiss()
	}
	if s.clearBtn.Clicked(gtx) {
		s.Clear()
	}

	paint.Fill(gtx.Ops, s.theme.Palette.Background)

	return layout.UniformInset(s.theme.Config.Padding).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical, Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				h := material.Label(s.theme.Theme, s.theme.Config.FontTitle, "Enter verification code")
				h.Color = s.theme.Palette.Text
				return h.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				l := material.Label(s.theme.Theme, s.theme.Config.FontCaption,
					fmt.Sprintf("%d characters, sent by text message", s.session.Reconciler.Length()))
				l.Color = s.theme.Palette.TextMuted
				return l.Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(24)}.Layout),
			layout.Rigid(s.field.Layout),
			layout.Rigid(layout.Spacer{Height: unit.Dp(24)}.Layout),
			layout.Rigid(s.layoutBanner),
			layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				b := material.Button(s.theme.Theme, &s.clearBtn, "Clear")
				b.Background = s.theme.Palette.CellFilled
				b.Color = s.theme.Palette.Text
				return b.Layout(gtx)
			}),
		)
	})
}

func (s *Screen) layoutBanner(gtx layout.Context) layout.Dimensions {
	switch s.banner {
	case BannerOffer:
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(s.label(fmt.Sprintf("Paste %s from clipboard?", s.offer), s.theme.Palette.Text)),
			layout.Rigid(layout.Spacer{Width: unit.Dp(12)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Button(s.theme.Theme, &s.pasteBtn, "Paste").Layout(gtx)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				b := material.Button(s.theme.Theme, &s.dismissBtn, "Dismiss")
				b.Background = s.theme.Palette.CellFilled
				return b.Layout(gtx)
			}),
		)
	case BannerComplete:
		return s.label("Code entered", s.theme.Palette.Success)(gtx)
	case BannerReplay:
		return s.label("This code was already used", s.theme.Palette.Warning)(gtx)
	case BannerAbandoned:
		return s.label("Autofill was interrupted. Type the code instead.", s.theme.Palette.Error)(gtx)
	}
	return layout.Dimensions{}
}

func (s *Screen) label(text string, c color.NRGBA) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		l := material.Label(s.theme.Theme, s.theme.Config.FontBody, text)
		l.Color = c
		return l.Layout(gtx)
	}
}
