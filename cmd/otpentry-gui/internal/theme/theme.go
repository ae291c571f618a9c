package theme

import (
	"image/color"
	"runtime"

	"gioui.org/unit"
	"gioui.org/widget/material"
)

// Palette defines the field colors.
type Palette struct {
	Background color.NRGBA
	Cell       color.NRGBA
	CellFilled color.NRGBA
	Primary    color.NRGBA
	Text       color.NRGBA
	TextMuted  color.NRGBA
	Border     color.NRGBA
	Success    color.NRGBA
	Error      color.NRGBA
	Warning    color.NRGBA
}

// Config defines the field metrics.
type Config struct {
	CornerRadius unit.Dp
	BorderWidth  unit.Dp
	FocusWidth   unit.Dp
	CellWidth    unit.Dp
	CellHeight   unit.Dp
	CellGap      unit.Dp
	Padding      unit.Dp
	FontTitle    unit.Sp
	FontCell     unit.Sp
	FontBody     unit.Sp
	FontCaption  unit.Sp
}

// Theme wraps the material theme with platform styling.
type Theme struct {
	*material.Theme
	Palette Palette
	Config  Config
}

// NewTheme creates a theme for the current OS.
func NewTheme(mtheme *material.Theme) *Theme {
	t := &Theme{
		Theme: mtheme,
	}

	switch runtime.GOOS {
	case "darwin", "ios":
		setupAppleTheme(t)
	case "android":
		setupMaterialTheme(t)
	default:
		setupWindowsTheme(t)
	}

	t.Theme.Palette.Fg = t.Palette.Text
	t.Theme.Palette.Bg = t.Palette.Background
	t.Theme.Palette.ContrastBg = t.Palette.Primary
	return t
}

func setupWindowsTheme(t *Theme) {
	// Fluent, dark
	t.Palette = Palette{
		Background: color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xFF},
		Cell:       color.NRGBA{R: 0x2C, G: 0x2C, B: 0x2C, A: 0xFF},
		CellFilled: color.NRGBA{R: 0x32, G: 0x32, B: 0x32, A: 0xFF},
		Primary:    color.NRGBA{R: 0x00, G: 0x78, B: 0xD4, A: 0xFF},
		Text:       color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		TextMuted:  color.NRGBA{R: 0xA0, G: 0xA0, B: 0xA0, A: 0xFF},
		Border:     color.NRGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xFF},
		Success:    color.NRGBA{R: 0x6B, G: 0xBC, B: 0x0F, A: 0xFF},
		Error:      color.NRGBA{R: 0xE8, G: 0x11, B: 0x23, A: 0xFF},
		Warning:    color.NRGBA{R: 0xFF, G: 0xB9, B: 0x00, A: 0xFF},
	}

	t.Config = Config{
		CornerRadius: unit.Dp(4),
		BorderWidth:  unit.Dp(1),
		FocusWidth:   unit.Dp(2),
		CellWidth:    unit.Dp(44),
		CellHeight:   unit.Dp(56),
		CellGap:      unit.Dp(8),
		Padding:      unit.Dp(24),
		FontTitle:    unit.Sp(20),
		FontCell:     unit.Sp(26),
		FontBody:     unit.Sp(14),
		FontCaption:  unit.Sp(12),
	}
}

func setupAppleTheme(t *Theme) {
	t.Palette = Palette{
		Background: color.NRGBA{R: 0x1E, G: 0x1E, B: 0x1E, A: 0xFF},
		Cell:       color.NRGBA{R: 0x26, G: 0x26, B: 0x26, A: 0xFF},
		CellFilled: color.NRGBA{R: 0x32, G: 0x32, B: 0x32, A: 0xFF},
		Primary:    color.NRGBA{R: 0x0A, G: 0x84, B: 0xFF, A: 0xFF},
		Text:       color.NRGBA{R: 0xF5, G: 0xF5, B: 0xF7, A: 0xFF},
		TextMuted:  color.NRGBA{R: 0x86, G: 0x86, B: 0x8B, A: 0xFF},
		Border:     color.NRGBA{R: 0x3A, G: 0x3A, B: 0x3C, A: 0xFF},
		Success:    color.NRGBA{R: 0x30, G: 0xD1, B: 0x58, A: 0xFF},
		Error:      color.NRGBA{R: 0xFF, G: 0x45, B: 0x3A, A: 0xFF},
		Warning:    color.NRGBA{R: 0xFF, G: 0x9F, B: 0x0A, A: 0xFF},
	}

	t.Config = Config{
		CornerRadius: unit.Dp(10),
		BorderWidth:  unit.Dp(1),
		FocusWidth:   unit.Dp(2),
		CellWidth:    unit.Dp(46),
		CellHeight:   unit.Dp(56),
		CellGap:      unit.Dp(10),
		Padding:      unit.Dp(28),
		FontTitle:    unit.Sp(22),
		FontCell:     unit.Sp(28),
		FontBody:     unit.Sp(13),
		FontCaption:  unit.Sp(11),
	}
}

func setupMaterialTheme(t *Theme) {
	setupWindowsTheme(t)
	t.Palette.Primary = color.NRGBA{R: 0x67, G: 0x50, B: 0xA4, A: 0xFF}
	t.Config.CornerRadius = unit.Dp(12)
	t.Config.CellGap = unit.Dp(6)
}
