package terminal

import (
	"fmt"
	"io"
	"strings"

	"otpentry/internal/otp"
)

const (
	clearLine    = "\r\x1b[2K"
	reverseVideo = "\x1b[7m"
	resetStyle   = "\x1b[0m"
	emptyCell    = "_"
)

// Renderer redraws a field on a single terminal line.
type Renderer struct {
	out io.Writer
}

// NewRenderer writes to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Draw replaces the current line with the cells and an optional status.
// The focused cell is shown in reverse video.
func (r *Renderer) Draw(cells []otp.Cell, status string) error {
	_, err := io.WriteString(r.out, FormatCells(cells, status))
	return err
}

// Line ends the current line so later output does not overwrite it.
func (r *Renderer) Line(format string, args ...any) error {
	_, err := fmt.Fprintf(r.out, "\r\n"+format+"\r\n", args...)
	return err
}

// FormatCells renders cells the way Draw writes them.
func FormatCells(cells []otp.Cell, status string) string {
	var b strings.Builder
	b.WriteString(clearLine)
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		ch := emptyCell
		if !c.Empty() {
			ch = c.String()
		}
		if c.Focused {
			b.WriteString(reverseVideo)
			b.WriteString(ch)
			b.WriteString(resetStyle)
		} else {
			b.WriteString(ch)
		}
	}
	if status != "" {
		b.WriteString("  ")
		b.WriteString(status)
	}
	return b.String()
}
