// Package terminal drives an OTP field from a raw-mode terminal: it decodes key
// and bracketed-paste input, maps keys onto reconciler edits and redraws the
// cells in place.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when the input is not an interactive terminal.
var ErrNotTerminal = errors.New("terminal: input is not a terminal")

const (
	// DefaultEscapeTimeout is how long a lone ESC waits for the rest of a
	// sequence before it counts as the Escape key.
	DefaultEscapeTimeout = 25 * time.Millisecond

	// pollInterval bounds how long a read blocks before ctx is rechecked.
	pollInterval = 100 * time.Millisecond
)

// Terminal owns the raw-mode state of one input file.
type Terminal struct {
	in            *os.File
	out           io.Writer
	fd            int
	state         *term.State
	EscapeTimeout time.Duration
}

// Open switches in to raw mode and enables bracketed paste on out. Close
// restores the previous state.
func Open(in *os.File, out io.Writer) (*Terminal, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	if _, err := io.WriteString(out, bracketedPasteOn); err != nil {
		term.Restore(fd, state)
		return nil, fmt.Errorf("enable bracketed paste: %w", err)
	}
	return &Terminal{
		in:            in,
		out:           out,
		fd:            fd,
		state:         state,
		EscapeTimeout: DefaultEscapeTimeout,
	}, nil
}

// Close disables bracketed paste and restores the terminal mode.
func (t *Terminal) Close() error {
	io.WriteString(t.out, bracketedPasteOff)
	if t.state == nil {
		return nil
	}
	err := term.Restore(t.fd, t.state)
	t.state = nil
	return err
}

// ReadKeys decodes input and calls fn for every key until ctx is done or the
// input reaches EOF. fn runs on the calling goroutine.
func (t *Terminal) ReadKeys(ctx context.Context, fn func(Key)) error {
	dec := NewDecoder()
	buf := make([]byte, 256)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := pollInterval
		if dec.Pending() {
			wait = t.EscapeTimeout
		}
		ready, err := waitReadable(t.fd, wait)
		if err != nil {
			return fmt.Errorf("poll input: %w", err)
		}
		if !ready {
			for _, k := range dec.Flush() {
				fn(k)
			}
			continue
		}

		n, err := t.in.Read(buf)
		if n > 0 {
			for _, k := range dec.Feed(buf[:n]) {
				fn(k)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
	}
}
