package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnavailable is returned when no clipboard source could be read.
var ErrUnavailable = errors.New("clipboard: no source available")

// Accessor reads text from a clipboard.
type Accessor interface {
	// Text returns the current clipboard text, or "" when the clipboard holds
	// no string.
	Text(ctx context.Context) (string, error)
}

// AccessorFunc adapts a function to Accessor.
type AccessorFunc func(ctx context.Context) (string, error)

// Text calls f.
func (f AccessorFunc) Text(ctx context.Context) (string, error) {
	return f(ctx)
}

// Command is one external program able to print the clipboard to stdout.
type Command struct {
	Name string
	Args []string

	// TrimNewline strips a single trailing newline added by the tool.
	TrimNewline bool
}

// ExecAccessor reads the clipboard by running the first command in Commands
// that succeeds.
type ExecAccessor struct {
	Commands []Command
}

// NewExecAccessor returns an ExecAccessor using the platform's usual tools.
func NewExecAccessor() *ExecAccessor {
	return &ExecAccessor{Commands: platformCommands()}
}

// Text runs each command in turn and returns the first successful output.
func (a *ExecAccessor) Text(ctx context.Context) (string, error) {
	var lastErr error
	for _, c := range a.Commands {
		if _, err := exec.LookPath(c.Name); err != nil {
			lastErr = err
			continue
		}
		out, err := exec.CommandContext(ctx, c.Name, c.Args...).Output()
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", c.Name, err)
			continue
		}
		text := string(out)
		if c.TrimNewline {
			text = strings.TrimSuffix(text, "\n")
			text = strings.TrimSuffix(text, "\r")
		}
		return text, nil
	}
	if lastErr == nil {
		return "", ErrUnavailable
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Source names accepted by NewAccessor.
const (
	SourceAuto    = "auto"
	SourceExec    = "exec"
	SourceKlipper = "klipper"
	SourceNone    = "none"
)

// NewAccessor builds an Accessor for the named source. "auto" prefers Klipper
// when it is reachable and falls back to external tools.
func NewAccessor(source string) (Accessor, error) {
	switch source {
	case SourceExec:
		return NewExecAccessor(), nil
	case SourceKlipper:
		k, err := NewKlipperAccessor()
		if err != nil {
			return nil, err
		}
		return k, nil
	case SourceNone:
		return AccessorFunc(func(context.Context) (string, error) { return "", nil }), nil
	case "", SourceAuto:
		if k, err := NewKlipperAccessor(); err == nil {
			return chain{k, NewExecAccessor()}, nil
		}
		return NewExecAccessor(), nil
	default:
		return nil, fmt.Errorf("clipboard: unknown source %q", source)
	}
}

// chain tries accessors in order until one succeeds.
type chain []Accessor

func (c chain) Text(ctx context.Context) (string, error) {
	var lastErr error = ErrUnavailable
	for _, a := range c {
		text, err := a.Text(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}
