package otp

import (
	"fmt"
	"time"
)

// NoFocus is the focus index reported when no cell is focused.
const NoFocus = -1

// Decision tells the host whether the platform should apply its own default
// insertion for an edit. The reconciler always applies edits itself, so Deny
// is the only value.
type Decision int

// Deny means the platform must not insert anything. The reconciler has
// already applied whatever the edit meant.
const Deny Decision = 0

func (d Decision) String() string {
	return "deny"
}

// Cell is a snapshot of one single-character slot.
type Cell struct {
	Index   int
	Char    rune
	Focused bool
}

// Empty reports whether the cell holds no character.
func (c Cell) Empty() bool {
	return c.Char == 0
}

// String returns the cell's character, or "" when empty.
func (c Cell) String() string {
	if c.Char == 0 {
		return ""
	}
	return string(c.Char)
}

// Phase is the reconciler's position in its focus/provenance state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEditing
	PhaseAutofillBurst
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEditing:
		return "editing"
	case PhaseAutofillBurst:
		return "autofill_burst"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Provenance records how the characters that completed a fill arrived.
type Provenance int

const (
	ProvenanceKeystroke Provenance = iota
	ProvenancePaste
	ProvenanceAutofill
	ProvenanceClipboard
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceKeystroke:
		return "keystroke"
	case ProvenancePaste:
		return "paste"
	case ProvenanceAutofill:
		return "autofill"
	case ProvenanceClipboard:
		return "clipboard"
	default:
		return fmt.Sprintf("provenance(%d)", int(p))
	}
}

// ParseProvenance is the inverse of Provenance.String.
func ParseProvenance(s string) (Provenance, error) {
	for _, p := range []Provenance{ProvenanceKeystroke, ProvenancePaste, ProvenanceAutofill, ProvenanceClipboard} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown provenance: %q", s)
}

// Episode describes a completed fill episode. Value holds the code itself; treat
// it as a secret.
type Episode struct {
	ID              string
	Value           string
	Provenance      Provenance
	Length          int
	Started         time.Time
	Completed       time.Time
	Keystrokes      int
	AbandonedBursts int
}

// Duration returns how long the episode took from first edit to completion.
func (e Episode) Duration() time.Duration {
	return e.Completed.Sub(e.Started)
}

// autofillSession holds characters received while an SMS autofill burst is
// suspected. The buffer never grows past the field length.
type autofillSession struct {
	buffer    []rune
	lastEmpty time.Time
	suspected bool
}

func (s *autofillSession) clear() {
	s.buffer = nil
	s.lastEmpty = time.Time{}
	s.suspected = false
}
